package colormatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1a2B3c")
	require.NoError(t, err)
	require.Equal(t, RGB{R: 0x1a, G: 0x2b, B: 0x3c}, c)

	c, err = ParseHex("f0a")
	require.NoError(t, err)
	require.Equal(t, RGB{R: 0xff, G: 0x00, B: 0xaa}, c)

	for _, bad := range []string{"", "#12345", "zzzzzz", "#1234567"} {
		_, err := ParseHex(bad)
		require.True(t, errors.Is(err, ErrInvalidColor), "input %q", bad)
	}
}

func TestSimilarity_IdentityAndSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"#000000", "#ffffff"},
		{"#ff0000", "#fe0101"},
		{"#123456", "#654321"},
	}
	for _, p := range pairs {
		ab, err := SimilarityHex(p[0], p[1])
		require.NoError(t, err)
		ba, err := SimilarityHex(p[1], p[0])
		require.NoError(t, err)
		require.Equal(t, ab, ba)

		aa, err := SimilarityHex(p[0], p[0])
		require.NoError(t, err)
		require.Equal(t, 100.0, aa)
	}
}

func TestSimilarity_Extremes(t *testing.T) {
	s, err := SimilarityHex("#000000", "#ffffff")
	require.NoError(t, err)
	require.InDelta(t, 0.0, s, 1e-9)

	s, err = SimilarityHex("#ff0000", "#000000")
	require.NoError(t, err)
	require.InDelta(t, 100-255/maxDistance*100, s, 1e-9)
}

func TestMatches_AnyBand(t *testing.T) {
	target, err := ParseHex("#ff0000")
	require.NoError(t, err)

	require.True(t, Matches([]string{"#0000ff", "#fa0505"}, target, DefaultThreshold))
	require.False(t, Matches([]string{"#0000ff", "#00ff00"}, target, DefaultThreshold))
	require.False(t, Matches([]string{"not-a-color"}, target, 0))
	require.True(t, Matches([]string{"#0000ff"}, target, 0))
}
