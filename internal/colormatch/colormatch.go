// Package colormatch compares filament colors in RGB space.
package colormatch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultThreshold is the similarity percent a color search uses when none is given.
const DefaultThreshold = 85.0

// maxDistance is the distance between black and white.
var maxDistance = math.Sqrt(3 * 255 * 255)

// ErrInvalidColor is returned for strings that are not hex colors.
var ErrInvalidColor = errors.New("colormatch: invalid hex color")

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// ParseHex decodes "#rrggbb", "rrggbb", "#rgb" or "rgb".
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Similarity returns how close two colors are as a percent in [0,100].
func Similarity(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	distance := math.Sqrt(dr*dr + dg*dg + db*db)
	return math.Max(0, 100-distance/maxDistance*100)
}

// SimilarityHex parses both colors and returns their similarity.
func SimilarityHex(a, b string) (float64, error) {
	ca, err := ParseHex(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseHex(b)
	if err != nil {
		return 0, err
	}
	return Similarity(ca, cb), nil
}

// Matches reports whether any of colors is at least threshold percent similar to target.
// Unparseable bands never match.
func Matches(colors []string, target RGB, threshold float64) bool {
	for _, c := range colors {
		rgb, err := ParseHex(c)
		if err != nil {
			continue
		}
		if Similarity(rgb, target) >= threshold {
			return true
		}
	}
	return false
}
