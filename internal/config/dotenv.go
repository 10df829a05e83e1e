package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// envPair is one assignment read from a dotenv file.
type envPair struct {
	key, value string
}

// parseDotEnv reads KEY=VALUE assignments. Blank lines, # comments, lines
// without "=" and an optional "export " prefix are tolerated. A value wrapped
// in matching single or double quotes is unwrapped.
func parseDotEnv(r io.Reader) ([]envPair, error) {
	var pairs []envPair
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		pairs = append(pairs, envPair{key: key, value: unquote(strings.TrimSpace(value))})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan dotenv: %w", err)
	}
	return pairs, nil
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	if q := v[0]; (q == '"' || q == '\'') && v[len(v)-1] == q {
		return v[1 : len(v)-1]
	}
	return v
}

// loadDotEnv exports the assignments in path that the environment does not
// already define and returns the keys it set. A missing file is not an error.
func loadDotEnv(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pairs, err := parseDotEnv(f)
	if err != nil {
		return nil, err
	}

	var loaded []string
	for _, p := range pairs {
		if os.Getenv(p.key) != "" {
			continue
		}
		if err := os.Setenv(p.key, p.value); err != nil {
			return loaded, fmt.Errorf("set %s: %w", p.key, err)
		}
		loaded = append(loaded, p.key)
	}
	return loaded, nil
}
