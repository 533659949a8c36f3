// Package util provides small string helpers shared by the description parsers.
package util

import (
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanValue normalizes a raw description value: surrounding whitespace and quotes
// are dropped and doubled quotes unescaped.
func CleanValue(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// ParseFloat32 parses a decimal number after cleaning it.
func ParseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(CleanValue(s), 32)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

// FormatFloat32 renders f with the shortest representation that parses back exactly.
func FormatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
