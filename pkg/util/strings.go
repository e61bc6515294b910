package util

import (
	"strconv"
	"strings"
)

// ParseFloat parses a decimal string, returning 0 for empty/invalid input.
// Market APIs ship numbers as strings; a zero value is treated downstream
// as "no data" rather than an error.
func ParseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// SplitCSV splits a comma-separated list, trimming whitespace and
// dropping empty items.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
