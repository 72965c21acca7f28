package search

import (
	"strconv"
	"strings"
)

// DefaultThreshold is used when a stored threshold cannot be parsed.
const DefaultThreshold = 0.75

// NormalizeThreshold parses a similarity threshold stored either as a 0-1
// float ("0.75") or a percent string ("85%"). The result is always clamped
// to [0,1]; unparseable input falls back to DefaultThreshold.
func NormalizeThreshold(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultThreshold
	}

	percent := strings.HasSuffix(s, "%")
	if percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DefaultThreshold
	}
	if percent {
		v /= 100
	}

	return clamp01(v)
}
