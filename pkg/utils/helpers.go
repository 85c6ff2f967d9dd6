package utils

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "5s", falling back to
// the given default on empty or malformed input.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// TimestampSuffix returns a filesystem-safe timestamp token for file names.
func TimestampSuffix(t time.Time) string {
	return t.Format("20060102_150405")
}

// SortedCSVFiles filters paths down to .csv files (case-insensitive) and
// returns them sorted by name for deterministic processing order.
func SortedCSVFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".csv") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
