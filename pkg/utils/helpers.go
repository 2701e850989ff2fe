package utils

import (
	"strings"
	"time"
)

// DefaultJobTimeout applies when a job does not set one
const DefaultJobTimeout = 5 * time.Minute

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return DefaultJobTimeout
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return DefaultJobTimeout
	}
	return duration
}

// CleanHeader trims whitespace, a leading byte order mark and ALL quotes from a header cell
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	return strings.ReplaceAll(h, `"`, "")
}

// TrimCells trims whitespace from every cell of a record in place
func TrimCells(record []string) []string {
	for i, cell := range record {
		record[i] = strings.TrimSpace(cell)
	}
	return record
}

// SplitList parses a comma separated flag value, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
