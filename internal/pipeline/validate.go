package pipeline

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// validateHeader checks the header row of an activity table.
func validateHeader(header []string) error {
	if !slices.Contains(header, TimeColumn) {
		return fmt.Errorf("%w: header has %d columns, none named %q", ErrMissingTimeColumn, len(header), TimeColumn)
	}
	return nil
}

// validateTimes ensures every row has a finite time key.
// rowOffset converts slice positions into 1-based file line numbers.
func validateTimes(times []float64, raw []string, rowOffset int) error {
	for i, v := range times {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			cell := ""
			if i < len(raw) {
				cell = raw[i]
			}
			return fmt.Errorf("%w: line %d: %s", ErrInvalidTime, i+rowOffset, strconv.Quote(cell))
		}
	}
	return nil
}
