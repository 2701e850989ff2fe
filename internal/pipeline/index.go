package pipeline

import (
	"fmt"
	"slices"
)

// MinutesPerHour converts the time column into hour keys
const MinutesPerHour = 60.0

// HourTable is an activity table re-keyed by fractional hours
type HourTable struct {
	Source   string
	Hours    []float64
	subjects []string
	values   map[string][]float64
}

// IndexByHour makes time the row key and rescales it from minutes to hours
func IndexByHour(t *ActivityTable) (*HourTable, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: no table", ErrMissingTimeColumn)
	}
	minutes, ok := t.Column(TimeColumn)
	if !ok {
		return nil, fmt.Errorf("%s: %w", t.Source, ErrMissingTimeColumn)
	}

	hours := make([]float64, len(minutes))
	for i, m := range minutes {
		hours[i] = m / MinutesPerHour
	}

	subjects := t.Subjects()
	values := make(map[string][]float64, len(subjects))
	for _, s := range subjects {
		values[s], _ = t.Column(s)
	}

	return &HourTable{
		Source:   t.Source,
		Hours:    hours,
		subjects: subjects,
		values:   values,
	}, nil
}

// Len returns the number of rows
func (h *HourTable) Len() int {
	return len(h.Hours)
}

// Subjects returns the subject columns in file order
func (h *HourTable) Subjects() []string {
	return slices.Clone(h.subjects)
}

// Values returns the readings of one subject, aligned with Hours
func (h *HourTable) Values(subject string) ([]float64, bool) {
	v, ok := h.values[subject]
	return v, ok
}

// SelectSubjects narrows the table to the named subjects, in the order given.
// No ids keeps every subject.
func SelectSubjects(h *HourTable, ids ...string) (*HourTable, error) {
	if len(ids) == 0 {
		return h, nil
	}

	values := make(map[string][]float64, len(ids))
	subjects := make([]string, 0, len(ids))
	for _, id := range ids {
		v, ok := h.values[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q not in %s", ErrUnknownSubject, id, h.Source)
		}
		if _, dup := values[id]; dup {
			continue
		}
		values[id] = v
		subjects = append(subjects, id)
	}

	return &HourTable{
		Source:   h.Source,
		Hours:    h.Hours,
		subjects: subjects,
		values:   values,
	}, nil
}
