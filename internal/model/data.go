package model

import (
	"encoding/json"
	"math"
	"time"
)

// HourlyPoint is one bucket of an hourly series
type HourlyPoint struct {
	Hour int     `json:"hour"`
	Mean float64 `json:"mean"` // NaN when no subject had a value in the bucket
	Rows int     `json:"rows"` // time samples that fell into the bucket
}

// Defined reports whether the bucket has a finite mean. Non-finite means
// are written as null everywhere.
func (p HourlyPoint) Defined() bool {
	return !math.IsNaN(p.Mean) && !math.IsInf(p.Mean, 0)
}

type hourlyPointJSON struct {
	Hour int      `json:"hour"`
	Mean *float64 `json:"mean"`
	Rows int      `json:"rows"`
}

// MarshalJSON writes an undefined mean as null
func (p HourlyPoint) MarshalJSON() ([]byte, error) {
	out := hourlyPointJSON{Hour: p.Hour, Rows: p.Rows}
	if p.Defined() {
		mean := p.Mean
		out.Mean = &mean
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null mean back as NaN
func (p *HourlyPoint) UnmarshalJSON(data []byte) error {
	var in hourlyPointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Hour = in.Hour
	p.Rows = in.Rows
	p.Mean = math.NaN()
	if in.Mean != nil {
		p.Mean = *in.Mean
	}
	return nil
}

// HourlySeries maps integer hours to mean activity, ordered by hour
type HourlySeries struct {
	Sex     Sex           `json:"sex"`
	Subject string        `json:"subject,omitempty"` // empty for the cohort average
	Source  string        `json:"source,omitempty"`
	Points  []HourlyPoint `json:"points"`
}

// Hours returns the hour keys in order
func (s HourlySeries) Hours() []int {
	hours := make([]int, len(s.Points))
	for i, p := range s.Points {
		hours[i] = p.Hour
	}
	return hours
}

// Value looks up the mean for an hour
func (s HourlySeries) Value(hour int) (float64, bool) {
	for _, p := range s.Points {
		if p.Hour == hour {
			return p.Mean, true
		}
	}
	return 0, false
}

// Regression is a least-squares fit of temperature on activity for one subject
type Regression struct {
	Sex       Sex     `json:"sex"`
	Subject   string  `json:"subject"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	N         int     `json:"n"`
}

// Analysis is everything one run produces
type Analysis struct {
	Dataset     string         `json:"dataset"`
	Series      []HourlySeries `json:"series"`             // one per sex, female first
	Subjects    []HourlySeries `json:"subjects,omitempty"` // per-subject series when requested
	Regressions []Regression   `json:"regressions,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// SeriesFor returns the cohort series of a sex
func (a *Analysis) SeriesFor(sex Sex) (HourlySeries, bool) {
	for _, s := range a.Series {
		if s.Sex == sex {
			return s, true
		}
	}
	return HourlySeries{}, false
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "file", "sqlite", "postgres"
	Path        string    `json:"path"` // file path or database target
	RecordCount int       `json:"record_count"`
	Bytes       int64     `json:"bytes,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
