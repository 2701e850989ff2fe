package model

import (
	"errors"
	"fmt"
	"strings"
)

// Source represents a single input table for the pipeline
type Source struct {
	Sex  Sex    `json:"sex"`
	Kind Kind   `json:"kind"` // activity, temperature
	URL  string `json:"url"`  // local path or http(s) URL
}

// SubjectSelection narrows each cohort to the named subject columns.
// An empty list keeps every subject.
type SubjectSelection struct {
	Female []string `json:"female,omitempty"`
	Male   []string `json:"male,omitempty"`
}

// For returns the selected subject ids of a cohort
func (s SubjectSelection) For(sex Sex) []string {
	if sex == Female {
		return s.Female
	}
	return s.Male
}

// RegressionRequest asks for activity/temperature fits.
// An empty Subjects list fits every subject present in both tables.
type RegressionRequest struct {
	Subjects SubjectSelection `json:"subjects"`
}

// Export defines export targets
type Export struct {
	DB   string `json:"db,omitempty"`   // "sqlite" or a postgres:// DSN
	File string `json:"file,omitempty"` // e.g. hourly.csv, hourly.json
}

// AnalysisSpec defines an entire analysis run
type AnalysisSpec struct {
	Dataset    string             `json:"dataset"`              // sheet export prefix
	DataDir    string             `json:"dataDir,omitempty"`    // directory holding the exports
	Sources    []Source           `json:"sources,omitempty"`    // explicit overrides of the conventional paths
	Subjects   SubjectSelection   `json:"subjects"`             // optional subject filter
	PerSubject bool               `json:"perSubject,omitempty"` // also compute one series per subject
	Regression *RegressionRequest `json:"regression,omitempty"` // activity/temperature fits
	Export     *Export            `json:"export,omitempty"`     // output/export rules
	Timeout    string             `json:"timeout,omitempty"`    // e.g. "5m"
}

// Validate checks the spec for problems that would only surface mid-run
func (s AnalysisSpec) Validate() error {
	if strings.TrimSpace(s.Dataset) == "" && !s.hasAllSources() {
		return errors.New("dataset name is required unless every source is given explicitly")
	}
	for i, src := range s.Sources {
		if !src.Sex.Valid() {
			return fmt.Errorf("source %d: unknown sex %q", i, src.Sex)
		}
		if !src.Kind.Valid() {
			return fmt.Errorf("source %d: unknown kind %q", i, src.Kind)
		}
		if strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("source %d: url is required", i)
		}
	}
	return nil
}

func (s AnalysisSpec) hasAllSources() bool {
	for _, sex := range Sexes {
		if s.explicitSource(sex, Activity) == "" {
			return false
		}
		if s.Regression != nil && s.explicitSource(sex, Temperature) == "" {
			return false
		}
	}
	return true
}

func (s AnalysisSpec) explicitSource(sex Sex, kind Kind) string {
	for _, src := range s.Sources {
		if src.Sex == sex && src.Kind == kind {
			return src.URL
		}
	}
	return ""
}

// SourceFor resolves the table location for a cohort and measurement kind.
// Explicit sources win over the conventional dataset path.
func (s AnalysisSpec) SourceFor(sex Sex, kind Kind) string {
	if url := s.explicitSource(sex, kind); url != "" {
		return url
	}
	dir := s.DataDir
	if dir == "" {
		dir = DefaultDataDir
	}
	return DatasetPath(dir, s.Dataset, sex, kind)
}

// DefaultDataDir is where the sheet exports live unless configured otherwise
const DefaultDataDir = "data"
