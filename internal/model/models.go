package model

import (
	"fmt"
	"path/filepath"
)

// Sex identifies which cohort a table belongs to
type Sex string

const (
	Female Sex = "female"
	Male   Sex = "male"
)

// Sexes lists the cohorts in output order
var Sexes = []Sex{Female, Male}

// Valid reports whether s is a known cohort
func (s Sex) Valid() bool {
	return s == Female || s == Male
}

// sheetLabel is the suffix the spreadsheet export uses for the cohort
func (s Sex) sheetLabel() string {
	if s == Female {
		return "Fem"
	}
	return "Male"
}

// Kind identifies the measurement stored in a table
type Kind string

const (
	Activity    Kind = "activity"
	Temperature Kind = "temperature"
)

// Valid reports whether k is a known measurement kind
func (k Kind) Valid() bool {
	return k == Activity || k == Temperature
}

func (k Kind) sheetLabel() string {
	if k == Temperature {
		return "Temp"
	}
	return "Act"
}

// DatasetPath builds the conventional path of a sheet export,
// e.g. "data/<name> - Fem Act.csv".
func DatasetPath(dataDir, name string, sex Sex, kind Kind) string {
	file := fmt.Sprintf("%s - %s %s.csv", name, sex.sheetLabel(), kind.sheetLabel())
	return filepath.Join(dataDir, file)
}

// DatasetPaths returns the four conventional sheet exports of a dataset,
// keyed by cohort and measurement kind.
func DatasetPaths(dataDir, name string) map[Sex]map[Kind]string {
	paths := make(map[Sex]map[Kind]string, len(Sexes))
	for _, sex := range Sexes {
		paths[sex] = map[Kind]string{
			Activity:    DatasetPath(dataDir, name, sex, Activity),
			Temperature: DatasetPath(dataDir, name, sex, Temperature),
		}
	}
	return paths
}
