package pipeline

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"go-activity-pipeline/internal/model"
)

// FitActivityTemperature regresses a subject's temperature on its activity.
// Rows are paired on identical time keys; the first temperature row wins when
// a time repeats. Pairs with a missing side are dropped.
func FitActivityTemperature(act, temp *HourTable, subject string) (model.Regression, error) {
	fit := model.Regression{Subject: subject}

	activity, ok := act.Values(subject)
	if !ok {
		return fit, fmt.Errorf("%w: %q not in %s", ErrUnknownSubject, subject, act.Source)
	}
	temperature, ok := temp.Values(subject)
	if !ok {
		return fit, fmt.Errorf("%w: %q not in %s", ErrUnknownSubject, subject, temp.Source)
	}

	tempRow := make(map[float64]int, temp.Len())
	for i, h := range temp.Hours {
		if _, seen := tempRow[h]; !seen {
			tempRow[h] = i
		}
	}

	var xs, ys []float64
	for i, h := range act.Hours {
		j, ok := tempRow[h]
		if !ok {
			continue
		}
		x, y := activity[i], temperature[j]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	fit.N = len(xs)
	if fit.N < 2 {
		return fit, fmt.Errorf("%w: subject %q has %d paired rows", ErrInsufficientData, subject, fit.N)
	}

	variance, err := stats.PopulationVariance(xs)
	if err != nil || variance == 0 {
		return fit, fmt.Errorf("%w: subject %q has constant activity", ErrInsufficientData, subject)
	}
	covariance, err := stats.CovariancePopulation(xs, ys)
	if err != nil {
		return fit, fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}
	meanX, _ := stats.Mean(xs)
	meanY, _ := stats.Mean(ys)

	fit.Slope = covariance / variance
	fit.Intercept = meanY - fit.Slope*meanX
	if r, err := stats.Correlation(xs, ys); err == nil && !math.IsNaN(r) {
		fit.R = r
	}
	return fit, nil
}

// commonSubjects lists subjects present in both tables, in activity column order
func commonSubjects(act, temp *HourTable) []string {
	var out []string
	for _, s := range act.Subjects() {
		if _, ok := temp.Values(s); ok {
			out = append(out, s)
		}
	}
	return out
}
