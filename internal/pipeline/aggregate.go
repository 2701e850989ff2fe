package pipeline

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"go-activity-pipeline/internal/model"
)

// hourBucket holds the rows whose hour key truncates to the same integer
type hourBucket struct {
	hour int
	rows []int
}

// groupByHour buckets rows by integer hour, truncating toward zero,
// and returns the buckets in ascending hour order.
func groupByHour(hours []float64) []hourBucket {
	index := make(map[int]int)
	var buckets []hourBucket
	for row, h := range hours {
		hour := int(h)
		pos, ok := index[hour]
		if !ok {
			pos = len(buckets)
			index[hour] = pos
			buckets = append(buckets, hourBucket{hour: hour})
		}
		buckets[pos].rows = append(buckets[pos].rows, row)
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].hour < buckets[j].hour
	})
	return buckets
}

// HourlyMeans averages each subject within every hour, then averages the
// subject means. Missing values are excluded from both steps.
func HourlyMeans(h *HourTable) model.HourlySeries {
	series := model.HourlySeries{Source: h.Source, Points: []model.HourlyPoint{}}

	for _, b := range groupByHour(h.Hours) {
		subjectMeans := make([]float64, 0, len(h.subjects))
		for _, s := range h.subjects {
			if m, ok := bucketMean(h.values[s], b.rows); ok {
				subjectMeans = append(subjectMeans, m)
			}
		}
		mean, _ := finiteMean(subjectMeans)
		series.Points = append(series.Points, model.HourlyPoint{
			Hour: b.hour,
			Mean: mean,
			Rows: len(b.rows),
		})
	}
	return series
}

// SubjectHourlyMeans returns one hourly series per subject, in column order
func SubjectHourlyMeans(h *HourTable) []model.HourlySeries {
	buckets := groupByHour(h.Hours)
	out := make([]model.HourlySeries, 0, len(h.subjects))
	for _, s := range h.subjects {
		series := model.HourlySeries{
			Subject: s,
			Source:  h.Source,
			Points:  make([]model.HourlyPoint, 0, len(buckets)),
		}
		for _, b := range buckets {
			mean, _ := bucketMean(h.values[s], b.rows)
			series.Points = append(series.Points, model.HourlyPoint{
				Hour: b.hour,
				Mean: mean,
				Rows: len(b.rows),
			})
		}
		out = append(out, series)
	}
	return out
}

func bucketMean(values []float64, rows []int) (float64, bool) {
	picked := make([]float64, 0, len(rows))
	for _, r := range rows {
		picked = append(picked, values[r])
	}
	return finiteMean(picked)
}

// finiteMean averages the non-NaN values; ok is false when there are none
func finiteMean(values []float64) (float64, bool) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN(), false
	}
	mean, err := stats.Mean(finite)
	if err != nil {
		return math.NaN(), false
	}
	return mean, true
}
