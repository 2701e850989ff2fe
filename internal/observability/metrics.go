package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_pipeline",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Number of analysis jobs finished, by final status.",
	}, []string{"status"})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_pipeline",
		Subsystem: "stages",
		Name:      "duration_seconds",
		Help:      "Wall time spent per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage", "status"})

	rowsLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_pipeline",
		Subsystem: "loader",
		Name:      "rows_total",
		Help:      "Data rows parsed from activity and temperature tables.",
	}, []string{"kind"})

	tableCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_pipeline",
		Subsystem: "loader",
		Name:      "cache_lookups_total",
		Help:      "Parsed table cache lookups, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(jobsCounter, stageDuration, rowsLoaded, tableCacheLookups)
}

// RecordJobFinished counts a job reaching a final status.
func RecordJobFinished(status string) {
	jobsCounter.WithLabelValues(status).Inc()
}

// RecordStage observes how long a stage ran.
func RecordStage(stage, status string, elapsed time.Duration) {
	stageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}

// RecordRowsLoaded counts parsed rows for a measurement kind.
func RecordRowsLoaded(kind string, rows int) {
	rowsLoaded.WithLabelValues(kind).Add(float64(rows))
}

// RecordCacheLookup counts a table cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	tableCacheLookups.WithLabelValues(result).Inc()
}
