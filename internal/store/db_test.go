package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-activity-pipeline/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Ping(ctx))

	spec := model.AnalysisSpec{Dataset: "mice", DataDir: "data", PerSubject: true}
	require.NoError(t, s.SaveJob(ctx, "job-1", spec))

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, job.Status)
	assert.Equal(t, spec, job.Spec)

	require.NoError(t, s.UpdateJobStatus(ctx, "job-1", model.StatusCompleted))
	job, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, job.Status)

	require.NoError(t, s.SaveJob(ctx, "job-2", spec))
	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJob(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.UpdateJobStatus(context.Background(), "nope", model.StatusRunning)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveJobError(ctx, "job-1", "load", errors.New("file missing")))
	require.NoError(t, s.SaveJobError(ctx, "job-1", "index", errors.New("no time column")))
	require.NoError(t, s.SaveJobError(ctx, "job-1", "load", nil))

	errs, err := s.GetJobErrors(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "load", errs[0].Stage)
	assert.Equal(t, "file missing", errs[0].Message)
	assert.Equal(t, "index", errs[1].Stage)

	none, err := s.GetJobErrors(ctx, "job-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStageProgressUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	start := time.Now().UTC().Truncate(time.Second)
	end := start.Add(2 * time.Second)

	require.NoError(t, s.SaveStageProgress(ctx, model.StageProgress{JobID: "job-1", Stage: "load", Status: "started", StartedAt: start}))
	require.NoError(t, s.SaveStageProgress(ctx, model.StageProgress{JobID: "job-1", Stage: "load", Status: "completed", StartedAt: start, EndedAt: &end, Records: 40}))

	stages, err := s.GetStageProgress(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "completed", stages[0].Status)
	assert.Equal(t, 40, stages[0].Records)
	require.NotNil(t, stages[0].EndedAt)
	assert.True(t, end.Equal(*stages[0].EndedAt))
}

func TestSaveAnalysisRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := &model.Analysis{
		Series: []model.HourlySeries{
			{Sex: model.Male, Points: []model.HourlyPoint{{Hour: 0, Mean: 1, Rows: 1}}},
			{Sex: model.Female, Points: []model.HourlyPoint{{Hour: 1, Mean: math.NaN(), Rows: 2}, {Hour: 0, Mean: 3, Rows: 2}}},
		},
		Subjects: []model.HourlySeries{
			{Sex: model.Female, Subject: "f1", Points: []model.HourlyPoint{{Hour: 0, Mean: 3, Rows: 2}}},
		},
		Regressions: []model.Regression{{Sex: model.Female, Subject: "f1", Slope: 0.5, Intercept: 36, R: 0.9, N: 4}},
	}
	require.NoError(t, s.SaveAnalysis(ctx, "job-1", a))
	// saving again replaces rather than duplicates
	require.NoError(t, s.SaveAnalysis(ctx, "job-1", a))

	series, err := s.GetHourlySeries(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, model.Female, series[0].Sex)
	assert.Empty(t, series[0].Subject)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 0, series[0].Points[0].Hour)
	assert.Equal(t, 3.0, series[0].Points[0].Mean)
	assert.False(t, series[0].Points[1].Defined())

	assert.Equal(t, model.Male, series[1].Sex)
	assert.Equal(t, "f1", series[2].Subject)

	fits, err := s.GetRegressions(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, a.Regressions, fits)
}

func TestSaveAnalysisNonFiniteMeanIsNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := &model.Analysis{Series: []model.HourlySeries{
		{Sex: model.Female, Points: []model.HourlyPoint{{Hour: 0, Mean: math.Inf(1), Rows: 1}, {Hour: 1, Mean: 2, Rows: 1}}},
	}}
	require.NoError(t, s.SaveAnalysis(ctx, "job-inf", a))

	series, err := s.GetHourlySeries(ctx, "job-inf")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.False(t, series[0].Points[0].Defined())
	assert.Equal(t, 2.0, series[0].Points[1].Mean)
}
