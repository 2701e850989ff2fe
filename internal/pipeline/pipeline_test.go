package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/pkg/utils"
)

const testDataset = "mice.xlsx"

// writeDataset lays out the conventional sheet exports under dir
func writeDataset(t *testing.T, dir string, sheets map[string]string) {
	t.Helper()
	for label, content := range sheets {
		writeCSV(t, dir, testDataset+" - "+label+".csv", content)
	}
}

type fakeJobStore struct {
	mu       sync.Mutex
	statuses []string
	progress map[string]model.StageProgress
	errors   []string
	saved    *model.Analysis
	saveErr  error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{progress: make(map[string]model.StageProgress)}
}

func (f *fakeJobStore) UpdateJobStatus(_ context.Context, _ string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobStore) SaveStageProgress(_ context.Context, p model.StageProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[p.Stage] = p
	return nil
}

func (f *fakeJobStore) SaveJobError(_ context.Context, _ string, stage string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, stage+": "+err.Error())
	return nil
}

func (f *fakeJobStore) SaveAnalysis(_ context.Context, _ string, a *model.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = a
	return f.saveErr
}

func TestHourlyActivity(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act":  "time,f1,f2\n0,1,3\n30,3,5\n60,5,7\n90,7,9\n",
		"Male Act": "time,m1\n0,2\n0,4\n",
	})

	female, male, err := New(nil, nil).HourlyActivity(context.Background(), dir, testDataset)
	require.NoError(t, err)

	assert.Equal(t, model.Female, female.Sex)
	assert.Equal(t, []int{0, 1}, female.Hours())
	f0, _ := female.Value(0)
	f1, _ := female.Value(1)
	assert.InDelta(t, 3.0, f0, 1e-12)
	assert.InDelta(t, 7.0, f1, 1e-12)

	assert.Equal(t, model.Male, male.Sex)
	m0, _ := male.Value(0)
	assert.InDelta(t, 3.0, m0, 1e-12)
}

func TestAnalyzeWithExtras(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act":   "time,f1,f2\n0,1,10\n60,2,20\n120,3,30\n",
		"Male Act":  "time,m1\n0,1\n60,2\n",
		"Fem Temp":  "time,f1,f2\n0,36.5,36\n60,37,36\n120,37.5,36\n",
		"Male Temp": "time,m1\n0,36\n60,37\n",
	})

	spec := model.AnalysisSpec{
		Dataset:    testDataset,
		DataDir:    dir,
		Subjects:   model.SubjectSelection{Female: []string{"f1", "f2"}},
		PerSubject: true,
		Regression: &model.RegressionRequest{},
	}
	a, err := New(nil, nil).Analyze(context.Background(), spec, nil)
	require.NoError(t, err)

	require.Len(t, a.Series, 2)
	assert.Equal(t, model.Female, a.Series[0].Sex)
	assert.Equal(t, model.Male, a.Series[1].Sex)
	assert.Len(t, a.Subjects, 3)

	// f2 has constant temperature and still fits; every subject pairs up
	require.Len(t, a.Regressions, 3)
	assert.Equal(t, "f1", a.Regressions[0].Subject)
	assert.InDelta(t, 0.5, a.Regressions[0].Slope, 1e-9)
	assert.InDelta(t, 0.0, a.Regressions[1].Slope, 1e-9)
	assert.Equal(t, model.Male, a.Regressions[2].Sex)
}

func TestAnalyzeSkipsUnfittableSubjectsWhenNoneRequested(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act":   "time,f1,flat\n0,1,5\n60,2,5\n",
		"Male Act":  "time,m1\n0,1\n60,2\n",
		"Fem Temp":  "time,f1,flat\n0,36,36\n60,37,37\n",
		"Male Temp": "time,m1\n0,36\n60,37\n",
	})

	spec := model.AnalysisSpec{Dataset: testDataset, DataDir: dir, Regression: &model.RegressionRequest{}}
	a, err := New(nil, nil).Analyze(context.Background(), spec, nil)
	require.NoError(t, err)
	require.Len(t, a.Regressions, 2)
	assert.Equal(t, "f1", a.Regressions[0].Subject)

	spec.Regression.Subjects.Female = []string{"flat"}
	_, err = New(nil, nil).Analyze(context.Background(), spec, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzeFailsWithoutPartialResult(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act": "time,f1\n0,1\n",
	})

	a, err := New(nil, nil).Analyze(context.Background(), model.AnalysisSpec{Dataset: testDataset, DataDir: dir}, nil)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "male")
}

func TestAnalyzeExplicitSources(t *testing.T) {
	dir := t.TempDir()
	fem := writeCSV(t, dir, "f.csv", "time,a\n0,1\n")
	male := writeCSV(t, dir, "m.csv", "time,b\n0,2\n")

	spec := model.AnalysisSpec{Sources: []model.Source{
		{Sex: model.Female, Kind: model.Activity, URL: fem},
		{Sex: model.Male, Kind: model.Activity, URL: male},
	}}
	a, err := New(nil, nil).Analyze(context.Background(), spec, nil)
	require.NoError(t, err)
	m, _ := a.SeriesFor(model.Male)
	v, _ := m.Value(0)
	assert.Equal(t, 2.0, v)
}

func TestAnalyzeRejectsInvalidSpec(t *testing.T) {
	_, err := New(nil, nil).Analyze(context.Background(), model.AnalysisSpec{}, nil)
	assert.Error(t, err)
}

func TestRunnerCompletesAndExports(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act":  "time,f1\n0,1\n30,3\n",
		"Male Act": "time,m1\n0,5\n",
	})
	outDir := filepath.Join(t.TempDir(), "outputs")

	store := newFakeJobStore()
	runner := NewRunner(New(nil, nil), store, nil, WithOutputs(utils.NewOutputManager(outDir)))
	spec := model.AnalysisSpec{
		Dataset: testDataset,
		DataDir: dir,
		Export:  &model.Export{File: "../escape/hourly.csv"},
	}

	a, err := runner.Run(context.Background(), "job-ok", spec)
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, []string{model.StatusRunning, model.StatusCompleted}, store.statuses)
	assert.Same(t, a, store.saved)
	assert.Empty(t, store.errors)
	for _, stage := range []string{StageLoad, StageIndex, StageAggregate, StageExport} {
		assert.Equal(t, "completed", store.progress[stage].Status, stage)
	}

	_, err = os.Stat(filepath.Join(outDir, "job-ok", "hourly.csv"))
	assert.NoError(t, err)
}

func TestRunnerRecordsFailure(t *testing.T) {
	store := newFakeJobStore()
	runner := NewRunner(New(nil, nil), store, nil)
	spec := model.AnalysisSpec{Dataset: testDataset, DataDir: t.TempDir()}

	_, err := runner.Run(context.Background(), "job-bad", spec)
	require.Error(t, err)

	assert.Equal(t, []string{model.StatusRunning, model.StatusFailed}, store.statuses)
	assert.Nil(t, store.saved)
	assert.Equal(t, "failed", store.progress[StageLoad].Status)
	require.NotEmpty(t, store.errors)
	assert.Contains(t, store.errors[0], "load: ")
}

func TestRunnerFailsWhenStoringFails(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, map[string]string{
		"Fem Act":  "time,f1\n0,1\n",
		"Male Act": "time,m1\n0,5\n",
	})
	store := newFakeJobStore()
	store.saveErr = errors.New("locked")

	_, err := NewRunner(New(nil, nil), store, nil).Run(context.Background(), "job-x", model.AnalysisSpec{Dataset: testDataset, DataDir: dir})
	require.Error(t, err)
	assert.Equal(t, model.StatusFailed, store.statuses[len(store.statuses)-1])
	assert.Equal(t, "failed", store.progress[StageExport].Status)
}

func TestRunnerPostgresTargetNeedsDSN(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.exportTargets("job", &model.Export{DB: "postgres"})
	assert.Error(t, err)

	r = NewRunner(nil, nil, nil, WithPostgresDSN("postgres://db/mice"))
	targets, err := r.exportTargets("job", &model.Export{DB: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/mice", targets.DB)
}
