package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/observability"
)

// Stage names reported while a run progresses
const (
	StageLoad       = "load"
	StageIndex      = "index"
	StageAggregate  = "aggregate"
	StageSubjects   = "subjects"
	StageRegression = "regression"
	StageExport     = "export"
)

// StageObserver is notified as each stage of a run starts and ends.
// Implementations must be safe for concurrent use: both cohorts report at once.
type StageObserver interface {
	StageStarted(stage string)
	StageFinished(stage string, records int)
	StageFailed(stage string, err error)
}

// ProgressStore persists job status, stage progress and errors
type ProgressStore interface {
	UpdateJobStatus(ctx context.Context, jobID, status string) error
	SaveStageProgress(ctx context.Context, p model.StageProgress) error
	SaveJobError(ctx context.Context, jobID, stage string, err error) error
}

// nopObserver is used when the caller does not track stages
type nopObserver struct{}

func (nopObserver) StageStarted(string)       {}
func (nopObserver) StageFinished(string, int) {}
func (nopObserver) StageFailed(string, error) {}

// Tracker records stage progress for one job into a ProgressStore
// and the stage metrics. Writes are serialized so the last row saved
// for a stage carries its final totals.
type Tracker struct {
	jobID  string
	store  ProgressStore
	logger *zap.Logger

	mu      sync.Mutex
	started map[string]time.Time
	records map[string]int
	failed  map[string]bool
}

// NewTracker creates a tracker for a job
func NewTracker(jobID string, store ProgressStore, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		jobID:   jobID,
		store:   store,
		logger:  logger.With(zap.String("job_id", jobID)),
		started: make(map[string]time.Time),
		records: make(map[string]int),
		failed:  make(map[string]bool),
	}
}

// StageStarted marks the first start of a stage. Stages run once per cohort,
// so a second start only extends the same row.
func (t *Tracker) StageStarted(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.started[stage]; seen {
		return
	}
	start := t.startOf(stage)

	t.logger.Info("stage started", zap.String("stage", stage))
	t.save(model.StageProgress{JobID: t.jobID, Stage: stage, Status: "started", StartedAt: start})
}

// StageFinished adds records to the stage and marks it completed
func (t *Tracker) StageFinished(stage string, records int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := t.startOf(stage)
	t.records[stage] += records
	if t.failed[stage] {
		return
	}

	end := time.Now().UTC()
	total := t.records[stage]
	observability.RecordStage(stage, "completed", end.Sub(start))
	t.logger.Info("stage completed",
		zap.String("stage", stage),
		zap.Int("records", total),
		zap.Duration("elapsed", end.Sub(start)),
	)
	t.save(model.StageProgress{JobID: t.jobID, Stage: stage, Status: "completed", StartedAt: start, EndedAt: &end, Records: total})
}

// StageFailed marks the stage failed and records the error against the job
func (t *Tracker) StageFailed(stage string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := t.startOf(stage)
	t.failed[stage] = true

	end := time.Now().UTC()
	observability.RecordStage(stage, "failed", end.Sub(start))
	t.logger.Error("stage failed", zap.String("stage", stage), zap.Error(err))
	t.save(model.StageProgress{JobID: t.jobID, Stage: stage, Status: "failed", StartedAt: start, EndedAt: &end, Records: t.records[stage]})

	if t.store != nil {
		if saveErr := t.store.SaveJobError(context.Background(), t.jobID, stage, err); saveErr != nil {
			t.logger.Warn("saving job error failed", zap.Error(saveErr))
		}
	}
}

// startOf must be called with mu held
func (t *Tracker) startOf(stage string) time.Time {
	start, ok := t.started[stage]
	if !ok {
		start = time.Now().UTC()
		t.started[stage] = start
	}
	return start
}

func (t *Tracker) save(p model.StageProgress) {
	if t.store == nil {
		return
	}
	// progress rows outlive the job context, which may already be cancelled
	if err := t.store.SaveStageProgress(context.Background(), p); err != nil {
		t.logger.Warn("saving stage progress failed", zap.String("stage", p.Stage), zap.Error(err))
	}
}
