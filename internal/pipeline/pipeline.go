package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/observability"
	"go-activity-pipeline/pkg/utils"
)

// StageValidate reports a request rejected before any table is read
const StageValidate = "validate"

// Pipeline turns activity tables into hourly series
type Pipeline struct {
	loader *Loader
	logger *zap.Logger
}

// New creates a pipeline reading tables through loader
func New(loader *Loader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(logger)
	}
	return &Pipeline{loader: loader, logger: logger}
}

// cohortResult is everything computed for one sex
type cohortResult struct {
	series      model.HourlySeries
	subjects    []model.HourlySeries
	regressions []model.Regression
}

// Analyze runs the female and male pipelines concurrently. The first failure
// cancels the other cohort and no partial analysis is returned.
func (p *Pipeline) Analyze(ctx context.Context, spec model.AnalysisSpec, obs StageObserver) (*model.Analysis, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	if err := spec.Validate(); err != nil {
		obs.StageFailed(StageValidate, err)
		return nil, err
	}

	results := make([]cohortResult, len(model.Sexes))
	g, gctx := errgroup.WithContext(ctx)
	for i, sex := range model.Sexes {
		g.Go(func() error {
			res, err := p.runCohort(gctx, spec, sex, obs)
			if err != nil {
				return fmt.Errorf("%s: %w", sex, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &model.Analysis{Dataset: spec.Dataset, GeneratedAt: time.Now().UTC()}
	for _, res := range results {
		analysis.Series = append(analysis.Series, res.series)
		analysis.Subjects = append(analysis.Subjects, res.subjects...)
		analysis.Regressions = append(analysis.Regressions, res.regressions...)
	}
	return analysis, nil
}

// HourlyActivity is the plain two-cohort run over the conventional dataset files
func (p *Pipeline) HourlyActivity(ctx context.Context, dataDir, dataset string) (female, male model.HourlySeries, err error) {
	a, err := p.Analyze(ctx, model.AnalysisSpec{Dataset: dataset, DataDir: dataDir}, nil)
	if err != nil {
		return female, male, err
	}
	female, _ = a.SeriesFor(model.Female)
	male, _ = a.SeriesFor(model.Male)
	return female, male, nil
}

func (p *Pipeline) runCohort(ctx context.Context, spec model.AnalysisSpec, sex model.Sex, obs StageObserver) (cohortResult, error) {
	var res cohortResult
	log := p.logger.With(zap.String("sex", string(sex)))

	ht, err := p.loadHourTable(ctx, spec.SourceFor(sex, model.Activity), model.Activity, obs)
	if err != nil {
		return res, err
	}
	ht, err = SelectSubjects(ht, spec.Subjects.For(sex)...)
	if err != nil {
		obs.StageFailed(StageIndex, err)
		return res, err
	}

	obs.StageStarted(StageAggregate)
	res.series = HourlyMeans(ht)
	res.series.Sex = sex
	obs.StageFinished(StageAggregate, len(res.series.Points))
	log.Debug("hourly means computed", zap.Int("hours", len(res.series.Points)), zap.Int("subjects", len(ht.Subjects())))

	if spec.PerSubject {
		obs.StageStarted(StageSubjects)
		res.subjects = SubjectHourlyMeans(ht)
		for i := range res.subjects {
			res.subjects[i].Sex = sex
		}
		obs.StageFinished(StageSubjects, len(res.subjects))
	}

	if spec.Regression != nil {
		res.regressions, err = p.regress(ctx, spec, sex, ht, obs, log)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// loadHourTable runs the load and index stages for one table
func (p *Pipeline) loadHourTable(ctx context.Context, source string, kind model.Kind, obs StageObserver) (*HourTable, error) {
	obs.StageStarted(StageLoad)
	table, err := p.loader.Load(ctx, source)
	if err != nil {
		obs.StageFailed(StageLoad, err)
		return nil, err
	}
	observability.RecordRowsLoaded(string(kind), table.Len())
	obs.StageFinished(StageLoad, table.Len())

	obs.StageStarted(StageIndex)
	ht, err := IndexByHour(table)
	if err != nil {
		obs.StageFailed(StageIndex, err)
		return nil, err
	}
	obs.StageFinished(StageIndex, ht.Len())
	return ht, nil
}

// regress fits every requested subject. Without an explicit selection,
// subjects lacking usable pairs are skipped.
func (p *Pipeline) regress(ctx context.Context, spec model.AnalysisSpec, sex model.Sex, act *HourTable, obs StageObserver, log *zap.Logger) ([]model.Regression, error) {
	temp, err := p.loadHourTable(ctx, spec.SourceFor(sex, model.Temperature), model.Temperature, obs)
	if err != nil {
		return nil, err
	}

	obs.StageStarted(StageRegression)
	subjects := spec.Regression.Subjects.For(sex)
	explicit := len(subjects) > 0
	if !explicit {
		subjects = commonSubjects(act, temp)
	}

	fits := make([]model.Regression, 0, len(subjects))
	for _, subject := range subjects {
		fit, err := FitActivityTemperature(act, temp, subject)
		if err != nil {
			if !explicit && errors.Is(err, ErrInsufficientData) {
				log.Warn("skipping regression", zap.String("subject", subject), zap.Error(err))
				continue
			}
			obs.StageFailed(StageRegression, err)
			return nil, err
		}
		fit.Sex = sex
		fits = append(fits, fit)
	}
	obs.StageFinished(StageRegression, len(fits))
	return fits, nil
}

// ------------------- Job Runner -------------------

// JobStore is what a background run needs from persistence
type JobStore interface {
	ProgressStore
	SeriesSink
}

// Runner executes analyses as tracked background jobs
type Runner struct {
	pipeline    *Pipeline
	store       JobStore
	outputs     *utils.OutputManager
	postgresDSN string
	logger      *zap.Logger
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithOutputs confines export files to a per-job directory under outputs
func WithOutputs(outputs *utils.OutputManager) RunnerOption {
	return func(r *Runner) {
		r.outputs = outputs
	}
}

// WithPostgresDSN resolves the "postgres" export target to dsn
func WithPostgresDSN(dsn string) RunnerOption {
	return func(r *Runner) {
		r.postgresDSN = dsn
	}
}

// NewRunner creates a job runner
func NewRunner(p *Pipeline, store JobStore, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{pipeline: p, store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// exportTargets rewrites the requested targets for this deployment
func (r *Runner) exportTargets(jobID string, spec *model.Export) (*model.Export, error) {
	if spec == nil {
		return nil, nil
	}
	out := *spec
	if out.File != "" && r.outputs != nil {
		path, err := r.outputs.GetOutputFilePath(jobID, out.File)
		if err != nil {
			return nil, err
		}
		out.File = path
	}
	if strings.EqualFold(out.DB, "postgres") {
		if r.postgresDSN == "" {
			return nil, fmt.Errorf("postgres export requested but no DSN is configured")
		}
		out.DB = r.postgresDSN
	}
	return &out, nil
}

// Run executes one job: pending → running → completed|failed.
// The series are always stored for the job; export targets follow.
func (r *Runner) Run(ctx context.Context, jobID string, spec model.AnalysisSpec) (analysis *model.Analysis, err error) {
	start := time.Now()
	log := r.logger.With(zap.String("job_id", jobID))
	// status writes must land even after the job context expires
	bg := context.WithoutCancel(ctx)

	if err := r.store.UpdateJobStatus(bg, jobID, model.StatusRunning); err != nil {
		log.Warn("status update failed", zap.Error(err))
	}
	log.Info("starting analysis", zap.String("dataset", spec.Dataset))

	defer func() {
		status := model.StatusCompleted
		if err != nil {
			status = model.StatusFailed
			log.Error("analysis failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		} else {
			log.Info("analysis completed", zap.Duration("elapsed", time.Since(start)))
		}
		if updErr := r.store.UpdateJobStatus(bg, jobID, status); updErr != nil {
			log.Warn("status update failed", zap.Error(updErr))
		}
		observability.RecordJobFinished(status)
	}()

	timeout := utils.ParseDuration(spec.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracker := NewTracker(jobID, r.store, r.logger)
	analysis, err = r.pipeline.Analyze(ctx, spec, tracker)
	if err != nil {
		return nil, err
	}

	tracker.StageStarted(StageExport)
	if err := r.store.SaveAnalysis(ctx, jobID, analysis); err != nil {
		err = fmt.Errorf("storing series: %w", err)
		tracker.StageFailed(StageExport, err)
		return nil, err
	}

	targets, err := r.exportTargets(jobID, spec.Export)
	if err != nil {
		tracker.StageFailed(StageExport, err)
		return nil, err
	}
	exported := 0
	for _, res := range NewExportManager(jobID, targets, r.store, r.logger).Export(ctx, analysis) {
		if !res.Success {
			err := fmt.Errorf("%s export to %s: %s", res.Type, res.Path, res.Error)
			tracker.StageFailed(StageExport, err)
			return nil, err
		}
		exported += res.RecordCount
	}
	tracker.StageFinished(StageExport, exported)
	return analysis, nil
}
