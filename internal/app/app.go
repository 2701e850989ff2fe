package app

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"go-activity-pipeline/internal/api"
	"go-activity-pipeline/internal/api/handler"
	"go-activity-pipeline/internal/config"
	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/pipeline"
	"go-activity-pipeline/internal/store"
	"go-activity-pipeline/pkg/router"
	"go-activity-pipeline/pkg/utils"
)

// NewLoader builds a table loader from configuration
func NewLoader(cfg *config.Config, logger *zap.Logger) *pipeline.Loader {
	retryCfg := model.DefaultRetryConfig
	retryCfg.Attempts = cfg.Fetch.RetryAttempts

	return pipeline.NewLoader(logger,
		pipeline.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout()}),
		pipeline.WithCache(pipeline.NewTableCache(cfg.Cache.MaxTables, cfg.CacheTTL())),
		pipeline.WithRetryConfig(retryCfg),
	)
}

// App wires the analysis API.
type App struct {
	server  *api.Server
	store   *store.Store
	handler *handler.Handler
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// New constructs the application graph. Jobs run under ctx.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}

	outputs := utils.NewOutputManager(cfg.Output.Dir)
	if err := outputs.EnsureOutputDirExists(); err != nil {
		db.Close()
		return nil, err
	}

	p := pipeline.New(NewLoader(cfg, logger), logger)
	runner := pipeline.NewRunner(p, db, logger,
		pipeline.WithOutputs(outputs),
		pipeline.WithPostgresDSN(cfg.Store.PostgresDSN),
	)

	jobsCtx, cancel := context.WithCancel(ctx)
	h := handler.New(jobsCtx, db, jobRunner{runner: runner, timeout: cfg.Jobs.Timeout}, handler.Defaults{
		Dataset:     cfg.Dataset.Name,
		DataDir:     cfg.Dataset.DataDir,
		AllowRemote: cfg.Fetch.AllowRemote,
	}, logger)

	r := router.New(logger)
	api.RegisterRoutes(r, h)

	return &App{
		server:  api.NewServer(cfg.HTTPAddress(), r, logger, api.WithShutdownTimeout(cfg.ShutdownTimeout())),
		store:   db,
		handler: h,
		cancel:  cancel,
		logger:  logger,
	}, nil
}

// Run serves HTTP until ctx ends, then waits for running jobs.
func (a *App) Run(ctx context.Context) error {
	err := a.server.Run(ctx)
	a.cancel()
	a.handler.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	a.cancel()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

// jobRunner applies the configured job timeout to specs that set none
type jobRunner struct {
	runner  *pipeline.Runner
	timeout string
}

func (j jobRunner) Run(ctx context.Context, jobID string, spec model.AnalysisSpec) (*model.Analysis, error) {
	if spec.Timeout == "" {
		spec.Timeout = j.timeout
	}
	return j.runner.Run(ctx, jobID, spec)
}
