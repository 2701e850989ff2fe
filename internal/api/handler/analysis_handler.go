package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/store"
)

// AnalysesPrefix is the collection path all job routes hang off
const AnalysesPrefix = "/api/v1/analyses"

// JobStore is the persistence the handlers read and write
type JobStore interface {
	Ping(ctx context.Context) error
	SaveJob(ctx context.Context, jobID string, spec model.AnalysisSpec) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context) ([]model.Job, error)
	GetJobErrors(ctx context.Context, jobID string) ([]model.ErrorDetail, error)
	GetStageProgress(ctx context.Context, jobID string) ([]model.StageProgress, error)
	GetHourlySeries(ctx context.Context, jobID string) ([]model.HourlySeries, error)
	GetRegressions(ctx context.Context, jobID string) ([]model.Regression, error)
}

// JobRunner executes a saved job
type JobRunner interface {
	Run(ctx context.Context, jobID string, spec model.AnalysisSpec) (*model.Analysis, error)
}

// Defaults fill in the dataset of requests that name none. DataDir also
// bounds which local tables a request may read.
type Defaults struct {
	Dataset     string
	DataDir     string
	AllowRemote bool // accept http(s) sources
}

// Handler serves the analysis API
type Handler struct {
	ctx      context.Context
	store    JobStore
	runner   JobRunner
	defaults Defaults
	logger   *zap.Logger
	jobs     sync.WaitGroup
}

// New creates the handlers. Jobs started through the API run under ctx and
// stop when it is cancelled.
func New(ctx context.Context, store JobStore, runner JobRunner, defaults Defaults, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ctx: ctx, store: store, runner: runner, defaults: defaults, logger: logger}
}

// Wait blocks until every started job has finished
func (h *Handler) Wait() {
	h.jobs.Wait()
}

// CreateAnalysis creates and starts an analysis job
// @Summary Create a new analysis
// @Description Create and start an hourly activity analysis with the provided configuration
// @Tags analyses
// @Accept json
// @Produce json
// @Param analysis body model.AnalysisSpec true "Analysis configuration"
// @Success 202 {object} map[string]interface{} "Analysis created"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 403 {object} map[string]interface{} "Source outside the data directory or remote fetching disabled"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses [post]
func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var spec model.AnalysisSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(spec.Dataset) == "" {
		spec.Dataset = h.defaults.Dataset
	}
	if err := spec.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.confineSources(&spec); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errSourceNotAllowed) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	jobID := uuid.New().String()
	if err := h.store.SaveJob(r.Context(), jobID, spec); err != nil {
		h.logger.Error("saving job failed", zap.Error(err))
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		// the runner records the failure against the job
		_, _ = h.runner.Run(h.ctx, jobID, spec)
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "Analysis created successfully",
		"jobID":     jobID,
		"status":    model.StatusPending,
		"createdAt": time.Now().UTC(),
	})
}

// ListAnalyses retrieves all analysis jobs
// @Summary List all analyses
// @Description Get a list of all analysis jobs with their current status
// @Tags analyses
// @Produce json
// @Success 200 {array} model.Job "List of analyses"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses [get]
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.ListJobs(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch analyses", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetAnalysis retrieves one analysis job
// @Summary Get analysis
// @Description Retrieve the spec and status of an analysis job
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} model.Job "Analysis details"
// @Failure 400 {object} map[string]interface{} "Invalid analysis ID"
// @Failure 404 {object} map[string]interface{} "Analysis not found"
// @Router /analyses/{id} [get]
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r, "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetAnalysisSeries retrieves the stored hourly series of a job
// @Summary Get hourly series
// @Description Retrieve the hourly mean activity series and regressions of a finished analysis
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]interface{} "Hourly series"
// @Failure 404 {object} map[string]interface{} "Analysis not found"
// @Failure 409 {object} map[string]interface{} "Analysis not completed"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/series [get]
func (h *Handler) GetAnalysisSeries(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r, "/series")
	if !ok {
		return
	}
	if job.Status != model.StatusCompleted {
		http.Error(w, "Analysis is "+job.Status, http.StatusConflict)
		return
	}

	series, err := h.store.GetHourlySeries(r.Context(), job.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve series", http.StatusInternalServerError)
		return
	}
	regressions, err := h.store.GetRegressions(r.Context(), job.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve regressions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":      job.ID,
		"series":      series,
		"regressions": regressions,
	})
}

// GetAnalysisErrors retrieves errors for a job
// @Summary Get analysis errors
// @Description Retrieve all errors recorded while the analysis ran
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]interface{} "Analysis errors"
// @Failure 404 {object} map[string]interface{} "Analysis not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/errors [get]
func (h *Handler) GetAnalysisErrors(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r, "/errors")
	if !ok {
		return
	}
	errs, err := h.store.GetJobErrors(r.Context(), job.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.ID,
		"errors": errs,
		"count":  len(errs),
	})
}

// GetAnalysisProgress retrieves stage progress for a job
// @Summary Get analysis progress
// @Description Retrieve the per-stage progress of an analysis
// @Tags analyses
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]interface{} "Stage progress"
// @Failure 404 {object} map[string]interface{} "Analysis not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /analyses/{id}/progress [get]
func (h *Handler) GetAnalysisProgress(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r, "/progress")
	if !ok {
		return
	}
	stages, err := h.store.GetStageProgress(r.Context(), job.ID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
		"stages": stages,
	})
}

// Health reports whether the store is reachable
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Store unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookupJob extracts the job id between the collection prefix and suffix
// and loads the job, writing the error response itself when it fails.
func (h *Handler) lookupJob(w http.ResponseWriter, r *http.Request, suffix string) (*model.Job, bool) {
	jobID, ok := jobIDFromPath(r.URL.Path, suffix)
	if !ok {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return nil, false
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("loading job failed", zap.String("job_id", jobID), zap.Error(err))
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	return job, true
}

func jobIDFromPath(path, suffix string) (string, bool) {
	prefix := AnalysesPrefix + "/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) || len(path) <= len(prefix)+len(suffix) {
		return "", false
	}
	jobID := path[len(prefix) : len(path)-len(suffix)]
	if jobID == "" || strings.Contains(jobID, "/") {
		return "", false
	}
	return jobID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
