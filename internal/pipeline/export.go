package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/store"
	"go-activity-pipeline/pkg/utils"
)

// SeriesSink persists the series and fits of an analysis
type SeriesSink interface {
	SaveAnalysis(ctx context.Context, jobID string, a *model.Analysis) error
}

// ExportManager handles export of a finished analysis
type ExportManager struct {
	JobID      string
	ExportSpec *model.Export
	sqlite     SeriesSink
	logger     *zap.Logger
}

// NewExportManager creates an export manager; sqlite backs the "sqlite" DB target
func NewExportManager(jobID string, spec *model.Export, sqlite SeriesSink, logger *zap.Logger) *ExportManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportManager{
		JobID:      jobID,
		ExportSpec: spec,
		sqlite:     sqlite,
		logger:     logger,
	}
}

// Export writes the analysis to every configured target
func (em *ExportManager) Export(ctx context.Context, a *model.Analysis) []model.ExportResult {
	if em.ExportSpec == nil {
		return nil
	}

	var results []model.ExportResult
	if em.ExportSpec.File != "" {
		results = append(results, em.exportToFile(a))
	}
	if em.ExportSpec.DB != "" {
		results = append(results, em.exportToDatabase(ctx, a))
	}

	for _, r := range results {
		if r.Success {
			em.logger.Info("export completed",
				zap.String("type", r.Type),
				zap.String("path", r.Path),
				zap.Int("records", r.RecordCount),
			)
		} else {
			em.logger.Error("export failed", zap.String("type", r.Type), zap.String("error", r.Error))
		}
	}
	return results
}

// exportToFile writes CSV or JSON depending on the file extension
func (em *ExportManager) exportToFile(a *model.Analysis) model.ExportResult {
	path := em.ExportSpec.File
	result := model.ExportResult{Type: "file", Path: path, Timestamp: time.Now().UTC()}

	file, err := createFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	switch utils.GetFileType(path) {
	case "json":
		result.RecordCount, err = em.exportToJSON(file, a)
	default:
		result.RecordCount, err = em.exportToCSV(file, a)
	}
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err != nil {
		// drop partial output
		if rmErr := os.Remove(path); rmErr != nil {
			em.logger.Warn("removing partial export failed", zap.String("path", path), zap.Error(rmErr))
		}
		result.Error = err.Error()
		return result
	}

	result.Success = true
	if size, err := utils.GetFileSize(path); err == nil {
		result.Bytes = size
	}
	return result
}

// CSVHeader is the column layout of exported series files
var CSVHeader = []string{"sex", "subject", "hour", "mean", "rows"}

// exportToCSV writes one row per series point; undefined means are empty cells
func (em *ExportManager) exportToCSV(w io.Writer, a *model.Analysis) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	count := 0
	for _, s := range allSeries(a) {
		for _, p := range s.Points {
			mean := ""
			if p.Defined() {
				mean = strconv.FormatFloat(p.Mean, 'g', -1, 64)
			}
			row := []string{string(s.Sex), s.Subject, strconv.Itoa(p.Hour), mean, strconv.Itoa(p.Rows)}
			if err := writer.Write(row); err != nil {
				return count, fmt.Errorf("failed to write row: %w", err)
			}
			count++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, fmt.Errorf("failed to flush csv: %w", err)
	}
	return count, nil
}

// exportToJSON writes the analysis with export metadata
func (em *ExportManager) exportToJSON(w io.Writer, a *model.Analysis) (int, error) {
	count := pointCount(a)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"job_id":       em.JobID,
			"exported_at":  time.Now().UTC(),
			"record_count": count,
			"export_type":  "hourly_series",
		},
		"data": a,
	}
	if err := encoder.Encode(exportData); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return count, nil
}

// exportToDatabase stores the analysis in sqlite or, for a postgres DSN, in Postgres
func (em *ExportManager) exportToDatabase(ctx context.Context, a *model.Analysis) model.ExportResult {
	target := em.ExportSpec.DB
	result := model.ExportResult{Type: "sqlite", Path: target, Timestamp: time.Now().UTC()}

	var err error
	switch {
	case isPostgresDSN(target):
		result.Type = "postgres"
		result.Path = redactDSN(target)
		err = em.exportToPostgres(ctx, target, a)
	case strings.EqualFold(target, "sqlite"):
		if em.sqlite == nil {
			err = fmt.Errorf("no sqlite store configured")
			break
		}
		err = em.sqlite.SaveAnalysis(ctx, em.JobID, a)
	default:
		err = fmt.Errorf("unsupported database target %q", target)
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.RecordCount = pointCount(a)
	return result
}

func (em *ExportManager) exportToPostgres(ctx context.Context, dsn string, a *model.Analysis) error {
	sink, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.SaveAnalysis(ctx, em.JobID, a)
}

func isPostgresDSN(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// redactDSN drops credentials so the target can be logged and stored
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

func allSeries(a *model.Analysis) []model.HourlySeries {
	out := make([]model.HourlySeries, 0, len(a.Series)+len(a.Subjects))
	out = append(out, a.Series...)
	return append(out, a.Subjects...)
}

func pointCount(a *model.Analysis) int {
	n := 0
	for _, s := range allSeries(a) {
		n += len(s.Points)
	}
	return n
}
