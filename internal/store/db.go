package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-activity-pipeline/internal/model"
)

// ErrNotFound is returned when a job does not exist
var ErrNotFound = errors.New("not found")

// Store persists jobs, their progress and their results in sqlite
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS job_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		stage TEXT,
		error_message TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS stage_progress (
		job_id TEXT,
		stage TEXT,
		status TEXT,
		started_at DATETIME,
		ended_at DATETIME,
		records INTEGER,
		PRIMARY KEY (job_id, stage)
	);`,
	`CREATE TABLE IF NOT EXISTS hourly_series (
		job_id TEXT,
		sex TEXT,
		subject TEXT,
		hour INTEGER,
		mean REAL,
		rows INTEGER,
		PRIMARY KEY (job_id, sex, subject, hour)
	);`,
	`CREATE TABLE IF NOT EXISTS regressions (
		job_id TEXT,
		sex TEXT,
		subject TEXT,
		slope REAL,
		intercept REAL,
		r REAL,
		n INTEGER,
		PRIMARY KEY (job_id, sex, subject)
	);`,
}

// Open connects to the sqlite file at path and creates missing tables
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveJob stores a new pending job
func (s *Store) SaveJob(ctx context.Context, jobID string, spec model.AnalysisSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, string(specJSON), model.StatusPending, now, now)
	return err
}

// GetJob fetches full job spec and status
func (s *Store) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var specJSON string
	job := &model.Job{ID: jobID}

	err := s.db.QueryRowContext(ctx, `SELECT spec, status, created_at, updated_at FROM jobs WHERE id = ?`, jobID).
		Scan(&specJSON, &job.Status, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(specJSON), &job.Spec); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all jobs, newest first
func (s *Store) ListJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, spec, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var job model.Job
		var specJSON string
		if err := rows.Scan(&job.ID, &specJSON, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specJSON), &job.Spec); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus updates job status
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

// SaveJobError records an error for a job
func (s *Store) SaveJobError(ctx context.Context, jobID, stage string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := s.db.ExecContext(ctx, `INSERT INTO job_errors (job_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		jobID, stage, err.Error(), now)
	return e
}

// GetJobErrors returns the errors of a job in the order they happened
func (s *Store) GetJobErrors(ctx context.Context, jobID string) ([]model.ErrorDetail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, stage, error_message, created_at FROM job_errors WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ErrorDetail{}
	for rows.Next() {
		var e model.ErrorDetail
		if err := rows.Scan(&e.ID, &e.Stage, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveStageProgress upserts the progress row of a stage
func (s *Store) SaveStageProgress(ctx context.Context, p model.StageProgress) error {
	var ended sql.NullTime
	if p.EndedAt != nil {
		ended = sql.NullTime{Time: *p.EndedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_progress (job_id, stage, status, started_at, ended_at, records)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, stage) DO UPDATE SET
			status = excluded.status,
			ended_at = excluded.ended_at,
			records = excluded.records`,
		p.JobID, p.Stage, p.Status, p.StartedAt, ended, p.Records)
	return err
}

// GetStageProgress returns the stage rows of a job, oldest first
func (s *Store) GetStageProgress(ctx context.Context, jobID string) ([]model.StageProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, status, started_at, ended_at, records
		FROM stage_progress WHERE job_id = ? ORDER BY started_at, stage`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.StageProgress{}
	for rows.Next() {
		p := model.StageProgress{JobID: jobID}
		var ended sql.NullTime
		if err := rows.Scan(&p.Stage, &p.Status, &p.StartedAt, &ended, &p.Records); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			p.EndedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveAnalysis replaces the stored series and fits of a job
func (s *Store) SaveAnalysis(ctx context.Context, jobID string, a *model.Analysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hourly_series WHERE job_id = ?`, jobID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM regressions WHERE job_id = ?`, jobID); err != nil {
		return err
	}

	pointStmt, err := tx.PrepareContext(ctx, `INSERT INTO hourly_series (job_id, sex, subject, hour, mean, rows) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	for _, series := range append(append([]model.HourlySeries{}, a.Series...), a.Subjects...) {
		for _, p := range series.Points {
			if _, err := pointStmt.ExecContext(ctx, jobID, string(series.Sex), series.Subject, p.Hour, nullableFloat(p.Mean), p.Rows); err != nil {
				return fmt.Errorf("saving %s hour %d: %w", series.Sex, p.Hour, err)
			}
		}
	}

	for _, r := range a.Regressions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO regressions (job_id, sex, subject, slope, intercept, r, n) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			jobID, string(r.Sex), r.Subject, r.Slope, r.Intercept, r.R, r.N); err != nil {
			return fmt.Errorf("saving regression %s: %w", r.Subject, err)
		}
	}

	return tx.Commit()
}

// GetHourlySeries returns the stored series of a job: cohort averages first,
// then per-subject series, each ordered by hour.
func (s *Store) GetHourlySeries(ctx context.Context, jobID string) ([]model.HourlySeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sex, subject, hour, mean, rows FROM hourly_series
		WHERE job_id = ?
		ORDER BY subject <> '', subject, CASE sex WHEN 'female' THEN 0 ELSE 1 END, hour`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.HourlySeries{}
	for rows.Next() {
		var sex, subject string
		var mean sql.NullFloat64
		var p model.HourlyPoint
		if err := rows.Scan(&sex, &subject, &p.Hour, &mean, &p.Rows); err != nil {
			return nil, err
		}
		p.Mean = math.NaN()
		if mean.Valid {
			p.Mean = mean.Float64
		}

		n := len(out)
		if n == 0 || string(out[n-1].Sex) != sex || out[n-1].Subject != subject {
			out = append(out, model.HourlySeries{Sex: model.Sex(sex), Subject: subject})
			n++
		}
		out[n-1].Points = append(out[n-1].Points, p)
	}
	return out, rows.Err()
}

// GetRegressions returns the stored fits of a job
func (s *Store) GetRegressions(ctx context.Context, jobID string) ([]model.Regression, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sex, subject, slope, intercept, r, n FROM regressions WHERE job_id = ? ORDER BY sex, subject`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Regression{}
	for rows.Next() {
		var r model.Regression
		var sex string
		if err := rows.Scan(&sex, &r.Subject, &r.Slope, &r.Intercept, &r.R, &r.N); err != nil {
			return nil, err
		}
		r.Sex = model.Sex(sex)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
