package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-activity-pipeline/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS hourly_series (
	job_id  TEXT NOT NULL,
	sex     TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	hour    INTEGER NOT NULL,
	mean    DOUBLE PRECISION,
	rows    INTEGER NOT NULL,
	PRIMARY KEY (job_id, sex, subject, hour)
);
CREATE TABLE IF NOT EXISTS regressions (
	job_id    TEXT NOT NULL,
	sex       TEXT NOT NULL,
	subject   TEXT NOT NULL,
	slope     DOUBLE PRECISION,
	intercept DOUBLE PRECISION,
	r         DOUBLE PRECISION,
	n         INTEGER NOT NULL,
	PRIMARY KEY (job_id, sex, subject)
);`

// PostgresSink exports analysis results to Postgres
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the result tables
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close releases the pool
func (p *PostgresSink) Close() {
	p.pool.Close()
}

// SaveAnalysis replaces the series and fits of a job in one transaction
func (p *PostgresSink) SaveAnalysis(ctx context.Context, jobID string, a *model.Analysis) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM hourly_series WHERE job_id = $1`, jobID)
		batch.Queue(`DELETE FROM regressions WHERE job_id = $1`, jobID)

		for _, series := range append(append([]model.HourlySeries{}, a.Series...), a.Subjects...) {
			for _, pt := range series.Points {
				var mean *float64
				if pt.Defined() {
					v := pt.Mean
					mean = &v
				}
				batch.Queue(`INSERT INTO hourly_series (job_id, sex, subject, hour, mean, rows) VALUES ($1, $2, $3, $4, $5, $6)`,
					jobID, string(series.Sex), series.Subject, pt.Hour, mean, pt.Rows)
			}
		}
		for _, r := range a.Regressions {
			batch.Queue(`INSERT INTO regressions (job_id, sex, subject, slope, intercept, r, n) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				jobID, string(r.Sex), r.Subject, r.Slope, r.Intercept, r.R, r.N)
		}

		return tx.SendBatch(ctx, batch).Close()
	})
}
