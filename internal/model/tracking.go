package model

import "time"

// Job statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is a persisted analysis run
type Job struct {
	ID        string       `json:"id"`
	Spec      AnalysisSpec `json:"spec"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// StageProgress records one stage of a job
type StageProgress struct {
	JobID     string     `json:"job_id"`
	Stage     string     `json:"stage"`
	Status    string     `json:"status"` // "started", "completed", "failed"
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Records   int        `json:"records"`
}

// ErrorDetail represents an error recorded against a job
type ErrorDetail struct {
	ID        int64     `json:"id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
