package model

import "time"

// RetryConfig defines retry behavior for remote table fetches
type RetryConfig struct {
	Attempts uint          `json:"attempts"`
	Delay    time.Duration `json:"delay"`
	MaxDelay time.Duration `json:"max_delay"`
}

// DefaultRetryConfig is used when nothing is configured
var DefaultRetryConfig = RetryConfig{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	MaxDelay: 10 * time.Second,
}
