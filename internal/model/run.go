package model

import "time"

// RunStatus represents the current state of a fetch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats counts the calls made during a run and their outcomes.
type RunStats struct {
	Calls     int `json:"calls"`
	Successes int `json:"successes"`
	Skips     int `json:"skips"`
	Failures  int `json:"failures"`
	Records   int `json:"records"`
}

// Run is a persisted fetch run. The auth token is never stored.
type Run struct {
	ID         string    `json:"id"`
	Request    Request   `json:"request"`
	Status     RunStatus `json:"status"`
	Stats      RunStats  `json:"stats"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
