package model

import "time"

// Refresh job status constants
const (
	JobRunning        = "RUNNING"
	JobSucceeded      = "SUCCEEDED"
	JobPartialFailure = "PARTIAL_FAILURE"
	JobFailed         = "FAILED"
)

// RefreshJob records one invocation of the scraping pipeline for one or
// more sources. Once Status reaches a terminal value the record is never
// mutated again.
type RefreshJob struct {
	JobID            string     `json:"job_id"`
	Sources          []string   `json:"sources"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Status           string     `json:"status"`
	SourcesAttempted int        `json:"sources_attempted"`
	SourcesSucceeded int        `json:"sources_succeeded"`
	ItemsWritten     int        `json:"items_written"`
}

// Terminal reports whether the job has finished.
func (j RefreshJob) Terminal() bool {
	return j.Status != JobRunning
}

// ResolveStatus maps the per-source outcome counts of a finished job to
// its terminal status: all succeeded, some succeeded, or none did.
func ResolveStatus(attempted, succeeded int) string {
	switch {
	case attempted == 0 || succeeded == attempted:
		return JobSucceeded
	case succeeded > 0:
		return JobPartialFailure
	default:
		return JobFailed
	}
}
