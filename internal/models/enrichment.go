// internal/models/enrichment.go
package models

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobResult is either the completion counts or the failure message.
type JobResult struct {
	EnrichedCount *int   `json:"enrichedCount,omitempty"`
	FailedCount   *int   `json:"failedCount,omitempty"`
	Error         string `json:"error,omitempty"`
}

func CompletedResult(enriched, failed int) *JobResult {
	return &JobResult{EnrichedCount: &enriched, FailedCount: &failed}
}

func FailedResult(msg string) *JobResult {
	return &JobResult{Error: msg}
}

// EnrichmentJob tracks one asynchronous enrichment request.
type EnrichmentJob struct {
	ID         int64      `json:"id"`
	ProductIDs []int64    `json:"productIds"`
	Status     JobStatus  `json:"status"`
	Progress   float64    `json:"progress"`
	Result     *JobResult `json:"result"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
