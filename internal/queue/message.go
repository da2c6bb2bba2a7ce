package queue

import "time"

// IngestBatchMsg asks the worker to merge the batch stored at BatchKey.
type IngestBatchMsg struct {
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id"`
	BatchKey      string    `json:"batch_key"`
	LinkCaseID    string    `json:"link_case_id,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// IngestCompletedEvent reports the outcome of one merged batch.
type IngestCompletedEvent struct {
	CorrelationID string `json:"correlation_id"`
	LinkCaseID    string `json:"link_case_id,omitempty"`
	Records       int    `json:"records"`
	Merged        int    `json:"merged"`
	Noop          int    `json:"noop"`
	Skipped       int    `json:"skipped"`
	DurationMs    int64  `json:"duration_ms"`
}
