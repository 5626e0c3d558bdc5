package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job tracks one classification request submitted to the batch provider.
// Status follows the provider's reported state through a fixed mapping;
// the reconciler never invents a status on its own.
type Job struct {
	ID                  uuid.UUID             `db:"id"                    json:"id"`
	UserID              uuid.UUID             `db:"user_id"               json:"user_id"`
	ProviderBatchID     *string               `db:"provider_batch_id"     json:"provider_batch_id,omitempty"`
	Status              string                `db:"status"                json:"status"`
	ProviderState       string                `db:"provider_state"        json:"provider_state,omitempty"`
	Result              *ClassificationResult `db:"result"                json:"result,omitempty"`
	Error               *string               `db:"error"                 json:"error,omitempty"`
	ImageURL            string                `db:"image_url"             json:"image_url,omitempty"`
	ImageName           string                `db:"image_name"            json:"image_name,omitempty"`
	Metadata            json.RawMessage       `db:"metadata"              json:"metadata,omitempty"`
	ProcessingStartedAt *time.Time            `db:"processing_started_at" json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time            `db:"completed_at"          json:"completed_at,omitempty"`
	FailedAt            *time.Time            `db:"failed_at"             json:"failed_at,omitempty"`
	CreatedAt           time.Time             `db:"created_at"            json:"created_at"`
	UpdatedAt           time.Time             `db:"updated_at"            json:"updated_at"`
}

// Active reports whether the job is still eligible for reconciliation.
func (j *Job) Active() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusProcessing
}

// JobStats aggregates recent job counts for the health endpoint.
type JobStats struct {
	Total       int     `json:"total"`
	Queued      int     `json:"queued"`
	Processing  int     `json:"processing"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}
