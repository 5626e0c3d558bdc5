// Package models contains shared data models used across the binsight codebase.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// AnalysisMethodBatch marks a result parsed from a normal provider response.
	AnalysisMethodBatch = "batch_ai"
	// AnalysisMethodBatchFallback marks a degraded result produced when the
	// provider response could not be parsed.
	AnalysisMethodBatchFallback = "batch_ai_fallback"
)

// ClassificationResult is the parsed output of one completed batch job.
// Created once by the parser and immutable afterward; copies are embedded in
// the job record, its history entry, and its notification payload.
type ClassificationResult struct {
	ItemName             string   `json:"item_name"`
	Category             string   `json:"category"`
	Confidence           float64  `json:"confidence"`
	DisposalInstructions string   `json:"disposal_instructions"`
	EnvironmentalImpact  string   `json:"environmental_impact"`
	Tips                 []string `json:"tips"`
	AnalysisMethod       string   `json:"analysis_method"`
}

// HistoryEntry is one record in a user's classification history, combining a
// result with the image metadata carried through the originating job.
type HistoryEntry struct {
	ID        uuid.UUID            `db:"id"         json:"id"`
	UserID    uuid.UUID            `db:"user_id"    json:"user_id"`
	JobID     uuid.UUID            `db:"job_id"     json:"job_id"`
	Result    ClassificationResult `db:"result"     json:"result"`
	ImageURL  string               `db:"image_url"  json:"image_url,omitempty"`
	ImageName string               `db:"image_name" json:"image_name,omitempty"`
	Metadata  json.RawMessage      `db:"metadata"   json:"metadata,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationTypeJobCompleted is the only notification type emitted today.
const NotificationTypeJobCompleted = "batch_job_completed"

// Notification is an in-app notification record emitted when a batch job
// completes.
type Notification struct {
	ID        uuid.UUID            `db:"id"         json:"id"`
	UserID    uuid.UUID            `db:"user_id"    json:"user_id"`
	Type      string               `db:"type"       json:"type"`
	Title     string               `db:"title"      json:"title"`
	Message   string               `db:"message"    json:"message"`
	JobID     uuid.UUID            `db:"job_id"     json:"job_id"`
	Result    ClassificationResult `db:"result"     json:"result"`
	Read      bool                 `db:"read"       json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
