// Package handler contains the HTTP handlers for the binsight API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/sandeepmv/binsight/internal/api/middleware"
	"github.com/sandeepmv/binsight/internal/api/response"
	"github.com/sandeepmv/binsight/internal/cache"
	"github.com/sandeepmv/binsight/internal/reconcile"
	"github.com/sandeepmv/binsight/internal/store"
	"github.com/sandeepmv/binsight/pkg/models"
)

// Reconciler is the on-demand reconciliation surface the process handler
// depends on.
type Reconciler interface {
	RunSingle(ctx context.Context, jobID, userID uuid.UUID) (string, error)
}

// ReconcileEnqueuer requests an immediate reconciliation pass. Best effort;
// the scheduled passes cover any enqueue failure.
type ReconcileEnqueuer func(ctx context.Context) error

// NewCreateJobHandler returns the handler for POST /api/v1/jobs. The batch is
// assumed to be already submitted to the provider; this registers the job for
// reconciliation.
func NewCreateJobHandler(s store.Store, enqueue ReconcileEnqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req struct {
			ImageURL        string          `json:"image_url"`
			ImageName       string          `json:"image_name"`
			ProviderBatchID string          `json:"provider_batch_id"`
			Metadata        json.RawMessage `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ImageURL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_ARGUMENT", "image_url is required", nil)
			return
		}
		if req.ProviderBatchID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_ARGUMENT", "provider_batch_id is required", nil)
			return
		}

		now := time.Now().UTC()
		job := &models.Job{
			ID:              uuid.New(),
			UserID:          userID,
			ProviderBatchID: &req.ProviderBatchID,
			Status:          models.JobStatusQueued,
			ImageURL:        req.ImageURL,
			ImageName:       req.ImageName,
			Metadata:        req.Metadata,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.CreateJob(r.Context(), job); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
			return
		}

		if enqueue != nil {
			if err := enqueue(r.Context()); err != nil {
				slog.Warn("failed to enqueue reconcile pass", "job_id", job.ID, "error", err)
			}
		}

		response.Created(w, job)
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID format", nil)
			return
		}

		job, err := s.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch job", nil)
			return
		}
		// Other users' jobs are indistinguishable from missing ones.
		if job.UserID != userID {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewJobStatusHandler returns the handler for GET /api/v1/jobs/{jobID}/status.
// It answers from the cache mirror when possible and falls back to the store.
func NewJobStatusHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID format", nil)
			return
		}

		if status, found, err := c.GetJobStatus(r.Context(), jobID); err == nil && found {
			response.JSON(w, map[string]any{
				"job_id": jobID,
				"status": status,
				"source": "cache",
			})
			return
		}

		job, err := s.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch job", nil)
			return
		}
		if job.UserID != userID {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}

		response.JSON(w, map[string]any{
			"job_id": job.ID,
			"status": job.Status,
			"source": "store",
		})
	}
}

// NewProcessJobHandler returns the handler for POST /api/v1/jobs/{jobID}/process,
// the on-demand reconciliation trigger for one job.
func NewProcessJobHandler(rec Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Invalid job ID format", nil)
			return
		}

		status, err := rec.RunSingle(r.Context(), jobID, userID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			case errors.Is(err, reconcile.ErrPermissionDenied):
				response.Error(w, http.StatusForbidden, "PERMISSION_DENIED", "Job belongs to another user", nil)
			case errors.Is(err, reconcile.ErrMissingProviderID):
				response.Error(w, http.StatusConflict, "FAILED_PRECONDITION", "Job has no provider batch id", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, map[string]any{
			"success": true,
			"status":  status,
			"message": "Job processed",
		})
	}
}
