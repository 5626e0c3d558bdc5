// Package sink records the downstream side effects of a completed batch job:
// the history entry and the in-app notification.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/internal/store"
	"github.com/sandeepmv/binsight/pkg/models"
)

// Sink receives the parsed result of a completed job. Implementations must
// never propagate failures to the caller: a job that completed stays
// completed even when its side effects could not be recorded.
type Sink interface {
	Record(ctx context.Context, job *models.Job, result models.ClassificationResult)
}

// StoreSink writes history entries and notifications through the store.
type StoreSink struct {
	store  store.Store
	logger *slog.Logger
}

func NewStoreSink(s store.Store, logger *slog.Logger) *StoreSink {
	return &StoreSink{store: s, logger: logger}
}

// Record appends a history entry and creates a completion notification for
// the job. Each failure is logged and swallowed independently, so a broken
// history insert does not suppress the notification.
func (s *StoreSink) Record(ctx context.Context, job *models.Job, result models.ClassificationResult) {
	now := time.Now().UTC()

	entry := &models.HistoryEntry{
		ID:        uuid.New(),
		UserID:    job.UserID,
		JobID:     job.ID,
		Result:    result,
		ImageURL:  job.ImageURL,
		ImageName: job.ImageName,
		Metadata:  job.Metadata,
		CreatedAt: now,
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.logger.Error("failed to append history entry",
			"job_id", job.ID,
			"user_id", job.UserID,
			"error", err)
	}

	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    job.UserID,
		Type:      models.NotificationTypeJobCompleted,
		Title:     "Analysis Complete!",
		Message:   "Your waste classification is ready: " + result.ItemName,
		JobID:     job.ID,
		Result:    result,
		CreatedAt: now,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			"job_id", job.ID,
			"user_id", job.UserID,
			"error", err)
	}
}

var _ Sink = (*StoreSink)(nil)
