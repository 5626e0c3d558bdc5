package sink_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/internal/sink"
	"github.com/sandeepmv/binsight/internal/store/mock"
	"github.com/sandeepmv/binsight/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedJob() *models.Job {
	return &models.Job{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    models.JobStatusCompleted,
		ImageURL:  "https://example.com/bottle.jpg",
		ImageName: "bottle.jpg",
		CreatedAt: time.Now().UTC(),
	}
}

func sampleResult() models.ClassificationResult {
	return models.ClassificationResult{
		ItemName:       "Plastic Bottle",
		Category:       "recyclable",
		Confidence:     0.9,
		Tips:           []string{"Rinse before recycling"},
		AnalysisMethod: models.AnalysisMethodBatch,
	}
}

func TestRecord_WritesHistoryAndNotification(t *testing.T) {
	ms := mock.NewMockStore()
	s := sink.NewStoreSink(ms, discardLogger())
	job := completedJob()
	result := sampleResult()

	s.Record(context.Background(), job, result)

	require.Len(t, ms.History, 1)
	entry := ms.History[0]
	assert.Equal(t, job.ID, entry.JobID)
	assert.Equal(t, job.UserID, entry.UserID)
	assert.Equal(t, "Plastic Bottle", entry.Result.ItemName)
	assert.Equal(t, job.ImageURL, entry.ImageURL)

	require.Len(t, ms.Notifications, 1)
	n := ms.Notifications[0]
	assert.Equal(t, models.NotificationTypeJobCompleted, n.Type)
	assert.Equal(t, "Analysis Complete!", n.Title)
	assert.Equal(t, "Your waste classification is ready: Plastic Bottle", n.Message)
	assert.Equal(t, job.ID, n.JobID)
}

func TestRecord_HistoryFailureStillNotifies(t *testing.T) {
	ms := mock.NewMockStore()
	ms.AppendHistoryFunc = func(ctx context.Context, entry *models.HistoryEntry) error {
		return errors.New("history table unavailable")
	}
	s := sink.NewStoreSink(ms, discardLogger())

	s.Record(context.Background(), completedJob(), sampleResult())

	assert.Empty(t, ms.History)
	assert.Len(t, ms.Notifications, 1)
}

func TestRecord_NotificationFailureIsSwallowed(t *testing.T) {
	ms := mock.NewMockStore()
	ms.CreateNotifFunc = func(ctx context.Context, n *models.Notification) error {
		return errors.New("notification insert failed")
	}
	s := sink.NewStoreSink(ms, discardLogger())

	// Must not panic or propagate anything.
	s.Record(context.Background(), completedJob(), sampleResult())

	assert.Len(t, ms.History, 1)
	assert.Empty(t, ms.Notifications)
}
