package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepmv/binsight/internal/provider"
	providermock "github.com/sandeepmv/binsight/internal/provider/mock"
	"github.com/sandeepmv/binsight/internal/queue"
	"github.com/sandeepmv/binsight/internal/reconcile"
	"github.com/sandeepmv/binsight/internal/sink"
	storemock "github.com/sandeepmv/binsight/internal/store/mock"
	"github.com/sandeepmv/binsight/internal/worker"
	"github.com/sandeepmv/binsight/pkg/models"
)

func newTestProcessor(ms *storemock.MockStore) *worker.Processor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := reconcile.NewCoordinator(ms, providermock.NewStaticClient(provider.StateInProgress), nil,
		sink.NewStoreSink(ms, logger), logger, 2, 30*time.Minute)
	return worker.NewProcessor(coord, logger)
}

func TestHandleReconcile_RunsPass(t *testing.T) {
	ms := storemock.NewMockStore()
	batchID := "batch_1"
	ms.AddJob(&models.Job{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		ProviderBatchID: &batchID,
		Status:          models.JobStatusQueued,
	})
	mux := newTestProcessor(ms).Handler()

	err := mux.ProcessTask(context.Background(), asynq.NewTask(queue.ReconcileTask, nil))
	require.NoError(t, err)
	require.Len(t, ms.UpdateCalls, 1)
	assert.Equal(t, models.JobStatusProcessing, ms.UpdateCalls[0].Snapshot.Status)
}

func TestHandleReconcile_StoreOutageSurfacesForRetry(t *testing.T) {
	ms := storemock.NewMockStore()
	ms.ListActiveJobsFunc = func(ctx context.Context) ([]*models.Job, error) {
		return nil, errors.New("database outage")
	}
	mux := newTestProcessor(ms).Handler()

	err := mux.ProcessTask(context.Background(), asynq.NewTask(queue.ReconcileTask, nil))
	assert.Error(t, err)
}
