// Package queue defines the asynq task types exchanged between the API server
// and the reconciliation worker.
package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ReconcileTask triggers one reconciliation pass over all active jobs.
	// It carries no payload; the pass reads its work list from the store.
	ReconcileTask = "batch:reconcile"
)

// EnqueueReconcile enqueues an immediate reconciliation pass, on top of the
// scheduled ones. Used after job submission so a fast batch is picked up
// before the next cron tick.
func EnqueueReconcile(ctx context.Context, client *asynq.Client) error {
	task := asynq.NewTask(ReconcileTask, nil)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue reconcile task: %w", err)
	}
	return nil
}
