// Package worker runs reconciliation passes off the asynq queue.
package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sandeepmv/binsight/internal/queue"
	"github.com/sandeepmv/binsight/internal/reconcile"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	coordinator *reconcile.Coordinator
	logger      *slog.Logger
}

func NewProcessor(coordinator *reconcile.Coordinator, logger *slog.Logger) *Processor {
	return &Processor{coordinator: coordinator, logger: logger}
}

// Handler registers the reconcile task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ReconcileTask, p.handleReconcile)
	return mux
}

func (p *Processor) handleReconcile(ctx context.Context, _ *asynq.Task) error {
	summary, err := p.coordinator.RunPass(ctx)
	if err != nil {
		p.logger.Error("reconciliation pass failed", "error", err)
		return err
	}
	p.logger.Info("reconciliation pass finished",
		"active", summary.Active,
		"transitioned", summary.Transitioned,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"stalled", summary.Stalled,
		"unmatched", summary.Unmatched)
	return nil
}
