// Package reconcile drives the batch job lifecycle: it polls the provider for
// every active job, maps provider states onto job statuses, and ingests the
// results of completed batches.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepmv/binsight/internal/cache"
	"github.com/sandeepmv/binsight/internal/classify"
	"github.com/sandeepmv/binsight/internal/provider"
	"github.com/sandeepmv/binsight/internal/sink"
	"github.com/sandeepmv/binsight/internal/store"
	"github.com/sandeepmv/binsight/pkg/models"
)

var (
	// ErrPermissionDenied is returned by RunSingle when the requesting user
	// does not own the job.
	ErrPermissionDenied = errors.New("job belongs to another user")
	// ErrMissingProviderID is returned by RunSingle when the job was never
	// assigned a provider batch id and can therefore never progress.
	ErrMissingProviderID = errors.New("job has no provider batch id")

	errNoMatchingLine = errors.New("no output line matched the job")
)

// PassSummary reports what one reconciliation pass did.
type PassSummary struct {
	Active       int `json:"active"`
	Transitioned int `json:"transitioned"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Stalled      int `json:"stalled"`
	Unmatched    int `json:"unmatched"`
}

type passCounters struct {
	transitioned atomic.Int64
	completed    atomic.Int64
	failed       atomic.Int64
	stalled      atomic.Int64
	unmatched    atomic.Int64
}

// Coordinator reconciles active jobs against the batch provider.
type Coordinator struct {
	store       store.Store
	provider    provider.Client
	cache       cache.Cache
	sink        sink.Sink
	logger      *slog.Logger
	concurrency int
	statusTTL   time.Duration
}

func NewCoordinator(s store.Store, p provider.Client, c cache.Cache, snk sink.Sink, logger *slog.Logger, concurrency int, statusTTL time.Duration) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		store:       s,
		provider:    p,
		cache:       c,
		sink:        snk,
		logger:      logger,
		concurrency: concurrency,
		statusTTL:   statusTTL,
	}
}

// RunPass reconciles every active job once. Jobs are processed concurrently
// and independently; one job's failure never aborts the pass. The only error
// RunPass itself returns is a failure to list active jobs.
func (c *Coordinator) RunPass(ctx context.Context) (*PassSummary, error) {
	jobs, err := c.store.ListActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active jobs: %w", err)
	}

	summary := &PassSummary{Active: len(jobs)}
	if len(jobs) == 0 {
		return summary, nil
	}

	counters := &passCounters{}
	g := &errgroup.Group{}
	g.SetLimit(c.concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			c.reconcileJob(ctx, job, counters)
			return nil
		})
	}
	// Per-job funcs never return an error.
	_ = g.Wait()

	summary.Transitioned = int(counters.transitioned.Load())
	summary.Completed = int(counters.completed.Load())
	summary.Failed = int(counters.failed.Load())
	summary.Stalled = int(counters.stalled.Load())
	summary.Unmatched = int(counters.unmatched.Load())
	return summary, nil
}

// RunSingle reconciles one job on demand and returns its resulting status.
// Unlike RunPass, precondition failures are surfaced to the caller instead of
// being written to the job.
func (c *Coordinator) RunSingle(ctx context.Context, jobID, userID uuid.UUID) (string, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.UserID != userID {
		return "", ErrPermissionDenied
	}
	if !job.Active() {
		// Terminal jobs are left alone; re-ingesting would duplicate the
		// history entry and notification.
		return job.Status, nil
	}
	if job.ProviderBatchID == nil || *job.ProviderBatchID == "" {
		return "", ErrMissingProviderID
	}

	c.reconcileJob(ctx, job, &passCounters{})

	updated, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return updated.Status, nil
}

// reconcileJob performs one reconciliation attempt for one job. All failures
// are contained here: they end up either on the job record or in the log.
func (c *Coordinator) reconcileJob(ctx context.Context, job *models.Job, counters *passCounters) {
	logger := c.logger.With("job_id", job.ID, "status", job.Status)

	if job.ProviderBatchID == nil || *job.ProviderBatchID == "" {
		logger.Warn("job has no provider batch id, cannot progress")
		counters.stalled.Add(1)
		return
	}

	status, err := c.provider.GetStatus(ctx, *job.ProviderBatchID)
	if err != nil {
		logger.Error("provider status check failed", "error", err)
		c.markFailed(ctx, job, job.ProviderState, err.Error())
		counters.failed.Add(1)
		return
	}

	mapped, known := mapState(status.State)
	if !known {
		logger.Warn("unknown provider state, leaving job untouched", "provider_state", status.State)
		return
	}

	switch mapped {
	case models.JobStatusCompleted:
		if status.OutputFileID == "" {
			logger.Warn("batch completed without an output file")
			counters.unmatched.Add(1)
			return
		}
		if err := c.ingest(ctx, job, status); err != nil {
			if errors.Is(err, errNoMatchingLine) {
				logger.Warn("no output line matched job correlation id",
					"output_file_id", status.OutputFileID)
				counters.unmatched.Add(1)
				return
			}
			logger.Error("result ingestion failed", "error", err)
			c.markFailed(ctx, job, status.State, "processing results: "+err.Error())
			counters.failed.Add(1)
			return
		}
		counters.transitioned.Add(1)
		counters.completed.Add(1)

	case models.JobStatusFailed:
		msg := status.ErrorText()
		if msg == "" {
			msg = "batch processing failed"
		}
		c.markFailed(ctx, job, status.State, msg)
		counters.transitioned.Add(1)
		counters.failed.Add(1)

	default:
		if mapped == job.Status && status.State == job.ProviderState {
			return
		}
		opts := []store.JobUpdateOption{
			store.WithStatus(mapped),
			store.WithProviderState(status.State),
		}
		if mapped == models.JobStatusProcessing && job.ProcessingStartedAt == nil {
			opts = append(opts, store.WithProcessingStartedAt(time.Now().UTC()))
		}
		if err := c.store.UpdateJob(ctx, job.ID, opts...); err != nil {
			logger.Error("failed to persist job transition", "error", err, "new_status", mapped)
			return
		}
		if mapped != job.Status {
			counters.transitioned.Add(1)
		}
		c.mirrorStatus(ctx, job.ID, mapped)
	}
}

// ingest downloads the batch output, finds this job's line, parses it, and
// persists the completed job plus its side effects.
func (c *Coordinator) ingest(ctx context.Context, job *models.Job, status *provider.BatchStatus) error {
	output, err := c.provider.FetchOutput(ctx, status.OutputFileID)
	if err != nil {
		return fmt.Errorf("fetching output: %w", err)
	}

	line, ok := classify.FindLine(output, classify.CorrelationID(job.ID))
	if !ok {
		return errNoMatchingLine
	}

	result := classify.Parse(line)
	if err := c.store.UpdateJob(ctx, job.ID,
		store.WithStatus(models.JobStatusCompleted),
		store.WithProviderState(status.State),
		store.WithResult(result),
		store.WithCompletedAt(time.Now().UTC()),
	); err != nil {
		return fmt.Errorf("persisting result: %w", err)
	}

	c.mirrorStatus(ctx, job.ID, models.JobStatusCompleted)
	c.sink.Record(ctx, job, result)
	return nil
}

// markFailed writes the terminal failed state. Persistence errors here are
// logged only; the next pass will retry since the job is still active.
func (c *Coordinator) markFailed(ctx context.Context, job *models.Job, providerState, msg string) {
	opts := []store.JobUpdateOption{
		store.WithStatus(models.JobStatusFailed),
		store.WithErrorMessage(msg),
		store.WithFailedAt(time.Now().UTC()),
	}
	if providerState != "" {
		opts = append(opts, store.WithProviderState(providerState))
	}
	if err := c.store.UpdateJob(ctx, job.ID, opts...); err != nil {
		c.logger.Error("failed to persist failed state", "job_id", job.ID, "error", err)
		return
	}
	c.mirrorStatus(ctx, job.ID, models.JobStatusFailed)
}

// mirrorStatus writes the job's status into the cache for cheap status polls.
// Cache failures are logged and otherwise ignored.
func (c *Coordinator) mirrorStatus(ctx context.Context, jobID uuid.UUID, status string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJobStatus(ctx, jobID, status, c.statusTTL); err != nil {
		c.logger.Warn("failed to mirror job status to cache", "job_id", jobID, "error", err)
	}
}

// mapState translates a provider batch state into a job status. The second
// return value is false for states the mapping does not know, which leave the
// job untouched until the provider reports something recognizable.
func mapState(state string) (string, bool) {
	switch state {
	case provider.StateValidating, provider.StateQueued:
		return models.JobStatusQueued, true
	case provider.StateInProgress, provider.StateFinalizing:
		return models.JobStatusProcessing, true
	case provider.StateCompleted:
		return models.JobStatusCompleted, true
	case provider.StateFailed, provider.StateExpired, provider.StateCancelled:
		return models.JobStatusFailed, true
	default:
		return "", false
	}
}
