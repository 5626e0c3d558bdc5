package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultUser(ctx context.Context) (*models.User, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListActiveJobs(ctx context.Context) ([]*models.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error
	JobStats(ctx context.Context, since time.Time) (*models.JobStats, error)

	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, filter ListFilter) ([]*models.HistoryEntry, int, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, filter ListFilter) ([]*models.Notification, int, error)
}

// ListFilter paginates per-user listings.
type ListFilter struct {
	UserID uuid.UUID
	Page   int
	Limit  int
}

// jobUpdateParams collects the fields of a partial job update. Each set field
// is written last-write-wins; unset fields are left untouched.
type jobUpdateParams struct {
	Status              *string
	ProviderState       *string
	Result              *models.ClassificationResult
	ErrorMessage        *string
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	FailedAt            *time.Time
}

type JobUpdateOption func(*jobUpdateParams)

func WithStatus(status string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Status = &status
	}
}

func WithProviderState(state string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ProviderState = &state
	}
}

func WithResult(result models.ClassificationResult) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Result = &result
	}
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithProcessingStartedAt(t time.Time) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ProcessingStartedAt = &t
	}
}

func WithCompletedAt(t time.Time) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.CompletedAt = &t
	}
}

func WithFailedAt(t time.Time) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.FailedAt = &t
	}
}

// ApplyJobUpdate applies update options to an in-memory job. In-memory Store
// implementations use this so the options mean the same thing they mean in
// PostgresStore's partial UPDATE.
func ApplyJobUpdate(job *models.Job, opts ...JobUpdateOption) {
	var p jobUpdateParams
	for _, opt := range opts {
		opt(&p)
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.ProviderState != nil {
		job.ProviderState = *p.ProviderState
	}
	if p.Result != nil {
		job.Result = p.Result
	}
	if p.ErrorMessage != nil {
		job.Error = p.ErrorMessage
	}
	if p.ProcessingStartedAt != nil {
		job.ProcessingStartedAt = p.ProcessingStartedAt
	}
	if p.CompletedAt != nil {
		job.CompletedAt = p.CompletedAt
	}
	if p.FailedAt != nil {
		job.FailedAt = p.FailedAt
	}
}
