// Package mock provides a configurable in-memory Store for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepmv/binsight/internal/store"
	"github.com/sandeepmv/binsight/pkg/models"
)

// UpdateCall records one UpdateJob invocation with its resolved fields.
type UpdateCall struct {
	JobID    uuid.UUID
	Snapshot models.Job
}

// MockStore implements store.Store with overridable function fields. Any nil
// field falls back to an in-memory default backed by the Jobs map, so tests
// only configure the behavior they care about.
type MockStore struct {
	mu sync.Mutex

	Jobs          map[uuid.UUID]*models.Job
	History       []*models.HistoryEntry
	Notifications []*models.Notification

	PingFunc             func(ctx context.Context) error
	GetDefaultUserFunc   func(ctx context.Context) (*models.User, error)
	ListActiveJobsFunc   func(ctx context.Context) ([]*models.Job, error)
	GetJobFunc           func(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobFunc        func(ctx context.Context, id uuid.UUID, opts ...store.JobUpdateOption) error
	AppendHistoryFunc    func(ctx context.Context, entry *models.HistoryEntry) error
	CreateNotifFunc      func(ctx context.Context, n *models.Notification) error
	JobStatsFunc         func(ctx context.Context, since time.Time) (*models.JobStats, error)
	GetAPIKeyByPrefixFn  func(ctx context.Context, prefix string) ([]*models.APIKey, error)
	CreateAPIKeyFunc     func(ctx context.Context, key *models.APIKey) error
	ListAPIKeysFunc      func(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKeyFunc     func(ctx context.Context, id, userID uuid.UUID) error
	ListHistoryFunc      func(ctx context.Context, filter store.ListFilter) ([]*models.HistoryEntry, int, error)
	ListNotifsFunc       func(ctx context.Context, filter store.ListFilter) ([]*models.Notification, int, error)
	UpdateKeyLastUsedFn  func(ctx context.Context, id uuid.UUID) error
	CreateJobFunc        func(ctx context.Context, job *models.Job) error

	UpdateCalls []UpdateCall
}

func NewMockStore() *MockStore {
	return &MockStore{Jobs: make(map[uuid.UUID]*models.Job)}
}

// AddJob seeds a job into the in-memory map and returns it.
func (m *MockStore) AddJob(job *models.Job) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs[job.ID] = job
	return job
}

func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStore) GetDefaultUser(ctx context.Context) (*models.User, error) {
	if m.GetDefaultUserFunc != nil {
		return m.GetDefaultUserFunc(ctx)
	}
	return &models.User{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "default"}, nil
}

func (m *MockStore) CreateJob(ctx context.Context, job *models.Job) error {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, job)
	}
	m.AddJob(job)
	return nil
}

func (m *MockStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *MockStore) ListActiveJobs(ctx context.Context) ([]*models.Job, error) {
	if m.ListActiveJobsFunc != nil {
		return m.ListActiveJobsFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*models.Job
	for _, job := range m.Jobs {
		if job.Active() {
			copied := *job
			active = append(active, &copied)
		}
	}
	return active, nil
}

// UpdateJob applies the options to the stored job and records a snapshot of
// the result, so tests can assert on exactly what was written.
func (m *MockStore) UpdateJob(ctx context.Context, id uuid.UUID, opts ...store.JobUpdateOption) error {
	if m.UpdateJobFunc != nil {
		return m.UpdateJobFunc(ctx, id, opts...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	store.ApplyJobUpdate(job, opts...)
	job.UpdatedAt = time.Now().UTC()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{JobID: id, Snapshot: *job})
	return nil
}

func (m *MockStore) JobStats(ctx context.Context, since time.Time) (*models.JobStats, error) {
	if m.JobStatsFunc != nil {
		return m.JobStatsFunc(ctx, since)
	}
	return &models.JobStats{}, nil
}

func (m *MockStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if m.AppendHistoryFunc != nil {
		return m.AppendHistoryFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.History = append(m.History, entry)
	return nil
}

func (m *MockStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if m.CreateNotifFunc != nil {
		return m.CreateNotifFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *MockStore) ListHistory(ctx context.Context, filter store.ListFilter) ([]*models.HistoryEntry, int, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.History, len(m.History), nil
}

func (m *MockStore) ListNotifications(ctx context.Context, filter store.ListFilter) ([]*models.Notification, int, error) {
	if m.ListNotifsFunc != nil {
		return m.ListNotifsFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Notifications, len(m.Notifications), nil
}

func (m *MockStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	if m.GetAPIKeyByPrefixFn != nil {
		return m.GetAPIKeyByPrefixFn(ctx, prefix)
	}
	return nil, nil
}

func (m *MockStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	if m.UpdateKeyLastUsedFn != nil {
		return m.UpdateKeyLastUsedFn(ctx, id)
	}
	return nil
}

func (m *MockStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if m.CreateAPIKeyFunc != nil {
		return m.CreateAPIKeyFunc(ctx, key)
	}
	return nil
}

func (m *MockStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	if m.ListAPIKeysFunc != nil {
		return m.ListAPIKeysFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockStore) RevokeAPIKey(ctx context.Context, id, userID uuid.UUID) error {
	if m.RevokeAPIKeyFunc != nil {
		return m.RevokeAPIKeyFunc(ctx, id, userID)
	}
	return nil
}

var _ store.Store = (*MockStore)(nil)
