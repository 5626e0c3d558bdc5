// Package mock provides a provider.Client test double.
package mock

import (
	"context"
	"sync"

	"github.com/sandeepmv/binsight/internal/provider"
)

// MockClient satisfies provider.Client for testing. Safe for concurrent use.
type MockClient struct {
	GetStatusFunc   func(ctx context.Context, batchID string) (*provider.BatchStatus, error)
	FetchOutputFunc func(ctx context.Context, fileID string) (string, error)

	mu               sync.Mutex
	getStatusCalls   int
	fetchOutputCalls int
}

func (m *MockClient) GetStatus(ctx context.Context, batchID string) (*provider.BatchStatus, error) {
	m.mu.Lock()
	m.getStatusCalls++
	m.mu.Unlock()
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, batchID)
	}
	return &provider.BatchStatus{ID: batchID, State: provider.StateInProgress}, nil
}

func (m *MockClient) FetchOutput(ctx context.Context, fileID string) (string, error) {
	m.mu.Lock()
	m.fetchOutputCalls++
	m.mu.Unlock()
	if m.FetchOutputFunc != nil {
		return m.FetchOutputFunc(ctx, fileID)
	}
	return "", nil
}

// GetStatusCalls reports how many times GetStatus was invoked.
func (m *MockClient) GetStatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getStatusCalls
}

// FetchOutputCalls reports how many times FetchOutput was invoked.
func (m *MockClient) FetchOutputCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchOutputCalls
}

// NewStaticClient returns a MockClient that always reports the given state.
func NewStaticClient(state string) *MockClient {
	return &MockClient{
		GetStatusFunc: func(_ context.Context, batchID string) (*provider.BatchStatus, error) {
			return &provider.BatchStatus{ID: batchID, State: state}, nil
		},
	}
}

// NewFailingClient returns a MockClient whose calls always return the given error.
func NewFailingClient(err error) *MockClient {
	return &MockClient{
		GetStatusFunc: func(_ context.Context, _ string) (*provider.BatchStatus, error) {
			return nil, err
		},
		FetchOutputFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}

var _ provider.Client = (*MockClient)(nil)
