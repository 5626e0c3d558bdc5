// Package provider implements the batch classification provider client.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandeepmv/binsight/internal/config"
)

// Sentinel errors for provider client failures.
var (
	ErrProviderUnreachable = errors.New("batch provider unreachable")
	ErrProviderAPIError    = errors.New("batch provider api error")
	ErrProviderTimeout     = errors.New("batch provider timeout")
)

// Client is the interface for querying the batch provider.
type Client interface {
	// GetStatus fetches the current state of a batch by its provider-assigned id.
	GetStatus(ctx context.Context, batchID string) (*BatchStatus, error)
	// FetchOutput downloads the newline-delimited output file of a completed batch.
	FetchOutput(ctx context.Context, fileID string) (string, error)
}

// BatchStatus is the provider's view of one batch job.
type BatchStatus struct {
	ID           string       `json:"id"`
	State        string       `json:"status"`
	OutputFileID string       `json:"output_file_id,omitempty"`
	Errors       *BatchErrors `json:"errors,omitempty"`
}

// BatchErrors carries provider-reported failure details.
type BatchErrors struct {
	Data []BatchErrorItem `json:"data"`
}

type BatchErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorText flattens provider-reported errors into a single message.
// Returns "" when the provider supplied no detail.
func (s *BatchStatus) ErrorText() string {
	if s.Errors == nil || len(s.Errors.Data) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(s.Errors.Data))
	for _, e := range s.Errors.Data {
		if e.Code != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Code, e.Message))
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// HTTPClient implements Client against an OpenAI-compatible batch API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new batch provider HTTP client.
func NewHTTPClient(cfg config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) GetStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	u := fmt.Sprintf("%s/batches/%s", c.baseURL, url.PathEscape(batchID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderAPIError, resp.StatusCode)
	}

	var status BatchStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding batch status: %w", err)
	}

	return &status, nil
}

func (c *HTTPClient) FetchOutput(ctx context.Context, fileID string) (string, error) {
	u := fmt.Sprintf("%s/files/%s/content", c.baseURL, url.PathEscape(fileID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrProviderAPIError, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading output file: %w", err)
	}

	return string(body), nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
}

// Known provider batch states. Anything else is treated as "no change" by the
// reconciler.
const (
	StateValidating = "validating"
	StateQueued     = "queued"
	StateInProgress = "in_progress"
	StateFinalizing = "finalizing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateExpired    = "expired"
	StateCancelled  = "cancelled"
)

var _ Client = (*HTTPClient)(nil)
