package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepmv/binsight/internal/config"
)

// --- helpers ---

func providerServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	return NewHTTPClient(config.ProviderConfig{
		APIKey:  "sk-test",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
}

// --- GetStatus tests ---

func TestGetStatus_ValidResponse(t *testing.T) {
	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batches/batch_abc123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", got)
		}

		resp := BatchStatus{
			ID:           "batch_abc123",
			State:        StateCompleted,
			OutputFileID: "file-xyz",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	status, err := c.GetStatus(context.Background(), "batch_abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.State != StateCompleted {
		t.Errorf("unexpected state: %s", status.State)
	}
	if status.OutputFileID != "file-xyz" {
		t.Errorf("unexpected output file: %s", status.OutputFileID)
	}
}

func TestGetStatus_WithErrors(t *testing.T) {
	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := BatchStatus{
			ID:    "batch_abc123",
			State: StateFailed,
			Errors: &BatchErrors{Data: []BatchErrorItem{
				{Code: "quota_exceeded", Message: "quota exceeded"},
				{Message: "request too large"},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	status, err := c.GetStatus(context.Background(), "batch_abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "quota_exceeded: quota exceeded; request too large"
	if got := status.ErrorText(); got != want {
		t.Errorf("expected error text %q, got %q", want, got)
	}
}

func TestGetStatus_NonOKStatus(t *testing.T) {
	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.GetStatus(context.Background(), "batch_abc123")
	if !errors.Is(err, ErrProviderAPIError) {
		t.Fatalf("expected ErrProviderAPIError, got %v", err)
	}
}

func TestGetStatus_Unreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.GetStatus(context.Background(), "batch_abc123")
	if !errors.Is(err, ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}
}

func TestGetStatus_ContextCancelled(t *testing.T) {
	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(t, ts.URL)
	_, err := c.GetStatus(ctx, "batch_abc123")
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
}

// --- FetchOutput tests ---

func TestFetchOutput_ValidResponse(t *testing.T) {
	body := `{"custom_id":"job-1","response":{}}` + "\n" + `{"custom_id":"job-2","response":{}}`

	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/file-xyz/content" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(body))
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	out, err := c.FetchOutput(context.Background(), "file-xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != body {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestFetchOutput_NonOKStatus(t *testing.T) {
	ts := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.FetchOutput(context.Background(), "file-missing")
	if !errors.Is(err, ErrProviderAPIError) {
		t.Fatalf("expected ErrProviderAPIError, got %v", err)
	}
}

func TestErrorText_Empty(t *testing.T) {
	s := &BatchStatus{State: StateFailed}
	if got := s.ErrorText(); got != "" {
		t.Errorf("expected empty error text, got %q", got)
	}
}
