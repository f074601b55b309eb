package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int, parser ErrorParser) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:        server.URL + "/",
		Headers:        map[string]string{"x-api-key": "secret"},
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		RateLimit:      rate.Inf,
	}, nil, parser)
}

func TestClient_GetDecodesJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "ethereum" {
			t.Errorf("ids = %s", r.URL.Query().Get("ids"))
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Error("api key header not set")
		}
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3456.78}}`))
	}, 0, nil)

	var out map[string]map[string]float64
	err := client.Get(context.Background(), "/simple/price", url.Values{"ids": {"ethereum"}}, &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out["ethereum"]["usd"] != 3456.78 {
		t.Errorf("unexpected response %v", out)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantRL     bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantStatus: 429, wantRL: true},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantStatus: 502},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"coin not found"}`, wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 0, nil)

			var out map[string]any
			err := client.Get(context.Background(), "/x", nil, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := StatusCode(err); got != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d (err=%v)", got, tt.wantStatus, err)
			}
			if errors.Is(err, ErrRateLimited) != tt.wantRL {
				t.Errorf("errors.Is(ErrRateLimited) = %v, want %v", !tt.wantRL, tt.wantRL)
			}
		})
	}
}

func TestClient_ErrorParser(t *testing.T) {
	apiErr := errors.New("coin not found")
	parser := func(status int, body []byte) error {
		if status == http.StatusNotFound {
			return fmt.Errorf("api: %w", apiErr)
		}
		return nil
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, 0, parser)

	var out map[string]any
	err := client.Get(context.Background(), "/coins/nope", nil, &out)
	if !errors.Is(err, apiErr) {
		t.Errorf("expected parsed API error, got %v", err)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}, 0, nil)

	var out map[string]any
	if err := client.Get(context.Background(), "/x", nil, &out); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClient_RetriesServerErrorsOnlyWhenConfigured(t *testing.T) {
	var attempts atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}

	client := newTestClient(t, handler, 3, nil)
	var out map[string]bool
	if err := client.Get(context.Background(), "/x", nil, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if attempts.Load() != 3 || !out["ok"] {
		t.Errorf("attempts = %d, out = %v", attempts.Load(), out)
	}

	attempts.Store(0)
	noRetry := newTestClient(t, handler, 0, nil)
	if err := noRetry.Get(context.Background(), "/x", nil, &out); err == nil {
		t.Fatal("expected error without retries")
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, 3, nil)

	var out map[string]any
	if err := client.Get(context.Background(), "/x", nil, &out); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}
