package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func testConfig(url string) Config {
	return Config{
		URL:               url,
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
		FailureThreshold:  2,
		OpenTimeout:       time.Minute,
	}
}

func TestCorrelateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req correlateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.UserA != "alice" || req.UserB != "bob" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 0.73}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	score, err := client.Correlate(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0.73 {
		t.Fatalf("expected 0.73, got %f", score)
	}
}

func TestCorrelateRejectsOutOfRangeScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score": 1.5}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	if _, err := client.Correlate(context.Background(), "a", "b"); err == nil {
		t.Fatalf("expected error for out of range score")
	}
}

func TestCorrelateBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zerolog.Nop())
	for i := 0; i < 4; i++ {
		if _, err := client.Correlate(context.Background(), "a", "b"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected breaker to stop calls after 2 failures, server saw %d", got)
	}
}

func TestCorrelateHonoursContext(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:0", RequestsPerSecond: 0.001, Burst: 1}, zerolog.Nop())
	// Drain the single token so the next call has to wait.
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.Correlate(ctx, "a", "b"); err == nil {
		t.Fatalf("expected rate limiter wait to fail")
	}
}
