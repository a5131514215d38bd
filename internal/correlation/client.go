// Package correlation provides rating-pattern correlation implementations:
// an HTTP client for the external correlation routine and a local fallback
// computed from stored reviews.
package correlation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"affinity/internal/metrics"
	"affinity/internal/similarity"
)

var _ similarity.RatingCorrelation = (*Client)(nil)

type Config struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
}

// Client calls the external correlation routine. Calls are paced by a rate
// limiter and guarded by a circuit breaker that opens after
// FailureThreshold consecutive failures.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[float64]
	logger  zerolog.Logger
}

type correlateRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

type correlateResponse struct {
	Score float64 `json:"score"`
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	logger = logger.With().Str("component", "correlation").Logger()
	metrics.CorrelationBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "rating-correlation",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CorrelationBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		url:     cfg.URL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:      cb,
		logger:  logger,
	}
}

func (c *Client) Correlate(ctx context.Context, userA, userB string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	score, err := c.cb.Execute(func() (float64, error) {
		return c.call(ctx, userA, userB)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CorrelationCalls.WithLabelValues("rejected").Inc()
		} else {
			metrics.CorrelationCalls.WithLabelValues("error").Inc()
		}
		return 0, fmt.Errorf("correlating %s and %s: %w", userA, userB, err)
	}

	metrics.CorrelationCalls.WithLabelValues("success").Inc()
	return score, nil
}

func (c *Client) call(ctx context.Context, userA, userB string) (float64, error) {
	body, err := json.Marshal(correlateRequest{UserA: userA, UserB: userB})
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling correlation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("correlation service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out correlateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("score %f outside [0,1]", out.Score)
	}
	return out.Score, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
