// Package api serves the similarity and recommendation procedures over
// HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"affinity/internal/similarity"
	"affinity/internal/store"
	"affinity/internal/transitions"
)

type Calculator interface {
	Calculate(ctx context.Context, req similarity.Request) (*similarity.Response, error)
}

type Recommender interface {
	Recommend(ctx context.Context, req transitions.Request) (*transitions.Response, error)
}

// Backend is the slice of the store the server reads directly.
type Backend interface {
	Ping(ctx context.Context) error
	ListSimilarities(ctx context.Context, filter store.SimilarityFilter) ([]store.SimilarityResult, error)
}

type Server struct {
	calc           Calculator
	rec            Recommender
	db             Backend
	logger         zerolog.Logger
	requestTimeout time.Duration
}

func NewServer(calc Calculator, rec Recommender, db Backend, requestTimeout time.Duration, logger zerolog.Logger) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Server{
		calc:           calc,
		rec:            rec,
		db:             db,
		logger:         logger.With().Str("component", "api").Logger(),
		requestTimeout: requestTimeout,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.requestTimeout))
		r.Post("/similarity/calculate", s.calculateSimilarity)
		r.Post("/recommendations/transitions", s.recommendTransitions)
		r.Get("/users/{userID}/similar", s.similarUsers)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
