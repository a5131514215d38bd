package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"affinity/internal/config"
	"affinity/internal/correlation"
	"affinity/internal/graph"
	"affinity/internal/logging"
	"affinity/internal/similarity"
	"affinity/internal/store"
	"affinity/internal/store/memstore"
	"affinity/internal/store/postgres"
	"affinity/internal/store/sqlite"
	"affinity/internal/transitions"
)

// app holds what every command needs: config, logger and an open store.
type app struct {
	cfg    *config.ProjectConfig
	logger zerolog.Logger
	db     store.Store
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.db.Close(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("closing store")
	}
}

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		client, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		client, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case strings.HasPrefix(dsn, "memory://"):
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unsupported database dsn: %s", dsn)
}

// correlation uses the external routine when a URL is configured and local
// review correlation otherwise.
func (a *app) correlation() similarity.RatingCorrelation {
	c := a.cfg.Correlation
	if c.URL == "" {
		return correlation.NewReviews(a.db)
	}
	return correlation.NewClient(correlation.Config{
		URL:               c.URL,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		FailureThreshold:  c.FailureThreshold,
		OpenTimeout:       c.OpenTimeout,
	}, a.logger)
}

func (a *app) aggregator() *similarity.Aggregator {
	s := a.cfg.Similarity
	opts := similarity.DefaultOptions()
	opts.CandidatePool = s.CandidatePool
	opts.DefaultLimit = s.DefaultLimit
	opts.Concurrency = s.Concurrency
	opts.MinOverallScore = s.MinOverallScore
	opts.RecalculateAfter = s.RecalculateAfter
	opts.FailureMode = s.FailureMode
	return similarity.NewAggregator(a.db, a.correlation(), opts, a.logger)
}

func (a *app) recommender() *transitions.Recommender {
	r := a.cfg.Recommend
	return transitions.NewRecommender(a.db, transitions.Options{
		DefaultLimit:       r.DefaultLimit,
		MaxSimilarUsers:    r.MaxSimilarUsers,
		MinSimilarity:      r.MinSimilarity,
		JourneyLimit:       r.JourneyLimit,
		ConsensusLimit:     r.ConsensusLimit,
		FallbackSimilarity: r.FallbackSimilarity,
	}, a.logger)
}

// openGraph returns nil without error when no Neo4j uri is configured.
func (a *app) openGraph(ctx context.Context) (*graph.Client, error) {
	n := a.cfg.Neo4j
	if strings.TrimSpace(n.URI) == "" {
		return nil, nil
	}
	return graph.NewClient(ctx, graph.Config{
		URI:      n.URI,
		Username: n.Username,
		Password: n.Password,
		Database: n.Database,
	})
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
