package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"affinity/internal/graph"
	"affinity/internal/similarity"
	"affinity/internal/transitions"
)

type Calculator interface {
	Calculate(ctx context.Context, req similarity.Request) (*similarity.Response, error)
}

type Recommender interface {
	Recommend(ctx context.Context, req transitions.Request) (*transitions.Response, error)
}

// PathFinder reads the journey graph mirror. It is optional.
type PathFinder interface {
	TransitionPaths(ctx context.Context, entityID string, limit int) ([]graph.TransitionPath, error)
}

type Server struct {
	calc   Calculator
	rec    Recommender
	db     similarity.SimilarityLister
	paths  PathFinder
	logger zerolog.Logger
	mcp    *sdk.Server
}

func NewServer(calc Calculator, rec Recommender, db similarity.SimilarityLister, paths PathFinder, version string, logger zerolog.Logger) *Server {
	s := &Server{
		calc:   calc,
		rec:    rec,
		db:     db,
		paths:  paths,
		logger: logger.With().Str("component", "mcp").Logger(),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "affinity",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
