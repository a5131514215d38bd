package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"affinity/internal/graph"
	"affinity/internal/richness"
	"affinity/internal/similarity"
	"affinity/internal/store"
	"affinity/internal/store/memstore"
	"affinity/internal/transitions"
)

type mockCalculator struct {
	resp    *similarity.Response
	err     error
	lastReq similarity.Request
}

func (m *mockCalculator) Calculate(ctx context.Context, req similarity.Request) (*similarity.Response, error) {
	m.lastReq = req
	return m.resp, m.err
}

type mockRecommender struct {
	resp    *transitions.Response
	err     error
	lastReq transitions.Request
}

func (m *mockRecommender) Recommend(ctx context.Context, req transitions.Request) (*transitions.Response, error) {
	m.lastReq = req
	return m.resp, m.err
}

type mockPathFinder struct {
	paths      []graph.TransitionPath
	err        error
	lastEntity string
	lastLimit  int
}

func (m *mockPathFinder) TransitionPaths(ctx context.Context, entityID string, limit int) ([]graph.TransitionPath, error) {
	m.lastEntity = entityID
	m.lastLimit = limit
	return m.paths, m.err
}

func newTestServer(calc Calculator, rec Recommender, db similarity.SimilarityLister, paths PathFinder) *Server {
	return NewServer(calc, rec, db, paths, "test", zerolog.Nop())
}

func TestCalculateSimilarity(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	calc := &mockCalculator{resp: &similarity.Response{
		Success:                true,
		SimilaritiesCalculated: 1,
		ProcessedUsers:         3,
		UserMode:               richness.Moderate,
		TopSimilarities: []similarity.TopSimilarity{
			{UserID: "b", OverallScore: 0.7, Scores: map[string]float64{similarity.DimStuffOverlap: 0.7}, CalculatedAt: at},
		},
	}}
	server := newTestServer(calc, &mockRecommender{}, memstore.New(), nil)

	_, out, err := server.handleCalculateSimilarity(context.Background(), nil, CalculateSimilarityInput{UserID: "a", Limit: 3, ForceRecalculate: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calc.lastReq.UserID != "a" || calc.lastReq.Limit != 3 || !calc.lastReq.ForceRecalculate {
		t.Fatalf("unexpected request: %+v", calc.lastReq)
	}
	if out.UserMode != "MODERATE" || out.ProcessedUsers != 3 || len(out.TopSimilarities) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.TopSimilarities[0].CalculatedAt != "2026-03-01T09:30:00Z" {
		t.Fatalf("unexpected timestamp: %q", out.TopSimilarities[0].CalculatedAt)
	}
}

func TestCalculateSimilarity_Error(t *testing.T) {
	calc := &mockCalculator{err: similarity.ErrInvalidRequest}
	server := newTestServer(calc, &mockRecommender{}, memstore.New(), nil)

	if _, _, err := server.handleCalculateSimilarity(context.Background(), nil, CalculateSimilarityInput{}); !errors.Is(err, similarity.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRecommendTransitions(t *testing.T) {
	change, quote := "+2 improvement", "so much better"
	rec := &mockRecommender{resp: &transitions.Response{
		Recommendations: []transitions.Recommendation{{
			FromEntity:       store.Entity{ID: "a", Name: "Alpha"},
			ToEntity:         store.Entity{ID: "b", Name: "Bravo", Category: "skincare"},
			TransitionType:   store.TransitionUpgrade,
			Story:            transitions.Story{Headline: "5 similar users upgraded to Bravo", SentimentChange: &change, EvidenceQuote: &quote},
			Confidence:       "high",
			Contributors:     5,
			LifestyleFactors: []string{"skincare"},
			Source:           transitions.SourcePersonalized,
		}},
		Metadata: transitions.Metadata{
			RichnessMode:                 richness.Rich,
			SimilarUsersFound:            5,
			JourneysAnalyzed:             10,
			GlobalRelationshipsAvailable: 3,
			EntitySpecific:               true,
			EntitySpecificJourneys:       4,
			PersonalizedCount:            1,
		},
	}}
	server := newTestServer(&mockCalculator{}, rec, memstore.New(), nil)

	_, out, err := server.handleRecommendTransitions(context.Background(), nil, RecommendTransitionsInput{UserID: "me", EntityID: "a", TransitionType: "upgrade", Limit: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.lastReq.EntityID != "a" || rec.lastReq.TransitionType != "upgrade" || rec.lastReq.Limit != 4 {
		t.Fatalf("unexpected request: %+v", rec.lastReq)
	}
	if out.RichnessMode != "RICH" || out.JourneysAnalyzed != 10 || len(out.Recommendations) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.GlobalRelationshipsAvailable != 3 || !out.EntitySpecific || out.EntitySpecificJourneys != 4 || out.PersonalizedCount != 1 {
		t.Fatalf("metadata not carried through: %+v", out)
	}
	got := out.Recommendations[0]
	if got.To.Name != "Bravo" || got.SentimentChange != change || got.EvidenceQuote != quote || got.Contributors != 5 {
		t.Fatalf("unexpected recommendation: %+v", got)
	}
}

func TestGetSimilarUsers(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	for user, score := range map[string]float64{"b": 0.2, "c": 0.6, "d": 0.9} {
		if err := db.UpsertSimilarity(ctx, store.SimilarityResult{UserA: "a", UserB: user, OverallScore: score}); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	server := newTestServer(&mockCalculator{}, &mockRecommender{}, db, nil)

	_, out, err := server.handleGetSimilarUsers(ctx, nil, GetSimilarUsersInput{UserID: "a", MinScore: 0.5, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.SimilarUsers) != 1 || out.SimilarUsers[0].UserID != "d" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if _, _, err := server.handleGetSimilarUsers(ctx, nil, GetSimilarUsersInput{}); err == nil {
		t.Fatalf("expected error for missing user")
	}
}

func TestGetTransitionPaths(t *testing.T) {
	paths := &mockPathFinder{paths: []graph.TransitionPath{
		{FromID: "a", ToID: "b", ToName: "Bravo", TransitionType: store.TransitionUpgrade, Users: 3, AvgConfidence: 0.8},
	}}
	server := newTestServer(&mockCalculator{}, &mockRecommender{}, memstore.New(), paths)

	_, out, err := server.handleGetTransitionPaths(context.Background(), nil, GetTransitionPathsInput{EntityID: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paths.lastEntity != "a" || paths.lastLimit != 20 {
		t.Fatalf("unexpected call: %s %d", paths.lastEntity, paths.lastLimit)
	}
	if len(out.Paths) != 1 || out.Paths[0].Users != 3 || out.Paths[0].ToName != "Bravo" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if _, _, err := server.handleGetTransitionPaths(context.Background(), nil, GetTransitionPathsInput{}); err == nil {
		t.Fatalf("expected error for missing entity")
	}
}

func TestGetTransitionPaths_NoGraph(t *testing.T) {
	server := newTestServer(&mockCalculator{}, &mockRecommender{}, memstore.New(), nil)
	if _, _, err := server.handleGetTransitionPaths(context.Background(), nil, GetTransitionPathsInput{EntityID: "a"}); err == nil {
		t.Fatalf("expected error when graph is not configured")
	}
}
