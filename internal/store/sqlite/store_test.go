package sqlite

import (
	"context"
	"testing"
	"time"

	"affinity/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return c
}

func intp(v int) *int { return &v }

func TestStuffRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	items := []store.StuffItem{
		{UserID: "u1", EntityID: "e1", Status: "using", Sentiment: intp(4), Category: "skincare"},
		{UserID: "u1", EntityID: "e2", Status: "wishlist"},
		{UserID: "u2", EntityID: "e1", Status: "using", Sentiment: intp(2)},
	}
	for _, item := range items {
		if err := c.UpsertStuff(ctx, item); err != nil {
			t.Fatalf("upserting stuff: %v", err)
		}
	}

	got, err := c.ListStuff(ctx, "u1")
	if err != nil {
		t.Fatalf("listing stuff: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Sentiment == nil || *got[0].Sentiment != 4 || got[0].Category != "skincare" {
		t.Fatalf("unexpected first item: %+v", got[0])
	}
	if got[1].Sentiment != nil || got[1].Category != "" {
		t.Fatalf("expected null sentiment and category, got %+v", got[1])
	}

	n, err := c.CountStuff(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("CountStuff = %d, %v", n, err)
	}

	all, err := c.ListAllStuff(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAllStuff = %d, %v", len(all), err)
	}
}

func TestRoutineStepsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	r := store.Routine{
		ID:        "r1",
		UserID:    "u1",
		Category:  "skincare",
		Frequency: "daily",
		Steps:     []store.RoutineStep{{EntityID: "e1", Name: "cleanse"}},
	}
	if err := c.UpsertRoutine(ctx, r); err != nil {
		t.Fatalf("upserting routine: %v", err)
	}

	got, err := c.ListRoutines(ctx, "u1")
	if err != nil {
		t.Fatalf("listing routines: %v", err)
	}
	if len(got) != 1 || len(got[0].Steps) != 1 || got[0].Steps[0].EntityID != "e1" {
		t.Fatalf("unexpected routines: %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestListJourneysFilters(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	journeys := []store.Journey{
		{ID: "j1", UserID: "u1", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, Confidence: 0.9, CreatedAt: base},
		{ID: "j2", UserID: "u2", FromEntityID: "a", ToEntityID: "c", TransitionType: store.TransitionAlternative, Confidence: 0.7, CreatedAt: base.Add(time.Hour)},
		{ID: "j3", UserID: "u3", FromEntityID: "x", ToEntityID: "y", TransitionType: store.TransitionUpgrade, Confidence: 0.5, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, j := range journeys {
		if err := c.UpsertJourney(ctx, j); err != nil {
			t.Fatalf("upserting journey: %v", err)
		}
	}

	all, err := c.ListJourneys(ctx, store.JourneyFilter{})
	if err != nil {
		t.Fatalf("listing journeys: %v", err)
	}
	if len(all) != 3 || all[0].ID != "j3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	byUser, err := c.ListJourneys(ctx, store.JourneyFilter{UserIDs: []string{"u1", "u2"}, FromEntityIDs: []string{"a"}})
	if err != nil || len(byUser) != 2 {
		t.Fatalf("expected 2 journeys for u1,u2 from a, got %d (%v)", len(byUser), err)
	}

	none, err := c.ListJourneys(ctx, store.JourneyFilter{UserIDs: []string{}})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty user list to match nothing, got %d (%v)", len(none), err)
	}

	excluded, err := c.ListJourneys(ctx, store.JourneyFilter{ExcludeUserID: "u3", TransitionType: store.TransitionUpgrade})
	if err != nil || len(excluded) != 1 || excluded[0].ID != "j1" {
		t.Fatalf("unexpected exclusion result: %+v (%v)", excluded, err)
	}

	limited, err := c.ListJourneys(ctx, store.JourneyFilter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit 1, got %d (%v)", len(limited), err)
	}

	if err := c.UpsertJourney(ctx, store.Journey{ID: "bad", UserID: "u1", TransitionType: "sideways"}); err == nil {
		t.Fatalf("expected invalid transition type to be rejected")
	}
}

func TestRebuildGlobalRelationships(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	journeys := []store.Journey{
		{ID: "j1", UserID: "u1", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, Confidence: 0.8},
		{ID: "j2", UserID: "u2", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, Confidence: 0.6},
		{ID: "j3", UserID: "u2", FromEntityID: "a", ToEntityID: "c", TransitionType: store.TransitionAlternative, Confidence: 0.5},
	}
	for _, j := range journeys {
		if err := c.UpsertJourney(ctx, j); err != nil {
			t.Fatalf("upserting journey: %v", err)
		}
	}
	stale := store.GlobalRelationship{EntityAID: "q", EntityBID: "r", RelationshipType: store.TransitionUpgrade, ConsensusCount: 9}
	if err := c.UpsertGlobalRelationship(ctx, stale); err != nil {
		t.Fatalf("upserting relationship: %v", err)
	}

	if _, err := c.RebuildGlobalRelationships(ctx); err != nil {
		t.Fatalf("rebuilding: %v", err)
	}

	rels, err := c.ListGlobalRelationships(ctx, store.ConsensusFilter{EntityAIDs: []string{"a", "q"}})
	if err != nil {
		t.Fatalf("listing relationships: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected stale pair pruned and 2 remaining, got %+v", rels)
	}
	if rels[0].EntityBID != "b" || rels[0].ConsensusCount != 2 {
		t.Fatalf("expected a->b with consensus 2 first, got %+v", rels[0])
	}
	if rels[0].AvgConfidence < 0.69 || rels[0].AvgConfidence > 0.71 {
		t.Fatalf("expected avg confidence 0.7, got %f", rels[0].AvgConfidence)
	}
}

func TestSimilarityRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	res := store.SimilarityResult{
		UserA:             "u1",
		UserB:             "u2",
		OverallScore:      0.42,
		StuffOverlapScore: 0.5,
		StuffDetail:       store.StuffOverlapDetail{CommonEntities: []string{"e1"}, Jaccard: 0.5},
		Metadata: store.CalculationMetadata{
			EffectiveMode: "MODERATE",
			Weights:       map[string]float64{"stuff_overlap": 0.5},
			Scores:        map[string]float64{"stuff_overlap": 0.5},
		},
	}
	if err := c.UpsertSimilarity(ctx, res); err != nil {
		t.Fatalf("upserting similarity: %v", err)
	}
	res.OverallScore = 0.55
	if err := c.UpsertSimilarity(ctx, res); err != nil {
		t.Fatalf("re-upserting similarity: %v", err)
	}
	low := store.SimilarityResult{UserA: "u1", UserB: "u3", OverallScore: 0.05}
	if err := c.UpsertSimilarity(ctx, low); err != nil {
		t.Fatalf("upserting similarity: %v", err)
	}

	got, err := c.ListSimilarities(ctx, store.SimilarityFilter{UserA: "u1", MinScore: 0.1})
	if err != nil {
		t.Fatalf("listing similarities: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 similarity above threshold, got %d", len(got))
	}
	if got[0].OverallScore != 0.55 || got[0].Type != store.SimilarityLifestyle {
		t.Fatalf("expected latest lifestyle row, got %+v", got[0])
	}
	if got[0].Metadata.EffectiveMode != "MODERATE" || got[0].StuffDetail.CommonEntities[0] != "e1" {
		t.Fatalf("details not restored: %+v", got[0])
	}
}
