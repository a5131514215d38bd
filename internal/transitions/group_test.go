package transitions

import (
	"testing"

	"affinity/internal/store"
)

func newGroup(from, to string, relevance, score float64) *group {
	return &group{
		key:           pairKey{from, to},
		maxRelevance:  relevance,
		weightedScore: score,
		contributors:  map[string]bool{},
		factors:       map[string]bool{},
	}
}

func order(groups []*group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.key.to
	}
	return out
}

func TestRankGroupsRelevanceBand(t *testing.T) {
	groups := []*group{
		newGroup("a", "low", 0.2, 9),
		newGroup("a", "x", 0.50, 1),
		newGroup("a", "y", 0.45, 2),
	}
	rankGroups(groups)
	got := order(groups)
	if got[0] != "y" || got[1] != "x" || got[2] != "low" {
		t.Fatalf("expected band tie to fall back to weighted score, got %v", got)
	}

	// Swapping the weighted scores swaps the order inside the band.
	groups = []*group{
		newGroup("a", "x", 0.50, 2),
		newGroup("a", "y", 0.45, 1),
	}
	rankGroups(groups)
	got = order(groups)
	if got[0] != "x" || got[1] != "y" {
		t.Fatalf("expected x first after swap, got %v", got)
	}
}

func TestRankGroupsOutsideBand(t *testing.T) {
	groups := []*group{
		newGroup("a", "b", 0.3, 100),
		newGroup("a", "c", 0.9, 1),
	}
	rankGroups(groups)
	if groups[0].key.to != "c" {
		t.Fatalf("expected relevance to dominate outside the band, got %v", order(groups))
	}
}

func TestConsensusBoostIsMonotonic(t *testing.T) {
	prev := -1.0
	for count := 0; count <= 50; count++ {
		g := newGroup("a", "b", 0, 0.4)
		applyConsensusBoost([]*group{g}, map[pairKey]int{{"a", "b"}: count})
		if g.weightedScore < prev {
			t.Fatalf("boost decreased at count %d: %f < %f", count, g.weightedScore, prev)
		}
		prev = g.weightedScore
	}

	missing := newGroup("a", "b", 0, 0.4)
	applyConsensusBoost([]*group{missing}, nil)
	if missing.weightedScore != 0.4 {
		t.Fatalf("expected no boost without consensus, got %f", missing.weightedScore)
	}
}

func TestConsensusIndexKeepsLargestCount(t *testing.T) {
	idx := consensusIndex([]store.GlobalRelationship{
		{EntityAID: "a", EntityBID: "b", RelationshipType: store.TransitionUpgrade, ConsensusCount: 2},
		{EntityAID: "a", EntityBID: "b", RelationshipType: store.TransitionAlternative, ConsensusCount: 7},
	})
	if idx[pairKey{"a", "b"}] != 7 {
		t.Fatalf("expected 7, got %d", idx[pairKey{"a", "b"}])
	}
}

func TestGroupJourneys(t *testing.T) {
	scored := []scoredJourney{
		{journey: store.Journey{UserID: "u1", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, FromSentiment: intp(1), ToSentiment: intp(3)}, relevance: 0.2, weighted: 1, factors: []string{"skincare"}},
		{journey: store.Journey{UserID: "u2", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionAlternative, EvidenceText: "love it", FromSentiment: intp(2)}, relevance: 0.6, weighted: 2, factors: []string{"fitness"}},
		{journey: store.Journey{UserID: "u1", FromEntityID: "a", ToEntityID: "c", TransitionType: store.TransitionUpgrade}, relevance: 0.1, weighted: 0.5},
	}

	groups := groupJourneys(scored)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	g := groups[0]
	if g.transitionType != store.TransitionUpgrade || g.weightedScore != 3 || g.journeys != 2 || g.maxRelevance != 0.6 {
		t.Fatalf("unexpected group: %+v", g)
	}
	if len(g.contributors) != 2 || g.evidence != "love it" {
		t.Fatalf("unexpected contributors or evidence: %+v", g)
	}
	if len(g.sentimentBefore) != 2 || len(g.sentimentAfter) != 1 {
		t.Fatalf("unexpected sentiment accumulation: %+v", g)
	}
	if factors := sortedKeys(g.factors); len(factors) != 2 || factors[0] != "fitness" {
		t.Fatalf("unexpected factors: %v", factors)
	}
}

func TestBackfillSkipsPresentPairs(t *testing.T) {
	rels := []store.GlobalRelationship{
		{EntityAID: "a", EntityBID: "b", RelationshipType: store.TransitionUpgrade, ConsensusCount: 9, AvgConfidence: 0.9},
		{EntityAID: "a", EntityBID: "c", RelationshipType: store.TransitionUpgrade, ConsensusCount: 4, AvgConfidence: 0.5},
		{EntityAID: "a", EntityBID: "c", RelationshipType: store.TransitionAlternative, ConsensusCount: 1, AvgConfidence: 0.9},
		{EntityAID: "x", EntityBID: "y", RelationshipType: store.TransitionUpgrade, ConsensusCount: 1, AvgConfidence: 0.2},
	}
	present := map[pairKey]bool{{"a", "b"}: true}

	got := backfillGroups(rels, present, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 backfilled groups, got %d", len(got))
	}
	if got[0].key != (pairKey{"a", "c"}) || got[0].weightedScore != 1.0 {
		t.Fatalf("unexpected first backfill: %+v", got[0])
	}
	for _, g := range got {
		if !g.fromConsensus {
			t.Fatalf("expected consensus marker")
		}
	}

	if got := backfillGroups(rels, present, 1); len(got) != 1 {
		t.Fatalf("expected backfill capped at 1, got %d", len(got))
	}
	if got := backfillGroups(rels, present, 0); len(got) != 0 {
		t.Fatalf("expected no backfill, got %d", len(got))
	}
}
