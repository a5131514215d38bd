package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPair(t *testing.T) {
	before := testutil.ToFloat64(SimilarityPairs.WithLabelValues("persisted"))
	RecordPair("persisted")
	RecordPair("persisted")
	after := testutil.ToFloat64(SimilarityPairs.WithLabelValues("persisted"))
	if after-before != 2 {
		t.Fatalf("expected counter to grow by 2, grew by %f", after-before)
	}
}

func TestRecordRecommendation(t *testing.T) {
	beforeMode := testutil.ToFloat64(RecommendationRequests.WithLabelValues("SPARSE"))
	beforeFill := testutil.ToFloat64(BackfilledRecommendations)

	RecordRecommendation("SPARSE", 3, 10*time.Millisecond)

	if got := testutil.ToFloat64(RecommendationRequests.WithLabelValues("SPARSE")) - beforeMode; got != 1 {
		t.Fatalf("expected 1 request recorded, got %f", got)
	}
	if got := testutil.ToFloat64(BackfilledRecommendations) - beforeFill; got != 3 {
		t.Fatalf("expected 3 backfilled recorded, got %f", got)
	}
}

func TestRecordDimensionFailure(t *testing.T) {
	before := testutil.ToFloat64(DimensionFailures.WithLabelValues("rating_patterns"))
	RecordDimensionFailure("rating_patterns")
	if got := testutil.ToFloat64(DimensionFailures.WithLabelValues("rating_patterns")) - before; got != 1 {
		t.Fatalf("expected 1 failure recorded, got %f", got)
	}
}
