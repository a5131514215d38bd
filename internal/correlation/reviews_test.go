package correlation

import (
	"context"
	"math"
	"testing"

	"affinity/internal/store"
	"affinity/internal/store/memstore"
)

func review(user, entity string, rating float64) store.Review {
	return store.Review{UserID: user, EntityID: entity, Rating: rating}
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		a, b []store.Review
		want float64
	}{
		{
			name: "perfect agreement",
			a:    []store.Review{review("a", "e1", 1), review("a", "e2", 3), review("a", "e3", 5)},
			b:    []store.Review{review("b", "e1", 2), review("b", "e2", 3), review("b", "e3", 4)},
			want: 1,
		},
		{
			name: "perfect disagreement",
			a:    []store.Review{review("a", "e1", 1), review("a", "e2", 5)},
			b:    []store.Review{review("b", "e1", 5), review("b", "e2", 1)},
			want: 0,
		},
		{
			name: "too little overlap",
			a:    []store.Review{review("a", "e1", 1), review("a", "e2", 5)},
			b:    []store.Review{review("b", "e1", 5), review("b", "e9", 1)},
			want: 0,
		},
		{
			name: "identical constant ratings",
			a:    []store.Review{review("a", "e1", 4), review("a", "e2", 4)},
			b:    []store.Review{review("b", "e1", 4), review("b", "e2", 4)},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pearson(tt.a, tt.b, 2)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("pearson = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestReviewsCorrelate(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	for _, r := range []store.Review{
		review("a", "e1", 1), review("a", "e2", 3), review("a", "e3", 5),
		review("b", "e1", 1), review("b", "e2", 3), review("b", "e3", 5),
	} {
		db.UpsertReview(ctx, r)
	}

	score, err := NewReviews(db).Correlate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("expected 1, got %f", score)
	}
}
