package similarity

import (
	"context"
	"errors"
	"testing"

	"affinity/internal/store"
	"affinity/internal/store/memstore"
)

func TestSimilarUsers(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	for user, score := range map[string]float64{"b": 0.4, "c": 0.9, "d": 0.05} {
		res := store.SimilarityResult{UserA: "a", UserB: user, OverallScore: score}
		res.Metadata.Scores = map[string]float64{DimStuffOverlap: score}
		if err := db.UpsertSimilarity(ctx, res); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	got, err := SimilarUsers(ctx, db, "a", 0.1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "c" || got[1].UserID != "b" {
		t.Fatalf("expected [c b], got %+v", got)
	}
	if got[0].Scores[DimStuffOverlap] != 0.9 || got[0].CalculatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got[0])
	}

	limited, err := SimilarUsers(ctx, db, "a", 0, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one row, got %v %v", limited, err)
	}

	none, err := SimilarUsers(ctx, db, "nobody", 0, 0)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v %v", none, err)
	}

	if _, err := SimilarUsers(ctx, db, " ", 0, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
