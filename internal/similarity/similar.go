package similarity

import (
	"context"
	"fmt"
	"strings"

	"affinity/internal/store"
)

// SimilarityLister is the read side of the similarity table.
type SimilarityLister interface {
	ListSimilarities(ctx context.Context, filter store.SimilarityFilter) ([]store.SimilarityResult, error)
}

// SimilarUsers returns the stored lifestyle rows for userID scoring above
// minScore, best first. A limit of zero or less returns every row.
func SimilarUsers(ctx context.Context, db SimilarityLister, userID string, minScore float64, limit int) ([]TopSimilarity, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	rows, err := db.ListSimilarities(ctx, store.SimilarityFilter{
		UserA:    userID,
		Type:     store.SimilarityLifestyle,
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing similar users for %s: %w", userID, err)
	}

	out := make([]TopSimilarity, 0, len(rows))
	for _, res := range rows {
		out = append(out, toTop(res))
	}
	return out, nil
}

func toTop(res store.SimilarityResult) TopSimilarity {
	return TopSimilarity{
		UserID:         res.UserB,
		OverallScore:   res.OverallScore,
		LifestyleScore: res.LifestyleScore,
		EffectiveMode:  res.Metadata.EffectiveMode,
		Scores:         res.Metadata.Scores,
		CalculatedAt:   res.CalculatedAt,
	}
}
