package correlation

import (
	"context"
	"fmt"
	"math"

	"affinity/internal/similarity"
	"affinity/internal/store"
)

var _ similarity.RatingCorrelation = (*Reviews)(nil)

// ReviewLister is the slice of the gateway the local correlation needs.
type ReviewLister interface {
	ListReviews(ctx context.Context, userID string) ([]store.Review, error)
}

// Reviews computes the Pearson correlation of two users' ratings over the
// entities both reviewed, mapped from [-1,1] onto [0,1]. Used when no
// external correlation service is configured.
type Reviews struct {
	db         ReviewLister
	minOverlap int
}

func NewReviews(db ReviewLister) *Reviews {
	return &Reviews{db: db, minOverlap: 2}
}

func (r *Reviews) Correlate(ctx context.Context, userA, userB string) (float64, error) {
	a, err := r.db.ListReviews(ctx, userA)
	if err != nil {
		return 0, fmt.Errorf("loading reviews for %s: %w", userA, err)
	}
	b, err := r.db.ListReviews(ctx, userB)
	if err != nil {
		return 0, fmt.Errorf("loading reviews for %s: %w", userB, err)
	}
	return pearson(a, b, r.minOverlap), nil
}

func pearson(a, b []store.Review, minOverlap int) float64 {
	ratingsA := make(map[string]float64, len(a))
	for _, r := range a {
		ratingsA[r.EntityID] = r.Rating
	}

	var xs, ys []float64
	for _, r := range b {
		if x, ok := ratingsA[r.EntityID]; ok {
			xs = append(xs, x)
			ys = append(ys, r.Rating)
		}
	}
	if len(xs) < minOverlap {
		return 0
	}

	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		// Constant ratings: agreement if the constants match.
		if meanX == meanY {
			return 1
		}
		return 0.5
	}

	r := cov / math.Sqrt(varX*varY)
	return math.Max(0, math.Min(1, (r+1)/2))
}
