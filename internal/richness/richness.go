// Package richness classifies how much behavioral data backs a user, a user
// pair or a recommendation request.
package richness

import (
	"context"
	"errors"
	"fmt"

	"affinity/internal/store"
)

type Mode string

const (
	Sparse   Mode = "SPARSE"
	Moderate Mode = "MODERATE"
	Rich     Mode = "RICH"
)

func (m Mode) rank() int {
	switch m {
	case Rich:
		return 2
	case Moderate:
		return 1
	}
	return 0
}

// Confidence is the label attached to recommendations produced in this mode.
func (m Mode) Confidence() string {
	switch m {
	case Rich:
		return "high"
	case Moderate:
		return "medium"
	}
	return "low"
}

// Min returns the poorer of two modes.
func Min(a, b Mode) Mode {
	if a.rank() <= b.rank() {
		return a
	}
	return b
}

const (
	richStuff       = 20
	richJourneys    = 5
	richRoutines    = 1
	moderateStuff   = 5
	moderateReviews = 5

	contextRichUsers         = 5
	contextRichJourneys      = 10
	contextModerateUsers     = 2
	contextModerateJourneys  = 3
	contextModerateConsensus = 5
)

type Classification struct {
	Mode   Mode             `json:"mode"`
	Counts store.UserCounts `json:"counts"`
}

// Counter is the count-only subset of the gateway.
type Counter interface {
	CountStuff(ctx context.Context, userID string) (int, error)
	CountJourneys(ctx context.Context, userID string) (int, error)
	CountRoutines(ctx context.Context, userID string) (int, error)
	CountReviews(ctx context.Context, userID string) (int, error)
}

func ClassifyCounts(c store.UserCounts) Mode {
	if c.Stuff >= richStuff && c.Journeys >= richJourneys && c.Routines >= richRoutines {
		return Rich
	}
	if c.Stuff >= moderateStuff || c.Reviews >= moderateReviews {
		return Moderate
	}
	return Sparse
}

// ClassifyUser runs the four count queries and classifies the result. It
// always returns a classification: a failed query counts as zero and is
// reported in the joined error so the caller can log it and carry on.
func ClassifyUser(ctx context.Context, counter Counter, userID string) (Classification, error) {
	var counts store.UserCounts
	var errs []error

	queries := []struct {
		name  string
		fn    func(context.Context, string) (int, error)
		field *int
	}{
		{"stuff", counter.CountStuff, &counts.Stuff},
		{"journeys", counter.CountJourneys, &counts.Journeys},
		{"routines", counter.CountRoutines, &counts.Routines},
		{"reviews", counter.CountReviews, &counts.Reviews},
	}
	for _, q := range queries {
		n, err := q.fn(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("counting %s for %s: %w", q.name, userID, err))
			continue
		}
		*q.field = n
	}

	return Classification{Mode: ClassifyCounts(counts), Counts: counts}, errors.Join(errs...)
}

// ContextCounts describes the data found for a single recommendation request.
type ContextCounts struct {
	SimilarUsers           int `json:"similar_users"`
	Journeys               int `json:"journeys"`
	EntitySpecificJourneys int `json:"entity_specific_journeys"`
	Consensus              int `json:"consensus"`
}

func ClassifyContext(c ContextCounts) Mode {
	if c.SimilarUsers >= contextRichUsers && c.Journeys >= contextRichJourneys {
		return Rich
	}
	if c.SimilarUsers >= contextModerateUsers || c.Journeys >= contextModerateJourneys || c.Consensus >= contextModerateConsensus {
		return Moderate
	}
	return Sparse
}
