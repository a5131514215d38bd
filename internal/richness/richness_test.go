package richness

import (
	"context"
	"errors"
	"testing"

	"affinity/internal/store"
)

func TestClassifyCountsBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		counts store.UserCounts
		want   Mode
	}{
		{name: "exact rich threshold", counts: store.UserCounts{Stuff: 20, Journeys: 5, Routines: 1}, want: Rich},
		{name: "one stuff short", counts: store.UserCounts{Stuff: 19, Journeys: 5, Routines: 1}, want: Moderate},
		{name: "one journey short", counts: store.UserCounts{Stuff: 20, Journeys: 4, Routines: 1}, want: Moderate},
		{name: "no routines", counts: store.UserCounts{Stuff: 20, Journeys: 5, Routines: 0}, want: Moderate},
		{name: "moderate by stuff", counts: store.UserCounts{Stuff: 5}, want: Moderate},
		{name: "moderate by reviews", counts: store.UserCounts{Reviews: 5}, want: Moderate},
		{name: "sparse", counts: store.UserCounts{Stuff: 4, Reviews: 4, Journeys: 9, Routines: 3}, want: Sparse},
		{name: "empty", counts: store.UserCounts{}, want: Sparse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCounts(tt.counts); got != tt.want {
				t.Errorf("ClassifyCounts(%+v) = %s, want %s", tt.counts, got, tt.want)
			}
		})
	}
}

func TestMin(t *testing.T) {
	if Min(Rich, Sparse) != Sparse || Min(Sparse, Rich) != Sparse {
		t.Fatalf("expected sparse to win")
	}
	if Min(Rich, Moderate) != Moderate {
		t.Fatalf("expected moderate")
	}
	if Min(Rich, Rich) != Rich {
		t.Fatalf("expected rich")
	}
}

func TestConfidence(t *testing.T) {
	if Rich.Confidence() != "high" || Moderate.Confidence() != "medium" || Sparse.Confidence() != "low" {
		t.Fatalf("unexpected confidence labels")
	}
}

func TestClassifyContext(t *testing.T) {
	tests := []struct {
		name   string
		counts ContextCounts
		want   Mode
	}{
		{name: "rich", counts: ContextCounts{SimilarUsers: 5, Journeys: 10}, want: Rich},
		{name: "many users few journeys", counts: ContextCounts{SimilarUsers: 5, Journeys: 9}, want: Moderate},
		{name: "two users", counts: ContextCounts{SimilarUsers: 2}, want: Moderate},
		{name: "three journeys", counts: ContextCounts{Journeys: 3}, want: Moderate},
		{name: "consensus only", counts: ContextCounts{Consensus: 5}, want: Moderate},
		{name: "sparse", counts: ContextCounts{SimilarUsers: 1, Journeys: 2, Consensus: 4}, want: Sparse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyContext(tt.counts); got != tt.want {
				t.Errorf("ClassifyContext(%+v) = %s, want %s", tt.counts, got, tt.want)
			}
		})
	}
}

type fakeCounter struct {
	counts store.UserCounts
	err    error
}

func (f fakeCounter) CountStuff(ctx context.Context, userID string) (int, error) {
	return f.counts.Stuff, nil
}

func (f fakeCounter) CountJourneys(ctx context.Context, userID string) (int, error) {
	return f.counts.Journeys, f.err
}

func (f fakeCounter) CountRoutines(ctx context.Context, userID string) (int, error) {
	return f.counts.Routines, nil
}

func (f fakeCounter) CountReviews(ctx context.Context, userID string) (int, error) {
	return f.counts.Reviews, nil
}

func TestClassifyUser(t *testing.T) {
	got, err := ClassifyUser(context.Background(), fakeCounter{counts: store.UserCounts{Stuff: 25, Journeys: 6, Routines: 2}}, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Mode != Rich || got.Counts.Stuff != 25 {
		t.Fatalf("unexpected classification: %+v", got)
	}

	boom := errors.New("boom")
	got, err = ClassifyUser(context.Background(), fakeCounter{counts: store.UserCounts{Stuff: 25, Journeys: 6, Routines: 2}, err: boom}, "a")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if got.Counts.Journeys != 0 || got.Counts.Stuff != 25 || got.Mode != Moderate {
		t.Fatalf("expected failed count to degrade to zero, got %+v", got)
	}
}
