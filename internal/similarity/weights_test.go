package similarity

import (
	"math"
	"testing"

	"affinity/internal/richness"
)

const tolerance = 1e-9

func TestAllocateWeightsSumsToOne(t *testing.T) {
	modes := []richness.Mode{richness.Rich, richness.Moderate, richness.Sparse}
	for _, mode := range modes {
		for mask := 0; mask < 8; mask++ {
			avail := Availability{
				Stuff:    mask&1 != 0,
				Routines: mask&2 != 0,
				Journeys: mask&4 != 0,
			}
			w := AllocateWeights(mode, avail)
			if math.Abs(w.Sum()-1) > tolerance {
				t.Errorf("%s %+v: weights sum to %f", mode, avail, w.Sum())
			}
			for dim, v := range w {
				if v < 0 {
					t.Errorf("%s %+v: negative weight for %s", mode, avail, dim)
				}
			}
		}
	}
}

func TestAllocateWeightsRichIsBase(t *testing.T) {
	w := AllocateWeights(richness.Rich, Availability{})
	want := baseWeights()
	for _, dim := range Dimensions {
		if w[dim] != want[dim] {
			t.Errorf("rich weight for %s = %f, want %f", dim, w[dim], want[dim])
		}
	}
}

func TestAllocateWeightsModerateRedistributes(t *testing.T) {
	// stuff available; routines and journeys missing: pool 0.4 over 3 dims.
	w := AllocateWeights(richness.Moderate, Availability{Stuff: true})
	if w[DimRoutines] != 0 || w[DimJourneys] != 0 {
		t.Fatalf("expected unavailable dimensions to be zeroed: %+v", w)
	}
	share := 0.4 / 3
	checks := map[string]float64{
		DimStuffOverlap:        0.30 + share,
		DimRatingPatterns:      0.15 + share,
		DimCategoryPreferences: 0.15 + share,
	}
	for dim, want := range checks {
		if math.Abs(w[dim]-want) > tolerance {
			t.Errorf("%s = %f, want %f", dim, w[dim], want)
		}
	}

	all := AllocateWeights(richness.Moderate, Availability{Stuff: true, Routines: true, Journeys: true})
	for _, dim := range Dimensions {
		if all[dim] != baseWeights()[dim] {
			t.Errorf("fully available moderate weight for %s = %f", dim, all[dim])
		}
	}
}

func TestAllocateWeightsSparse(t *testing.T) {
	w := AllocateWeights(richness.Min(richness.Rich, richness.Sparse), Availability{Stuff: true, Routines: true, Journeys: true})
	if w[DimRatingPatterns] != 0.60 || w[DimCategoryPreferences] != 0.40 {
		t.Fatalf("unexpected sparse weights: %+v", w)
	}
	for _, dim := range []string{DimStuffOverlap, DimRoutines, DimJourneys} {
		if w[dim] != 0 {
			t.Errorf("expected %s to be zero, got %f", dim, w[dim])
		}
	}
}

func TestRedistribute(t *testing.T) {
	w := AllocateWeights(richness.Sparse, Availability{})
	out := Redistribute(w, []string{DimRatingPatterns})
	if out[DimRatingPatterns] != 0 || math.Abs(out[DimCategoryPreferences]-1) > tolerance {
		t.Fatalf("unexpected redistributed weights: %+v", out)
	}
	if w[DimRatingPatterns] != 0.60 {
		t.Fatalf("input weights must not be modified")
	}

	all := Redistribute(w, []string{DimRatingPatterns, DimCategoryPreferences})
	if all[DimRatingPatterns] != 0.60 {
		t.Fatalf("expected weights unchanged when every dimension failed: %+v", all)
	}
}

func TestDot(t *testing.T) {
	w := Weights{DimRatingPatterns: 0.6, DimCategoryPreferences: 0.4}
	got := w.Dot(map[string]float64{DimRatingPatterns: 0.5, DimCategoryPreferences: 1, DimStuffOverlap: 1})
	if math.Abs(got-0.7) > tolerance {
		t.Fatalf("Dot = %f, want 0.7", got)
	}
}
