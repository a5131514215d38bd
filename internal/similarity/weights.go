package similarity

import "affinity/internal/richness"

const (
	DimStuffOverlap        = "stuff_overlap"
	DimRoutines            = "routines_similarity"
	DimJourneys            = "journey_alignment"
	DimRatingPatterns      = "rating_patterns"
	DimCategoryPreferences = "category_preferences"
)

// Dimensions lists every dimension in a fixed order. Iteration over weights
// always follows this order so floating sums are reproducible.
var Dimensions = []string{
	DimStuffOverlap,
	DimRoutines,
	DimJourneys,
	DimRatingPatterns,
	DimCategoryPreferences,
}

// Weights maps dimension name to weight; it sums to 1.
type Weights map[string]float64

func baseWeights() Weights {
	return Weights{
		DimStuffOverlap:        0.30,
		DimRoutines:            0.20,
		DimJourneys:            0.20,
		DimRatingPatterns:      0.15,
		DimCategoryPreferences: 0.15,
	}
}

// Availability says which behavioral dimensions have data for both users.
// Ratings and categories are always considered available.
type Availability struct {
	Stuff    bool
	Routines bool
	Journeys bool
}

func AllocateWeights(mode richness.Mode, avail Availability) Weights {
	switch mode {
	case richness.Rich:
		return baseWeights()
	case richness.Moderate:
		w := baseWeights()
		pool := 0.0
		behavioral := []struct {
			dim string
			ok  bool
		}{
			{DimRoutines, avail.Routines},
			{DimJourneys, avail.Journeys},
			{DimStuffOverlap, avail.Stuff},
		}
		for _, b := range behavioral {
			if !b.ok {
				pool += w[b.dim]
				w[b.dim] = 0
			}
		}
		spread(w, pool)
		return w
	default:
		return Weights{
			DimStuffOverlap:        0,
			DimRoutines:            0,
			DimJourneys:            0,
			DimRatingPatterns:      0.60,
			DimCategoryPreferences: 0.40,
		}
	}
}

// Redistribute zeroes the weight of every failed dimension and spreads it
// evenly over the remaining nonzero dimensions. With nothing left to spread
// over, the weights are returned unchanged.
func Redistribute(w Weights, failed []string) Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}

	pool := 0.0
	for _, dim := range failed {
		pool += out[dim]
		out[dim] = 0
	}
	if pool == 0 || !spread(out, pool) {
		return w
	}
	return out
}

// spread adds pool/n to each of the n dimensions with positive weight.
func spread(w Weights, pool float64) bool {
	if pool == 0 {
		return true
	}
	active := 0
	for _, dim := range Dimensions {
		if w[dim] > 0 {
			active++
		}
	}
	if active == 0 {
		return false
	}
	share := pool / float64(active)
	for _, dim := range Dimensions {
		if w[dim] > 0 {
			w[dim] += share
		}
	}
	return true
}

func (w Weights) Sum() float64 {
	total := 0.0
	for _, dim := range Dimensions {
		total += w[dim]
	}
	return total
}

// Dot is the weighted sum of scores in dimension order.
func (w Weights) Dot(scores map[string]float64) float64 {
	total := 0.0
	for _, dim := range Dimensions {
		total += w[dim] * scores[dim]
	}
	return total
}
