package similarity

import (
	"math"
	"sort"

	"affinity/internal/store"
)

const (
	statusMatchBonus     = 0.10
	sentimentMatchBonus  = 0.05
	sentimentTolerance   = 2
	frequencyMatchBonus  = 0.10
	stepEntityBonus      = 0.05
	stepEntityBonusCap   = 0.20
	identicalJourneyGain = 0.3
	divergentPathGain    = 0.1
	transitionTypeWeight = 0.2
)

// StuffOverlap scores the Jaccard overlap of two users' tracked entities plus
// per-entity bonuses for matching status and close sentiment.
func StuffOverlap(a, b []store.StuffItem) (float64, store.StuffOverlapDetail) {
	detail := store.StuffOverlapDetail{
		CommonEntities:   []string{},
		CommonCategories: []string{},
	}

	byEntity := make(map[string]store.StuffItem, len(a))
	for _, item := range a {
		byEntity[item.EntityID] = item
	}
	seenB := make(map[string]bool, len(b))
	for _, item := range b {
		seenB[item.EntityID] = true
	}

	union := len(byEntity)
	for id := range seenB {
		if _, ok := byEntity[id]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0, detail
	}

	for _, itemB := range b {
		itemA, ok := byEntity[itemB.EntityID]
		if !ok {
			continue
		}
		delete(byEntity, itemB.EntityID)
		detail.CommonEntities = append(detail.CommonEntities, itemB.EntityID)
		if itemA.Status == itemB.Status {
			detail.StatusMatches++
		}
		if itemA.Sentiment != nil && itemB.Sentiment != nil && abs(*itemA.Sentiment-*itemB.Sentiment) <= sentimentTolerance {
			detail.SentimentMatches++
		}
	}
	sort.Strings(detail.CommonEntities)
	detail.CommonCategories = intersect(stuffCategories(a), stuffCategories(b))

	detail.Jaccard = float64(len(detail.CommonEntities)) / float64(union)
	score := detail.Jaccard +
		statusMatchBonus*float64(detail.StatusMatches) +
		sentimentMatchBonus*float64(detail.SentimentMatches)
	return math.Min(1, score), detail
}

// RoutinesSimilarity compares routine categories, their frequencies and the
// entities referenced by routine steps.
func RoutinesSimilarity(a, b []store.Routine) (float64, store.RoutinesDetail) {
	detail := store.RoutinesDetail{
		CommonCategories:    []string{},
		MatchingFrequencies: []string{},
		SharedStepEntities:  []string{},
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, detail
	}

	freqA := routineFrequencies(a)
	freqB := routineFrequencies(b)

	for category, fa := range freqA {
		fb, ok := freqB[category]
		if !ok {
			continue
		}
		detail.CommonCategories = append(detail.CommonCategories, category)
		if fa == fb {
			detail.MatchingFrequencies = append(detail.MatchingFrequencies, category)
		}
	}
	sort.Strings(detail.CommonCategories)
	sort.Strings(detail.MatchingFrequencies)

	detail.SharedStepEntities = intersect(stepEntities(a), stepEntities(b))

	largest := max(len(freqA), len(freqB))
	if largest > 0 {
		detail.CategoryOverlapRatio = float64(len(detail.CommonCategories)) / float64(largest)
	}

	score := detail.CategoryOverlapRatio +
		frequencyMatchBonus*float64(len(detail.MatchingFrequencies)) +
		math.Min(stepEntityBonusCap, stepEntityBonus*float64(len(detail.SharedStepEntities)))
	return math.Min(1, score), detail
}

// JourneyAlignment rewards users whose journeys leave from the same entities,
// most of all when they also arrive at the same place.
func JourneyAlignment(a, b []store.Journey) (float64, store.JourneyDetail) {
	detail := store.JourneyDetail{SharedStartingPoints: []string{}}
	if len(a) == 0 || len(b) == 0 {
		return 0, detail
	}

	graphA := journeyGraph(a)
	graphB := journeyGraph(b)

	for from, destA := range graphA {
		destB, ok := graphB[from]
		if !ok {
			continue
		}
		detail.SharedStartingPoints = append(detail.SharedStartingPoints, from)
		for to := range destA {
			if destB[to] {
				detail.IdenticalJourneys++
			} else {
				detail.DivergentPaths++
			}
		}
		for to := range destB {
			if !destA[to] {
				detail.DivergentPaths++
			}
		}
	}
	sort.Strings(detail.SharedStartingPoints)

	histA := typeHistogram(a)
	histB := typeHistogram(b)
	types := make(map[string]bool, len(histA)+len(histB))
	for t := range histA {
		types[t] = true
	}
	for t := range histB {
		types[t] = true
	}
	if len(types) > 0 {
		ordered := make([]string, 0, len(types))
		for t := range types {
			ordered = append(ordered, t)
		}
		sort.Strings(ordered)

		total := 0.0
		for _, t := range ordered {
			ca, cb := histA[t], histB[t]
			total += float64(min(ca, cb)) / float64(max(ca, cb, 1))
		}
		detail.TypeSimilarity = total / float64(len(ordered))
	}

	score := identicalJourneyGain*float64(detail.IdenticalJourneys) +
		divergentPathGain*float64(detail.DivergentPaths) +
		transitionTypeWeight*detail.TypeSimilarity
	return math.Min(1, score), detail
}

// CategoryPreferences is the cosine similarity of the users' category
// frequency vectors built from reviews and tracked items.
func CategoryPreferences(stuffA []store.StuffItem, reviewsA []store.Review, stuffB []store.StuffItem, reviewsB []store.Review) float64 {
	vecA := categoryVector(stuffA, reviewsA)
	vecB := categoryVector(stuffB, reviewsB)

	keys := make([]string, 0, len(vecA)+len(vecB))
	for k := range vecA {
		keys = append(keys, k)
	}
	for k := range vecB {
		if _, ok := vecA[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var dot, magA, magB float64
	for _, k := range keys {
		va, vb := vecA[k], vecB[k]
		dot += va * vb
		magA += va * va
		magB += vb * vb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return math.Min(1, dot/(math.Sqrt(magA)*math.Sqrt(magB)))
}

func categoryVector(stuff []store.StuffItem, reviews []store.Review) map[string]float64 {
	counts := map[string]float64{}
	total := 0.0
	for _, item := range stuff {
		if item.Category != "" {
			counts[item.Category]++
			total++
		}
	}
	for _, r := range reviews {
		if r.Category != "" {
			counts[r.Category]++
			total++
		}
	}
	for k := range counts {
		counts[k] /= total
	}
	return counts
}

// routineFrequencies maps category to the frequency of its first routine.
func routineFrequencies(routines []store.Routine) map[string]string {
	out := make(map[string]string, len(routines))
	for _, r := range routines {
		if _, ok := out[r.Category]; !ok {
			out[r.Category] = r.Frequency
		}
	}
	return out
}

func stepEntities(routines []store.Routine) map[string]bool {
	out := map[string]bool{}
	for _, r := range routines {
		for _, step := range r.Steps {
			if step.EntityID != "" {
				out[step.EntityID] = true
			}
		}
	}
	return out
}

func stuffCategories(items []store.StuffItem) map[string]bool {
	out := map[string]bool{}
	for _, item := range items {
		if item.Category != "" {
			out[item.Category] = true
		}
	}
	return out
}

func journeyGraph(journeys []store.Journey) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, j := range journeys {
		if out[j.FromEntityID] == nil {
			out[j.FromEntityID] = map[string]bool{}
		}
		out[j.FromEntityID][j.ToEntityID] = true
	}
	return out
}

func typeHistogram(journeys []store.Journey) map[string]int {
	out := map[string]int{}
	for _, j := range journeys {
		out[j.TransitionType]++
	}
	return out
}

func intersect(a, b map[string]bool) []string {
	out := []string{}
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
