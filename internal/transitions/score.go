package transitions

import (
	"time"

	"affinity/internal/store"
)

const (
	tracksFromBonus      = 0.3
	unhappyBonus         = 0.2
	queryCategoryBonus   = 0.2
	ownCategoryBonus     = 0.15
	similarityRelevance  = 0.2
	recentBonus          = 0.1
	recentWindow         = 30 * 24 * time.Hour
	somewhatRecentBonus  = 0.05
	somewhatRecentWindow = 90 * 24 * time.Hour
)

// Relevance scores how applicable one journey is to the requesting user. It
// is not capped.
func Relevance(j store.Journey, owned map[string]store.StuffItem, queryCategory string, similarity float64, now time.Time) float64 {
	score := 0.0

	item, tracks := owned[j.FromEntityID]
	if tracks {
		score += tracksFromBonus
		if item.Sentiment != nil && *item.Sentiment <= 0 {
			score += unhappyBonus
		}
	}

	switch {
	case queryCategory != "" && j.Category == queryCategory:
		score += queryCategoryBonus
	case tracks && item.Category != "" && j.Category == item.Category:
		score += ownCategoryBonus
	}

	score += similarity * similarityRelevance

	age := now.Sub(j.CreatedAt)
	switch {
	case age < recentWindow:
		score += recentBonus
	case age < somewhatRecentWindow:
		score += somewhatRecentBonus
	}

	return score
}

// Weighted is the contribution of one journey to its group's score.
func Weighted(similarity, confidence, relevance float64) float64 {
	return similarity * confidence * (1 + relevance)
}
