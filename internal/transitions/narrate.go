package transitions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"affinity/internal/richness"
	"affinity/internal/store"
)

type Story struct {
	Headline        string  `json:"headline"`
	Description     string  `json:"description"`
	SentimentChange *string `json:"sentiment_change"`
	EvidenceQuote   *string `json:"evidence_quote"`
}

// narrate builds the story for one group. Evidence is only quoted in RICH
// mode; consensus backfill always reads as SPARSE.
func narrate(mode richness.Mode, g *group, from, to store.Entity) Story {
	if g.fromConsensus {
		mode = richness.Sparse
	}
	fromName, toName := displayName(from), displayName(to)

	story := Story{SentimentChange: sentimentChange(g)}

	switch mode {
	case richness.Rich:
		n := len(g.contributors)
		switch g.transitionType {
		case store.TransitionUpgrade:
			story.Headline = fmt.Sprintf("%d similar %s upgraded to %s", n, plural(n, "user", "users"), toName)
		case store.TransitionAlternative:
			story.Headline = fmt.Sprintf("%d similar %s switched to %s", n, plural(n, "user", "users"), toName)
		default:
			story.Headline = fmt.Sprintf("%d similar %s pair %s with %s", n, plural(n, "user", "users"), fromName, toName)
		}
		story.Description = fmt.Sprintf("People whose lifestyle matches yours moved from %s to %s.", fromName, toName)
		if factors := sortedKeys(g.factors); len(factors) > 0 {
			story.Description += " You share " + strings.Join(factors, ", ") + "."
		}
		if g.evidence != "" {
			quote := g.evidence
			story.EvidenceQuote = &quote
		}

	case richness.Moderate:
		switch g.transitionType {
		case store.TransitionUpgrade:
			story.Headline = fmt.Sprintf("Users upgraded to %s", toName)
		case store.TransitionAlternative:
			story.Headline = fmt.Sprintf("%s is a popular alternative to %s", toName, fromName)
		default:
			story.Headline = fmt.Sprintf("%s is often paired with %s", toName, fromName)
		}
		story.Description = fmt.Sprintf("Seen in %d %s from users with related interests.", g.journeys, plural(g.journeys, "journey", "journeys"))

	default:
		switch g.transitionType {
		case store.TransitionUpgrade:
			story.Headline = fmt.Sprintf("Popular upgrade: %s", toName)
		case store.TransitionAlternative:
			story.Headline = fmt.Sprintf("Popular alternative: %s", toName)
		default:
			story.Headline = fmt.Sprintf("Popular pairing: %s + %s", fromName, toName)
		}
		count := max(g.consensusCount, len(g.contributors))
		story.Description = fmt.Sprintf("Chosen by %d %s across the community.", count, plural(count, "person", "people"))
	}

	return story
}

// sentimentChange describes the average sentiment shift, or nil when either
// side is unknown.
func sentimentChange(g *group) *string {
	before, okBefore := average(g.sentimentBefore)
	after, okAfter := average(g.sentimentAfter)
	if !okBefore || !okAfter {
		return nil
	}

	diff := math.Round((after-before)*10) / 10
	var s string
	switch {
	case diff > 0:
		s = "+" + strconv.FormatFloat(diff, 'f', -1, 64) + " improvement"
	case diff < 0:
		s = strconv.FormatFloat(diff, 'f', -1, 64) + " change"
	default:
		s = "Similar satisfaction"
	}
	return &s
}

func displayName(e store.Entity) string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
