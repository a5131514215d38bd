package transitions

import (
	"math"
	"sort"

	"affinity/internal/store"
)

type pairKey struct {
	from, to string
}

// group aggregates every journey sharing one (from, to) pair.
type group struct {
	key            pairKey
	transitionType string
	weightedScore  float64
	journeys       int
	maxRelevance   float64
	contributors   map[string]bool

	sentimentBefore []int
	sentimentAfter  []int
	evidence        string
	factors         map[string]bool

	consensusCount int
	fromConsensus  bool
}

// scoredJourney is one journey with its author's similarity and the
// per-request scores derived from it.
type scoredJourney struct {
	journey    store.Journey
	similarity float64
	relevance  float64
	weighted   float64
	factors    []string
}

// groupJourneys folds journeys into groups in input order; the first journey
// seen for a pair fixes its transition type and evidence candidate.
func groupJourneys(scored []scoredJourney) []*group {
	index := map[pairKey]*group{}
	var groups []*group

	for _, s := range scored {
		k := pairKey{s.journey.FromEntityID, s.journey.ToEntityID}
		g, ok := index[k]
		if !ok {
			g = &group{
				key:            k,
				transitionType: s.journey.TransitionType,
				maxRelevance:   s.relevance,
				contributors:   map[string]bool{},
				factors:        map[string]bool{},
			}
			index[k] = g
			groups = append(groups, g)
		}

		g.weightedScore += s.weighted
		g.journeys++
		g.contributors[s.journey.UserID] = true
		if s.relevance > g.maxRelevance {
			g.maxRelevance = s.relevance
		}
		if s.journey.FromSentiment != nil {
			g.sentimentBefore = append(g.sentimentBefore, *s.journey.FromSentiment)
		}
		if s.journey.ToSentiment != nil {
			g.sentimentAfter = append(g.sentimentAfter, *s.journey.ToSentiment)
		}
		if g.evidence == "" && s.journey.EvidenceText != "" {
			g.evidence = s.journey.EvidenceText
		}
		for _, f := range s.factors {
			g.factors[f] = true
		}
	}
	return groups
}

// applyConsensusBoost multiplies each group's score by sqrt(count) for its
// pair's consensus count. A missing pair counts as 1.
func applyConsensusBoost(groups []*group, consensus map[pairKey]int) {
	for _, g := range groups {
		count := consensus[g.key]
		g.consensusCount = count
		g.weightedScore *= boostFactor(count)
	}
}

func boostFactor(count int) float64 {
	if count < 1 {
		count = 1
	}
	return math.Sqrt(float64(count))
}

// consensusIndex keeps the largest count per (from, to) across
// relationship types.
func consensusIndex(rels []store.GlobalRelationship) map[pairKey]int {
	out := make(map[pairKey]int, len(rels))
	for _, rel := range rels {
		k := pairKey{rel.EntityAID, rel.EntityBID}
		if rel.ConsensusCount > out[k] {
			out[k] = rel.ConsensusCount
		}
	}
	return out
}

// relevanceBand is the width within which relevance scores count as equal.
const relevanceBand = 0.1

// rankGroups orders groups by relevance, treating scores within one band of
// the band's leader as equal, then by weighted score, then by pair ids.
func rankGroups(groups []*group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].maxRelevance != groups[j].maxRelevance {
			return groups[i].maxRelevance > groups[j].maxRelevance
		}
		return lessByScore(groups[i], groups[j])
	})

	for start := 0; start < len(groups); {
		leader := groups[start].maxRelevance
		end := start + 1
		for end < len(groups) && leader-groups[end].maxRelevance < relevanceBand+1e-9 {
			end++
		}
		band := groups[start:end]
		sort.SliceStable(band, func(i, j int) bool { return lessByScore(band[i], band[j]) })
		start = end
	}
}

func lessByScore(a, b *group) bool {
	if a.weightedScore != b.weightedScore {
		return a.weightedScore > b.weightedScore
	}
	if a.key.from != b.key.from {
		return a.key.from < b.key.from
	}
	return a.key.to < b.key.to
}

// backfillGroups turns consensus rows into groups scored
// avg_confidence * sqrt(consensus_count), skipping pairs already present.
func backfillGroups(rels []store.GlobalRelationship, present map[pairKey]bool, want int) []*group {
	if want <= 0 {
		return nil
	}

	candidates := make([]*group, 0, len(rels))
	seen := map[pairKey]bool{}
	for _, rel := range rels {
		k := pairKey{rel.EntityAID, rel.EntityBID}
		if present[k] || seen[k] {
			continue
		}
		seen[k] = true
		candidates = append(candidates, &group{
			key:            k,
			transitionType: rel.RelationshipType,
			weightedScore:  rel.AvgConfidence * boostFactor(rel.ConsensusCount),
			consensusCount: rel.ConsensusCount,
			fromConsensus:  true,
			contributors:   map[string]bool{},
			factors:        map[string]bool{},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return lessByScore(candidates[i], candidates[j]) })
	if len(candidates) > want {
		candidates = candidates[:want]
	}
	return candidates
}

func average(values []int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values)), true
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
