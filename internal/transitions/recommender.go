// Package transitions recommends entity-to-entity transitions from the
// journeys of similar users, falling back to population consensus.
package transitions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"affinity/internal/metrics"
	"affinity/internal/richness"
	"affinity/internal/store"
	"affinity/internal/validation"
)

var ErrInvalidRequest = errors.New("invalid recommendation request")

type Options struct {
	DefaultLimit       int
	MaxSimilarUsers    int
	MinSimilarity      float64
	JourneyLimit       int
	ConsensusLimit     int
	FallbackSimilarity float64
}

func DefaultOptions() Options {
	return Options{
		DefaultLimit:       10,
		MaxSimilarUsers:    50,
		MinSimilarity:      0.1,
		JourneyLimit:       200,
		ConsensusLimit:     50,
		FallbackSimilarity: 0.1,
	}
}

type Request struct {
	UserID         string `json:"userId" validate:"required,notblank"`
	EntityID       string `json:"entityId,omitempty"`
	TransitionType string `json:"transitionType,omitempty" validate:"omitempty,oneof=upgrade alternative complementary"`
	Category       string `json:"category,omitempty"`
	Limit          int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type Recommendation struct {
	FromEntity       store.Entity `json:"from_entity"`
	ToEntity         store.Entity `json:"to_entity"`
	TransitionType   string       `json:"transition_type"`
	WeightedScore    float64      `json:"weighted_score"`
	RelevanceScore   float64      `json:"relevance_score"`
	Story            Story        `json:"story"`
	Confidence       string       `json:"confidence"`
	ConsensusCount   int          `json:"consensus_count"`
	Contributors     int          `json:"contributors"`
	LifestyleFactors []string     `json:"lifestyle_factors"`
	Source           string       `json:"source"`
}

const (
	SourcePersonalized = "personalized"
	SourceConsensus    = "consensus"
)

type Metadata struct {
	RichnessMode                 richness.Mode `json:"richness_mode"`
	SimilarUsersFound            int           `json:"similar_users_found"`
	JourneysAnalyzed             int           `json:"journeys_analyzed"`
	GlobalRelationshipsAvailable int           `json:"global_relationships_available"`
	EntitySpecific               bool          `json:"entity_specific"`
	EntitySpecificJourneys       int           `json:"entity_specific_journeys"`
	PersonalizedCount            int           `json:"personalized_count"`
	BackfilledCount              int           `json:"backfilled_count"`
}

type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        Metadata         `json:"metadata"`
}

type Recommender struct {
	db       store.Store
	opts     Options
	logger   zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewRecommender(db store.Store, opts Options, logger zerolog.Logger) *Recommender {
	defaults := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxSimilarUsers <= 0 {
		opts.MaxSimilarUsers = defaults.MaxSimilarUsers
	}
	if opts.JourneyLimit <= 0 {
		opts.JourneyLimit = defaults.JourneyLimit
	}
	if opts.ConsensusLimit <= 0 {
		opts.ConsensusLimit = defaults.ConsensusLimit
	}
	return &Recommender{
		db:       db,
		opts:     opts,
		logger:   logger.With().Str("component", "transitions").Logger(),
		validate: validation.Get(),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for recency scoring.
func (r *Recommender) SetClock(now func() time.Time) {
	r.now = now
}

// Recommend always returns a well-formed response once the request is valid
// and the store reachable; read failures shrink the result instead of
// failing it.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := r.db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("checking store: %w", err)
	}

	start := time.Now()
	limit := req.Limit
	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}

	log := r.logger.With().Str("user_id", req.UserID).Logger()

	similar, err := r.db.ListSimilarities(ctx, store.SimilarityFilter{
		UserA:    req.UserID,
		MinScore: r.opts.MinSimilarity,
		Limit:    r.opts.MaxSimilarUsers,
	})
	if err != nil {
		log.Warn().Err(err).Msg("loading similar users failed")
		similar = nil
	}
	similarByUser := make(map[string]store.SimilarityResult, len(similar))
	similarIDs := make([]string, 0, len(similar))
	for _, s := range similar {
		similarByUser[s.UserB] = s
		similarIDs = append(similarIDs, s.UserB)
	}

	stuff, err := r.db.ListStuff(ctx, req.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("loading tracked items failed")
		stuff = nil
	}
	owned := make(map[string]store.StuffItem, len(stuff))
	ownedIDs := make([]string, 0, len(stuff))
	for _, item := range stuff {
		owned[item.EntityID] = item
		ownedIDs = append(ownedIDs, item.EntityID)
	}

	var fromFilter []string
	if req.EntityID != "" {
		fromFilter = []string{req.EntityID}
	}

	journeys := r.fetchJourneys(ctx, log, req, similarIDs, fromFilter, ownedIDs)

	consensusScope := fromFilter
	if consensusScope == nil && len(ownedIDs) > 0 {
		consensusScope = ownedIDs
	}
	consensus, err := r.db.ListGlobalRelationships(ctx, store.ConsensusFilter{
		EntityAIDs:       consensusScope,
		RelationshipType: req.TransitionType,
		Limit:            r.opts.ConsensusLimit,
	})
	if err != nil {
		log.Warn().Err(err).Msg("loading consensus failed")
		consensus = nil
	}

	entitySpecific := 0
	if req.EntityID != "" {
		for _, j := range journeys {
			if j.FromEntityID == req.EntityID {
				entitySpecific++
			}
		}
	}

	mode := richness.ClassifyContext(richness.ContextCounts{
		SimilarUsers:           len(similar),
		Journeys:               len(journeys),
		EntitySpecificJourneys: entitySpecific,
		Consensus:              len(consensus),
	})

	var groups []*group
	if mode != richness.Sparse {
		groups = r.personalize(ctx, log, req, journeys, similarByUser, owned)
	}
	if len(groups) > limit {
		groups = groups[:limit]
	}

	present := make(map[pairKey]bool, len(groups))
	for _, g := range groups {
		present[g.key] = true
	}
	backfill := backfillGroups(consensus, present, limit-len(groups))

	cache := NewEntityCache(r.db)
	ids := make([]string, 0, 2*(len(groups)+len(backfill)))
	for _, g := range groups {
		ids = append(ids, g.key.from, g.key.to)
	}
	for _, g := range backfill {
		ids = append(ids, g.key.from, g.key.to)
	}
	if err := cache.Load(ctx, ids); err != nil {
		log.Warn().Err(err).Msg("entity lookup failed, using ids as names")
	}

	recs := make([]Recommendation, 0, len(groups)+len(backfill))
	for _, g := range groups {
		recs = append(recs, r.toRecommendation(mode, g, cache))
	}
	for _, g := range backfill {
		recs = append(recs, r.toRecommendation(mode, g, cache))
	}

	metrics.RecordRecommendation(string(mode), len(backfill), time.Since(start))
	log.Info().
		Str("mode", string(mode)).
		Int("similar_users", len(similar)).
		Int("journeys", len(journeys)).
		Int("consensus", len(consensus)).
		Int("personalized", len(groups)).
		Int("backfilled", len(backfill)).
		Msg("recommendations built")

	return &Response{
		Recommendations: recs,
		Metadata: Metadata{
			RichnessMode:                 mode,
			SimilarUsersFound:            len(similar),
			JourneysAnalyzed:             len(journeys),
			GlobalRelationshipsAvailable: len(consensus),
			EntitySpecific:               req.EntityID != "",
			EntitySpecificJourneys:       entitySpecific,
			PersonalizedCount:            len(groups),
			BackfilledCount:              len(backfill),
		},
	}, nil
}

// fetchJourneys prefers journeys authored by similar users. With none, it
// falls back to any other user's journeys leaving the requested entity, or
// leaving something the user tracks.
func (r *Recommender) fetchJourneys(ctx context.Context, log zerolog.Logger, req Request, similarIDs, fromFilter, ownedIDs []string) []store.Journey {
	if len(similarIDs) > 0 {
		journeys, err := r.db.ListJourneys(ctx, store.JourneyFilter{
			UserIDs:        similarIDs,
			FromEntityIDs:  fromFilter,
			TransitionType: req.TransitionType,
			Limit:          r.opts.JourneyLimit,
		})
		if err != nil {
			log.Warn().Err(err).Msg("loading similar users' journeys failed")
		} else if len(journeys) > 0 {
			return journeys
		}
	}

	scope := fromFilter
	if scope == nil {
		scope = ownedIDs
	}
	if len(scope) == 0 {
		return []store.Journey{}
	}

	journeys, err := r.db.ListJourneys(ctx, store.JourneyFilter{
		ExcludeUserID:  req.UserID,
		FromEntityIDs:  scope,
		TransitionType: req.TransitionType,
		Limit:          r.opts.JourneyLimit,
	})
	if err != nil {
		log.Warn().Err(err).Msg("loading fallback journeys failed")
		return []store.Journey{}
	}
	return journeys
}

func (r *Recommender) personalize(ctx context.Context, log zerolog.Logger, req Request, journeys []store.Journey, similarByUser map[string]store.SimilarityResult, owned map[string]store.StuffItem) []*group {
	if len(journeys) == 0 {
		return nil
	}

	now := r.now()
	scored := make([]scoredJourney, 0, len(journeys))
	for _, j := range journeys {
		if j.UserID == req.UserID {
			continue
		}
		sim := r.opts.FallbackSimilarity
		var factors []string
		if s, ok := similarByUser[j.UserID]; ok {
			sim = s.OverallScore
			factors = lifestyleFactors(s)
		}
		rel := Relevance(j, owned, req.Category, sim, now)
		scored = append(scored, scoredJourney{
			journey:    j,
			similarity: sim,
			relevance:  rel,
			weighted:   Weighted(sim, j.Confidence, rel),
			factors:    factors,
		})
	}

	groups := groupJourneys(scored)

	fromIDs := make([]string, 0, len(groups))
	seen := map[string]bool{}
	for _, g := range groups {
		if !seen[g.key.from] {
			seen[g.key.from] = true
			fromIDs = append(fromIDs, g.key.from)
		}
	}
	rels, err := r.db.ListGlobalRelationships(ctx, store.ConsensusFilter{EntityAIDs: fromIDs})
	if err != nil {
		log.Warn().Err(err).Msg("loading consensus for boost failed")
		rels = nil
	}
	applyConsensusBoost(groups, consensusIndex(rels))

	rankGroups(groups)
	return groups
}

func (r *Recommender) toRecommendation(mode richness.Mode, g *group, cache *EntityCache) Recommendation {
	from, to := cache.Get(g.key.from), cache.Get(g.key.to)

	rec := Recommendation{
		FromEntity:       from,
		ToEntity:         to,
		TransitionType:   g.transitionType,
		WeightedScore:    g.weightedScore,
		RelevanceScore:   g.maxRelevance,
		Story:            narrate(mode, g, from, to),
		Confidence:       mode.Confidence(),
		ConsensusCount:   g.consensusCount,
		Contributors:     len(g.contributors),
		LifestyleFactors: sortedKeys(g.factors),
		Source:           SourcePersonalized,
	}
	if g.fromConsensus {
		rec.RelevanceScore = 0
		rec.Confidence = richness.Sparse.Confidence()
		rec.Source = SourceConsensus
	}
	return rec
}

// lifestyleFactors are the categories a similar user shares with the
// requester, taken from the stored routine and stuff details.
func lifestyleFactors(s store.SimilarityResult) []string {
	out := make([]string, 0, len(s.RoutinesDetail.CommonCategories)+len(s.StuffDetail.CommonCategories))
	out = append(out, s.RoutinesDetail.CommonCategories...)
	out = append(out, s.StuffDetail.CommonCategories...)
	return out
}
