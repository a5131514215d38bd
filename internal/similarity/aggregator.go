// Package similarity scores lifestyle affinity between a user and a pool of
// candidate users and persists the surviving pairs.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"affinity/internal/metrics"
	"affinity/internal/richness"
	"affinity/internal/store"
	"affinity/internal/validation"
)

var ErrInvalidRequest = errors.New("invalid similarity request")

const (
	FailureModeZero         = "zero"
	FailureModeRedistribute = "redistribute"
)

type Options struct {
	CandidatePool    int
	DefaultLimit     int
	MaxLimit         int
	Concurrency      int
	MinOverallScore  float64
	RecalculateAfter time.Duration
	FailureMode      string
	TopResults       int
}

func DefaultOptions() Options {
	return Options{
		CandidatePool:    100,
		DefaultLimit:     50,
		MaxLimit:         100,
		Concurrency:      4,
		MinOverallScore:  0.01,
		RecalculateAfter: 24 * time.Hour,
		FailureMode:      FailureModeZero,
		TopResults:       10,
	}
}

type Request struct {
	UserID           string `json:"userId" validate:"required,notblank"`
	Limit            int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
	ForceRecalculate bool   `json:"forceRecalculate,omitempty"`
}

type TopSimilarity struct {
	UserID         string             `json:"userId"`
	OverallScore   float64            `json:"overallScore"`
	LifestyleScore float64            `json:"lifestyleScore"`
	EffectiveMode  string             `json:"effectiveMode"`
	Scores         map[string]float64 `json:"scores"`
	CalculatedAt   time.Time          `json:"calculatedAt"`
}

type Response struct {
	Success                bool             `json:"success"`
	SimilaritiesCalculated int              `json:"similaritiesCalculated"`
	ProcessedUsers         int              `json:"processedUsers"`
	SkippedFresh           int              `json:"skippedFresh"`
	UserMode               richness.Mode    `json:"userMode"`
	UserCounts             store.UserCounts `json:"userCounts"`
	TopSimilarities        []TopSimilarity  `json:"topSimilarities"`
}

type Aggregator struct {
	db       store.Store
	corr     RatingCorrelation
	opts     Options
	logger   zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewAggregator(db store.Store, corr RatingCorrelation, opts Options, logger zerolog.Logger) *Aggregator {
	defaults := DefaultOptions()
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = defaults.CandidatePool
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaults.MaxLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.FailureMode == "" {
		opts.FailureMode = defaults.FailureMode
	}
	if opts.TopResults <= 0 {
		opts.TopResults = defaults.TopResults
	}
	return &Aggregator{
		db:       db,
		corr:     corr,
		opts:     opts,
		logger:   logger.With().Str("component", "similarity").Logger(),
		validate: validation.Get(),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for timestamps and freshness checks.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Calculate scores req.UserID against up to Limit candidates and upserts every
// pair scoring above MinOverallScore. Individual candidate, dimension and
// upsert failures are logged and skipped; only invalid input or an
// unreachable store fail the call.
func (a *Aggregator) Calculate(ctx context.Context, req Request) (*Response, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := a.db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("checking store: %w", err)
	}

	start := time.Now()
	defer func() { metrics.SimilarityDuration.Observe(time.Since(start).Seconds()) }()

	limit := req.Limit
	if limit <= 0 {
		limit = a.opts.DefaultLimit
	}
	limit = min(limit, a.opts.MaxLimit)

	log := a.logger.With().Str("user_id", req.UserID).Logger()
	prof := newProfiles(a.db)

	target, err := richness.ClassifyUser(ctx, a.db, req.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("count query failed, treating as zero")
	}

	candidates, err := a.db.ListCandidateUsers(ctx, req.UserID, a.opts.CandidatePool)
	if err != nil {
		return nil, fmt.Errorf("listing candidate users: %w", err)
	}

	skipped := 0
	if !req.ForceRecalculate {
		candidates, skipped = a.dropFresh(ctx, log, req.UserID, candidates)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*store.SimilarityResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			res, err := a.scorePair(gctx, log, prof, req.UserID, target, candidate)
			if err != nil {
				metrics.RecordPair("failed")
				log.Warn().Err(err).Str("candidate_id", candidate).Msg("skipping candidate")
				return nil
			}
			metrics.RecordPair("computed")
			results[i] = res
			return nil
		})
	}
	g.Wait()

	persisted := []store.SimilarityResult{}
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.OverallScore <= a.opts.MinOverallScore {
			metrics.RecordPair("discarded")
			continue
		}
		if err := a.db.UpsertSimilarity(ctx, *res); err != nil {
			metrics.UpsertFailures.Inc()
			log.Warn().Err(err).Str("candidate_id", res.UserB).Msg("persisting similarity failed")
			continue
		}
		metrics.RecordPair("persisted")
		persisted = append(persisted, *res)
	}

	log.Info().
		Int("processed", len(candidates)).
		Int("persisted", len(persisted)).
		Int("skipped_fresh", skipped).
		Str("mode", string(target.Mode)).
		Msg("similarity calculation complete")

	return &Response{
		Success:                true,
		SimilaritiesCalculated: len(persisted),
		ProcessedUsers:         len(candidates),
		SkippedFresh:           skipped,
		UserMode:               target.Mode,
		UserCounts:             target.Counts,
		TopSimilarities:        a.top(persisted),
	}, nil
}

// dropFresh removes candidates whose stored row is younger than
// RecalculateAfter. A failed lookup keeps every candidate.
func (a *Aggregator) dropFresh(ctx context.Context, log zerolog.Logger, userID string, candidates []string) ([]string, int) {
	if a.opts.RecalculateAfter <= 0 {
		return candidates, 0
	}
	existing, err := a.db.ListSimilarities(ctx, store.SimilarityFilter{UserA: userID, MinScore: -1})
	if err != nil {
		log.Warn().Err(err).Msg("loading existing similarities failed, recalculating all")
		return candidates, 0
	}

	cutoff := a.now().Add(-a.opts.RecalculateAfter)
	fresh := make(map[string]bool, len(existing))
	for _, res := range existing {
		if res.CalculatedAt.After(cutoff) {
			fresh[res.UserB] = true
		}
	}

	kept := make([]string, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if fresh[c] {
			skipped++
			metrics.RecordPair("skipped_fresh")
			continue
		}
		kept = append(kept, c)
	}
	return kept, skipped
}

func (a *Aggregator) scorePair(ctx context.Context, log zerolog.Logger, prof *profiles, userA string, target richness.Classification, userB string) (*store.SimilarityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log = log.With().Str("candidate_id", userB).Logger()

	other, err := richness.ClassifyUser(ctx, a.db, userB)
	if err != nil {
		log.Warn().Err(err).Msg("count query failed, treating as zero")
	}

	mode := richness.Min(target.Mode, other.Mode)
	avail := Availability{
		Stuff:    target.Counts.Stuff > 0 && other.Counts.Stuff > 0,
		Routines: target.Counts.Routines > 0 && other.Counts.Routines > 0,
		Journeys: target.Counts.Journeys > 0 && other.Counts.Journeys > 0,
	}
	weights := AllocateWeights(mode, avail)

	scores := make(map[string]float64, len(Dimensions))
	for _, dim := range Dimensions {
		scores[dim] = 0
	}
	var (
		mu             sync.Mutex
		failed         []string
		stuffDetail    = store.StuffOverlapDetail{CommonEntities: []string{}, CommonCategories: []string{}}
		routinesDetail = store.RoutinesDetail{CommonCategories: []string{}, MatchingFrequencies: []string{}, SharedStepEntities: []string{}}
		journeyDetail  *store.JourneyDetail
	)

	type scorer func(ctx context.Context) (float64, error)
	scorers := map[string]scorer{
		DimStuffOverlap: func(ctx context.Context) (float64, error) {
			sa, sb, err := pair(ctx, userA, userB, prof.Stuff)
			if err != nil {
				return 0, err
			}
			score, detail := StuffOverlap(sa, sb)
			mu.Lock()
			stuffDetail = detail
			mu.Unlock()
			return score, nil
		},
		DimRoutines: func(ctx context.Context) (float64, error) {
			ra, rb, err := pair(ctx, userA, userB, prof.Routines)
			if err != nil {
				return 0, err
			}
			score, detail := RoutinesSimilarity(ra, rb)
			mu.Lock()
			routinesDetail = detail
			mu.Unlock()
			return score, nil
		},
		DimJourneys: func(ctx context.Context) (float64, error) {
			ja, jb, err := pair(ctx, userA, userB, prof.Journeys)
			if err != nil {
				return 0, err
			}
			score, detail := JourneyAlignment(ja, jb)
			mu.Lock()
			journeyDetail = &detail
			mu.Unlock()
			return score, nil
		},
		DimRatingPatterns: func(ctx context.Context) (float64, error) {
			if a.corr == nil {
				return 0, fmt.Errorf("no rating correlation configured")
			}
			score, err := a.corr.Correlate(ctx, userA, userB)
			if err != nil {
				return 0, fmt.Errorf("correlating ratings: %w", err)
			}
			return clamp01(score), nil
		},
		DimCategoryPreferences: func(ctx context.Context) (float64, error) {
			sa, sb, err := pair(ctx, userA, userB, prof.Stuff)
			if err != nil {
				return 0, err
			}
			ra, rb, err := pair(ctx, userA, userB, prof.Reviews)
			if err != nil {
				return 0, err
			}
			return CategoryPreferences(sa, ra, sb, rb), nil
		},
	}

	// Dimensions are independent; the weighted sum waits for all of them.
	g, gctx := errgroup.WithContext(ctx)
	for _, dim := range Dimensions {
		if weights[dim] <= 0 {
			continue
		}
		g.Go(func() error {
			score, err := scorers[dim](gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, dim)
				metrics.RecordDimensionFailure(dim)
				log.Warn().Err(err).Str("dimension", dim).Msg("dimension failed, scoring as zero")
				return nil
			}
			scores[dim] = score
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Strings(failed)
	if a.opts.FailureMode == FailureModeRedistribute && len(failed) > 0 {
		weights = Redistribute(weights, failed)
	}

	now := a.now().UTC()
	overall := weights.Dot(scores)
	return &store.SimilarityResult{
		UserA:             userA,
		UserB:             userB,
		Type:              store.SimilarityLifestyle,
		OverallScore:      overall,
		LifestyleScore:    0.5*scores[DimRoutines] + 0.5*scores[DimCategoryPreferences],
		StuffOverlapScore: scores[DimStuffOverlap],
		RoutinesScore:     scores[DimRoutines],
		JourneyScore:      scores[DimJourneys],
		RatingScore:       scores[DimRatingPatterns],
		CategoryScore:     scores[DimCategoryPreferences],
		StuffDetail:       stuffDetail,
		RoutinesDetail:    routinesDetail,
		Metadata: store.CalculationMetadata{
			UserAMode:        string(target.Mode),
			UserBMode:        string(other.Mode),
			EffectiveMode:    string(mode),
			UserACounts:      target.Counts,
			UserBCounts:      other.Counts,
			Weights:          weights,
			Scores:           scores,
			FailedDimensions: failed,
			FailureMode:      a.opts.FailureMode,
			JourneyDetail:    journeyDetail,
			CalculatedAt:     now,
		},
		CalculatedAt: now,
	}, nil
}

func (a *Aggregator) top(results []store.SimilarityResult) []TopSimilarity {
	sorted := make([]store.SimilarityResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OverallScore != sorted[j].OverallScore {
			return sorted[i].OverallScore > sorted[j].OverallScore
		}
		return sorted[i].UserB < sorted[j].UserB
	})
	if len(sorted) > a.opts.TopResults {
		sorted = sorted[:a.opts.TopResults]
	}

	out := make([]TopSimilarity, 0, len(sorted))
	for _, res := range sorted {
		out = append(out, toTop(res))
	}
	return out
}

func pair[T any](ctx context.Context, userA, userB string, load func(context.Context, string) (T, error)) (T, T, error) {
	var zero T
	a, err := load(ctx, userA)
	if err != nil {
		return zero, zero, err
	}
	b, err := load(ctx, userB)
	if err != nil {
		return zero, zero, err
	}
	return a, b, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
