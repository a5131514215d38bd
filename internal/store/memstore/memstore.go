// Package memstore is an in-memory store.Store used by tests and by the CLI
// when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"affinity/internal/store"
)

var _ store.Store = (*Store)(nil)

type pairKey struct{ a, b, kind string }

type Store struct {
	mu sync.RWMutex

	entities     map[string]store.Entity
	stuff        map[string]map[string]store.StuffItem
	routines     map[string]store.Routine
	journeys     map[string]store.Journey
	reviews      map[string]map[string]store.Review
	relations    map[pairKey]store.GlobalRelationship
	similarities map[pairKey]store.SimilarityResult

	// PingErr, when set, is returned by Ping.
	PingErr error
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entities:     map[string]store.Entity{},
		stuff:        map[string]map[string]store.StuffItem{},
		routines:     map[string]store.Routine{},
		journeys:     map[string]store.Journey{},
		reviews:      map[string]map[string]store.Review{},
		relations:    map[pairKey]store.GlobalRelationship{},
		similarities: map[pairKey]store.SimilarityResult{},
		now:          time.Now,
	}
}

// SetClock replaces the clock used to stamp rows written without a timestamp.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Close(ctx context.Context) error        { return nil }
func (s *Store) EnsureSchema(ctx context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.PingErr
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t
}

func (s *Store) UpsertEntity(ctx context.Context, e store.Entity) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
	return nil
}

func (s *Store) UpsertStuff(ctx context.Context, item store.StuffItem) error {
	if strings.TrimSpace(item.UserID) == "" || strings.TrimSpace(item.EntityID) == "" {
		return fmt.Errorf("stuff item requires user and entity ids")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stuff[item.UserID] == nil {
		s.stuff[item.UserID] = map[string]store.StuffItem{}
	}
	item.UpdatedAt = s.stamp(item.UpdatedAt)
	s.stuff[item.UserID][item.EntityID] = item
	return nil
}

func (s *Store) UpsertRoutine(ctx context.Context, r store.Routine) error {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("routine requires id and user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Steps == nil {
		r.Steps = []store.RoutineStep{}
	}
	r.CreatedAt = s.stamp(r.CreatedAt)
	s.routines[r.ID] = r
	return nil
}

func (s *Store) UpsertJourney(ctx context.Context, j store.Journey) error {
	if strings.TrimSpace(j.ID) == "" || strings.TrimSpace(j.UserID) == "" {
		return fmt.Errorf("journey requires id and user id")
	}
	if !store.IsValidTransitionType(j.TransitionType) {
		return fmt.Errorf("invalid transition type: %s", j.TransitionType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j.CreatedAt = s.stamp(j.CreatedAt)
	s.journeys[j.ID] = j
	return nil
}

func (s *Store) UpsertReview(ctx context.Context, r store.Review) error {
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.EntityID) == "" {
		return fmt.Errorf("review requires user and entity ids")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reviews[r.UserID] == nil {
		s.reviews[r.UserID] = map[string]store.Review{}
	}
	r.CreatedAt = s.stamp(r.CreatedAt)
	s.reviews[r.UserID][r.EntityID] = r
	return nil
}

func (s *Store) UpsertGlobalRelationship(ctx context.Context, rel store.GlobalRelationship) error {
	if strings.TrimSpace(rel.EntityAID) == "" || strings.TrimSpace(rel.EntityBID) == "" {
		return fmt.Errorf("relationship requires both entity ids")
	}
	if !store.IsValidTransitionType(rel.RelationshipType) {
		return fmt.Errorf("invalid relationship type: %s", rel.RelationshipType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rel.UpdatedAt = s.stamp(rel.UpdatedAt)
	s.relations[pairKey{rel.EntityAID, rel.EntityBID, rel.RelationshipType}] = rel
	return nil
}

func (s *Store) UpsertSimilarity(ctx context.Context, res store.SimilarityResult) error {
	if strings.TrimSpace(res.UserA) == "" || strings.TrimSpace(res.UserB) == "" {
		return fmt.Errorf("similarity requires both user ids")
	}
	if res.Type == "" {
		res.Type = store.SimilarityLifestyle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res.CalculatedAt = s.stamp(res.CalculatedAt)
	s.similarities[pairKey{res.UserA, res.UserB, res.Type}] = res
	return nil
}

func (s *Store) RebuildGlobalRelationships(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type agg struct {
		users map[string]struct{}
		sum   float64
		n     int
	}
	groups := map[pairKey]*agg{}
	for _, j := range s.journeys {
		k := pairKey{j.FromEntityID, j.ToEntityID, j.TransitionType}
		g := groups[k]
		if g == nil {
			g = &agg{users: map[string]struct{}{}}
			groups[k] = g
		}
		g.users[j.UserID] = struct{}{}
		g.sum += j.Confidence
		g.n++
	}

	now := s.now().UTC()
	rebuilt := map[pairKey]store.GlobalRelationship{}
	for k, g := range groups {
		rebuilt[k] = store.GlobalRelationship{
			EntityAID:        k.a,
			EntityBID:        k.b,
			RelationshipType: k.kind,
			ConsensusCount:   len(g.users),
			AvgConfidence:    g.sum / float64(g.n),
			UpdatedAt:        now,
		}
	}
	s.relations = rebuilt
	return int64(len(rebuilt)), nil
}

func (s *Store) CountStuff(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stuff[userID]), nil
}

func (s *Store) CountJourneys(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, j := range s.journeys {
		if j.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountRoutines(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.routines {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountReviews(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews[userID]), nil
}

func (s *Store) GetEntities(ctx context.Context, ids []string) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.Entity{}
	seen := map[string]bool{}
	for _, id := range ids {
		if e, ok := s.entities[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListEntities(ctx context.Context) ([]store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListCandidateUsers(ctx context.Context, excludeUserID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := map[string]struct{}{}
	for u := range s.stuff {
		set[u] = struct{}{}
	}
	for u := range s.reviews {
		set[u] = struct{}{}
	}
	for _, j := range s.journeys {
		set[j.UserID] = struct{}{}
	}
	delete(set, excludeUserID)

	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Strings(users)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) ListStuff(ctx context.Context, userID string) ([]store.StuffItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.StuffItem, 0, len(s.stuff[userID]))
	for _, item := range s.stuff[userID] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (s *Store) ListAllStuff(ctx context.Context) ([]store.StuffItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.StuffItem{}
	for _, items := range s.stuff {
		for _, item := range items {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

func (s *Store) ListRoutines(ctx context.Context, userID string) ([]store.Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.Routine{}
	for _, r := range s.routines {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListReviews(ctx context.Context, userID string) ([]store.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Review, 0, len(s.reviews[userID]))
	for _, r := range s.reviews[userID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (s *Store) ListJourneys(ctx context.Context, filter store.JourneyFilter) ([]store.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := toSet(filter.UserIDs)
	froms := toSet(filter.FromEntityIDs)

	out := []store.Journey{}
	for _, j := range s.journeys {
		if users != nil && !users[j.UserID] {
			continue
		}
		if filter.ExcludeUserID != "" && j.UserID == filter.ExcludeUserID {
			continue
		}
		if froms != nil && !froms[j.FromEntityID] {
			continue
		}
		if filter.TransitionType != "" && j.TransitionType != filter.TransitionType {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListGlobalRelationships(ctx context.Context, filter store.ConsensusFilter) ([]store.GlobalRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	as := toSet(filter.EntityAIDs)
	out := []store.GlobalRelationship{}
	for _, rel := range s.relations {
		if as != nil && !as[rel.EntityAID] {
			continue
		}
		if filter.RelationshipType != "" && rel.RelationshipType != filter.RelationshipType {
			continue
		}
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConsensusCount != out[j].ConsensusCount {
			return out[i].ConsensusCount > out[j].ConsensusCount
		}
		if out[i].AvgConfidence != out[j].AvgConfidence {
			return out[i].AvgConfidence > out[j].AvgConfidence
		}
		if out[i].EntityAID != out[j].EntityAID {
			return out[i].EntityAID < out[j].EntityAID
		}
		return out[i].EntityBID < out[j].EntityBID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListSimilarities(ctx context.Context, filter store.SimilarityFilter) ([]store.SimilarityResult, error) {
	if strings.TrimSpace(filter.UserA) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	simType := filter.Type
	if simType == "" {
		simType = store.SimilarityLifestyle
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []store.SimilarityResult{}
	for k, res := range s.similarities {
		if k.a != filter.UserA || k.kind != simType || res.OverallScore <= filter.MinScore {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].UserB < out[j].UserB
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// toSet returns nil for a nil slice so callers can tell "no filter" from
// "match nothing".
func toSet(values []string) map[string]bool {
	if values == nil {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
