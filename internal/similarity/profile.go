package similarity

import (
	"context"
	"fmt"
	"sync"

	"affinity/internal/store"
)

// memo caches one load per key for the lifetime of a single calculation.
// Concurrent callers of the same key wait for the first load.
type memo[T any] struct {
	mu      sync.Mutex
	entries map[string]*memoEntry[T]
}

type memoEntry[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (m *memo[T]) get(key string, load func() (T, error)) (T, error) {
	m.mu.Lock()
	if m.entries == nil {
		m.entries = map[string]*memoEntry[T]{}
	}
	e, ok := m.entries[key]
	if !ok {
		e = &memoEntry[T]{}
		m.entries[key] = e
	}
	m.mu.Unlock()

	e.once.Do(func() { e.val, e.err = load() })
	return e.val, e.err
}

// profiles loads per-user rows once per calculation. The target user's rows
// are shared by every candidate comparison.
type profiles struct {
	db store.Store

	stuff    memo[[]store.StuffItem]
	routines memo[[]store.Routine]
	journeys memo[[]store.Journey]
	reviews  memo[[]store.Review]
}

func newProfiles(db store.Store) *profiles {
	return &profiles{db: db}
}

func (p *profiles) Stuff(ctx context.Context, userID string) ([]store.StuffItem, error) {
	return p.stuff.get(userID, func() ([]store.StuffItem, error) {
		items, err := p.db.ListStuff(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading stuff for %s: %w", userID, err)
		}
		return items, nil
	})
}

func (p *profiles) Routines(ctx context.Context, userID string) ([]store.Routine, error) {
	return p.routines.get(userID, func() ([]store.Routine, error) {
		routines, err := p.db.ListRoutines(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading routines for %s: %w", userID, err)
		}
		return routines, nil
	})
}

func (p *profiles) Journeys(ctx context.Context, userID string) ([]store.Journey, error) {
	return p.journeys.get(userID, func() ([]store.Journey, error) {
		journeys, err := p.db.ListJourneys(ctx, store.JourneyFilter{UserIDs: []string{userID}})
		if err != nil {
			return nil, fmt.Errorf("loading journeys for %s: %w", userID, err)
		}
		return journeys, nil
	})
}

func (p *profiles) Reviews(ctx context.Context, userID string) ([]store.Review, error) {
	return p.reviews.get(userID, func() ([]store.Review, error) {
		reviews, err := p.db.ListReviews(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading reviews for %s: %w", userID, err)
		}
		return reviews, nil
	})
}
