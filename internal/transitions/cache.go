package transitions

import (
	"context"
	"fmt"

	"affinity/internal/store"
)

// EntityCache memoizes entity lookups for a single recommendation call. It
// is not safe for concurrent use and must not outlive the request.
type EntityCache struct {
	db      store.Store
	entries map[string]store.Entity
}

func NewEntityCache(db store.Store) *EntityCache {
	return &EntityCache{db: db, entries: map[string]store.Entity{}}
}

// Load fetches every id not already cached in one gateway call. Ids the
// gateway does not know are cached as bare references.
func (c *EntityCache) Load(ctx context.Context, ids []string) error {
	var missing []string
	seen := map[string]bool{}
	for _, id := range ids {
		if _, ok := c.entries[id]; ok || seen[id] || id == "" {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	entities, err := c.db.GetEntities(ctx, missing)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}
	for _, e := range entities {
		c.entries[e.ID] = e
	}
	for _, id := range missing {
		if _, ok := c.entries[id]; !ok {
			c.entries[id] = store.Entity{ID: id, Name: id}
		}
	}
	return nil
}

// Get returns the cached entity, or a reference carrying only the id.
func (c *EntityCache) Get(id string) store.Entity {
	if e, ok := c.entries[id]; ok {
		return e
	}
	return store.Entity{ID: id, Name: id}
}
