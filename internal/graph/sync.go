package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"affinity/internal/store"
)

const syncBatchSize = 500

// SyncEntities merges entity nodes by id and refreshes their properties.
func (c *Client) SyncEntities(ctx context.Context, entities []store.Entity) (int, error) {
	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, entityParams(e))
	}

	const query = `
UNWIND $rows AS row
MERGE (e:Entity {id: row.id})
SET e.name = row.name, e.category = row.category, e.brand = row.brand
`
	if err := c.writeBatches(ctx, query, rows); err != nil {
		return 0, fmt.Errorf("syncing entities: %w", err)
	}
	return len(rows), nil
}

// SyncJourneys merges one TRANSITION edge per journey, keyed by journey id.
// Endpoints missing from the entity sync are created as bare id nodes.
func (c *Client) SyncJourneys(ctx context.Context, journeys []store.Journey) (int, error) {
	rows := make([]map[string]any, 0, len(journeys))
	for _, j := range journeys {
		rows = append(rows, journeyParams(j))
	}

	const query = `
UNWIND $rows AS row
MERGE (a:Entity {id: row.from_id})
MERGE (b:Entity {id: row.to_id})
MERGE (a)-[t:TRANSITION {journey_id: row.journey_id}]->(b)
SET t.type = row.type, t.user_id = row.user_id, t.confidence = row.confidence, t.category = row.category
`
	if err := c.writeBatches(ctx, query, rows); err != nil {
		return 0, fmt.Errorf("syncing journeys: %w", err)
	}
	return len(rows), nil
}

// RemoveStaleTransitions deletes edges whose journey no longer exists.
func (c *Client) RemoveStaleTransitions(ctx context.Context, currentJourneyIDs []string) (int64, error) {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	const query = `
MATCH ()-[t:TRANSITION]->()
WHERE NOT t.journey_id IN $current
DELETE t
RETURN count(t) AS deleted
`

	if currentJourneyIDs == nil {
		currentJourneyIDs = []string{}
	}

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"current": currentJourneyIDs})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			value, _ := res.Record().Get("deleted")
			if count, ok := value.(int64); ok {
				return count, nil
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return int64(0), nil
	})
	if err != nil {
		return 0, fmt.Errorf("removing stale transitions: %w", err)
	}

	return result.(int64), nil
}

func (c *Client) writeBatches(ctx context.Context, query string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, batch := range batches(rows, syncBatchSize) {
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, query, map[string]any{"rows": batch})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		}); err != nil {
			return err
		}
	}
	return nil
}

func batches[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func entityParams(e store.Entity) map[string]any {
	return map[string]any{
		"id":       e.ID,
		"name":     e.Name,
		"category": e.Category,
		"brand":    e.Brand,
	}
}

func journeyParams(j store.Journey) map[string]any {
	return map[string]any{
		"journey_id": j.ID,
		"from_id":    j.FromEntityID,
		"to_id":      j.ToEntityID,
		"type":       j.TransitionType,
		"user_id":    j.UserID,
		"confidence": j.Confidence,
		"category":   j.Category,
	}
}
