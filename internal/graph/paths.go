package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TransitionPath aggregates the edges from one entity to another of one type.
type TransitionPath struct {
	FromID         string
	ToID           string
	ToName         string
	TransitionType string
	Users          int
	AvgConfidence  float64
}

type Stats struct {
	Entities    int64
	Transitions int64
}

// TransitionPaths lists outgoing transitions from entityID, most corroborated
// first.
func (c *Client) TransitionPaths(ctx context.Context, entityID string, limit int) ([]TransitionPath, error) {
	if limit <= 0 {
		limit = 20
	}

	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	const query = `
MATCH (a:Entity {id: $id})-[t:TRANSITION]->(b:Entity)
WITH b, t.type AS type, count(DISTINCT t.user_id) AS users, avg(t.confidence) AS confidence
RETURN b.id AS to_id, coalesce(b.name, b.id) AS to_name, type, users, confidence
ORDER BY users DESC, confidence DESC, to_id, type
LIMIT $limit
`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": entityID, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		paths := make([]TransitionPath, 0)
		for res.Next(ctx) {
			record := res.Record()
			path := TransitionPath{FromID: entityID}
			if v, ok := record.Get("to_id"); ok {
				path.ToID, _ = v.(string)
			}
			if v, ok := record.Get("to_name"); ok {
				path.ToName, _ = v.(string)
			}
			if v, ok := record.Get("type"); ok {
				path.TransitionType, _ = v.(string)
			}
			if v, ok := record.Get("users"); ok {
				if n, ok := v.(int64); ok {
					path.Users = int(n)
				}
			}
			if v, ok := record.Get("confidence"); ok {
				path.AvgConfidence, _ = v.(float64)
			}
			paths = append(paths, path)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return paths, nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying transition paths: %w", err)
	}

	return result.([]TransitionPath), nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	const query = `
OPTIONAL MATCH (e:Entity)
WITH count(e) AS entities
OPTIONAL MATCH ()-[t:TRANSITION]->()
RETURN entities, count(t) AS transitions
`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		var stats Stats
		if res.Next(ctx) {
			record := res.Record()
			if v, ok := record.Get("entities"); ok {
				stats.Entities, _ = v.(int64)
			}
			if v, ok := record.Get("transitions"); ok {
				stats.Transitions, _ = v.(int64)
			}
		}
		return stats, res.Err()
	})
	if err != nil {
		return Stats{}, fmt.Errorf("counting graph: %w", err)
	}

	return result.(Stats), nil
}
