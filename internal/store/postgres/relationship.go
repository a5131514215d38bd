package postgres

import (
	"context"
	"fmt"
	"strings"

	"affinity/internal/store"
)

func (c *Client) UpsertGlobalRelationship(ctx context.Context, rel store.GlobalRelationship) error {
	if strings.TrimSpace(rel.EntityAID) == "" || strings.TrimSpace(rel.EntityBID) == "" {
		return fmt.Errorf("relationship requires both entity ids")
	}
	if !store.IsValidTransitionType(rel.RelationshipType) {
		return fmt.Errorf("invalid relationship type: %s", rel.RelationshipType)
	}

	query := `
INSERT INTO product_relationships (entity_a_id, entity_b_id, relationship_type, consensus_count, avg_confidence, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (entity_a_id, entity_b_id, relationship_type) DO UPDATE SET
    consensus_count = EXCLUDED.consensus_count,
    avg_confidence = EXCLUDED.avg_confidence,
    updated_at = now()
`

	_, err := c.pool.Exec(ctx, query, rel.EntityAID, rel.EntityBID, rel.RelationshipType, rel.ConsensusCount, rel.AvgConfidence)
	if err != nil {
		return fmt.Errorf("upserting global relationship: %w", err)
	}
	return nil
}

// RebuildGlobalRelationships recomputes the consensus table from every
// user's journeys. Pairs no longer backed by any journey are removed.
func (c *Client) RebuildGlobalRelationships(ctx context.Context) (int64, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
DELETE FROM product_relationships pr
WHERE NOT EXISTS (
    SELECT 1 FROM user_journeys j
    WHERE j.from_entity_id = pr.entity_a_id
      AND j.to_entity_id = pr.entity_b_id
      AND j.transition_type = pr.relationship_type
)`)
	if err != nil {
		return 0, fmt.Errorf("pruning global relationships: %w", err)
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO product_relationships (entity_a_id, entity_b_id, relationship_type, consensus_count, avg_confidence, updated_at)
SELECT from_entity_id, to_entity_id, transition_type, COUNT(DISTINCT user_id), AVG(confidence), now()
FROM user_journeys
GROUP BY from_entity_id, to_entity_id, transition_type
ON CONFLICT (entity_a_id, entity_b_id, relationship_type) DO UPDATE SET
    consensus_count = EXCLUDED.consensus_count,
    avg_confidence = EXCLUDED.avg_confidence,
    updated_at = now()
`)
	if err != nil {
		return 0, fmt.Errorf("rebuilding global relationships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (c *Client) ListGlobalRelationships(ctx context.Context, filter store.ConsensusFilter) ([]store.GlobalRelationship, error) {
	query := `
SELECT entity_a_id, entity_b_id, relationship_type, consensus_count, avg_confidence, updated_at
FROM product_relationships
WHERE ($1::text[] IS NULL OR entity_a_id = ANY($1))
  AND ($2 = '' OR relationship_type = $2)
ORDER BY consensus_count DESC, avg_confidence DESC, entity_a_id, entity_b_id
LIMIT $3
`

	rows, err := c.pool.Query(ctx, query, filter.EntityAIDs, filter.RelationshipType, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("listing global relationships: %w", err)
	}
	defer rows.Close()

	rels := []store.GlobalRelationship{}
	for rows.Next() {
		var rel store.GlobalRelationship
		err := rows.Scan(&rel.EntityAID, &rel.EntityBID, &rel.RelationshipType, &rel.ConsensusCount, &rel.AvgConfidence, &rel.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning global relationship: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating global relationships: %w", err)
	}
	return rels, nil
}
