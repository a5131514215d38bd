package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (entity_a_id, entity_b_id, relationship_type) DO UPDATE SET
		consensus_count = excluded.consensus_count,
		avg_confidence = excluded.avg_confidence,
		updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(ctx, query,
		rel.EntityAID,
		rel.EntityBID,
		rel.RelationshipType,
		rel.ConsensusCount,
		rel.AvgConfidence,
		formatTime(rel.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting global relationship: %w", err)
	}
	return nil
}

func (c *Client) RebuildGlobalRelationships(ctx context.Context) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	DELETE FROM product_relationships
	WHERE NOT EXISTS (
		SELECT 1 FROM user_journeys j
		WHERE j.from_entity_id = product_relationships.entity_a_id
		  AND j.to_entity_id = product_relationships.entity_b_id
		  AND j.transition_type = product_relationships.relationship_type
	)`)
	if err != nil {
		return 0, fmt.Errorf("pruning global relationships: %w", err)
	}

	// "WHERE true" disambiguates ON CONFLICT from a join constraint.
	res, err := tx.ExecContext(ctx, `
	INSERT INTO product_relationships (entity_a_id, entity_b_id, relationship_type, consensus_count, avg_confidence, updated_at)
	SELECT from_entity_id, to_entity_id, transition_type, COUNT(DISTINCT user_id), AVG(confidence), ?
	FROM user_journeys
	WHERE true
	GROUP BY from_entity_id, to_entity_id, transition_type
	ON CONFLICT (entity_a_id, entity_b_id, relationship_type) DO UPDATE SET
		consensus_count = excluded.consensus_count,
		avg_confidence = excluded.avg_confidence,
		updated_at = excluded.updated_at
	`, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("rebuilding global relationships: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return n, nil
}

func (c *Client) ListGlobalRelationships(ctx context.Context, filter store.ConsensusFilter) ([]store.GlobalRelationship, error) {
	var where []string
	var args []any

	if filter.EntityAIDs != nil {
		if len(filter.EntityAIDs) == 0 {
			return []store.GlobalRelationship{}, nil
		}
		where = append(where, fmt.Sprintf("entity_a_id IN (%s)", placeholders(len(filter.EntityAIDs))))
		args = append(args, stringArgs(filter.EntityAIDs)...)
	}
	if filter.RelationshipType != "" {
		where = append(where, "relationship_type = ?")
		args = append(args, filter.RelationshipType)
	}

	query := `
	SELECT entity_a_id, entity_b_id, relationship_type, consensus_count, avg_confidence, updated_at
	FROM product_relationships
	`
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY consensus_count DESC, avg_confidence DESC, entity_a_id, entity_b_id\nLIMIT ?"
	args = append(args, limitClause(filter.Limit))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing global relationships: %w", err)
	}
	defer rows.Close()

	rels := []store.GlobalRelationship{}
	for rows.Next() {
		var rel store.GlobalRelationship
		var updatedAt string
		err := rows.Scan(&rel.EntityAID, &rel.EntityBID, &rel.RelationshipType, &rel.ConsensusCount, &rel.AvgConfidence, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning global relationship: %w", err)
		}
		if rel.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating global relationships: %w", err)
	}
	return rels, nil
}
