package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"affinity/internal/store"
)

func (c *Client) UpsertJourney(ctx context.Context, j store.Journey) error {
	if strings.TrimSpace(j.ID) == "" || strings.TrimSpace(j.UserID) == "" {
		return fmt.Errorf("journey requires id and user id")
	}
	if !store.IsValidTransitionType(j.TransitionType) {
		return fmt.Errorf("invalid transition type: %s", j.TransitionType)
	}

	query := `
	INSERT INTO user_journeys (id, user_id, from_entity_id, to_entity_id, transition_type,
		from_sentiment, to_sentiment, confidence, evidence_text, category, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		user_id = excluded.user_id,
		from_entity_id = excluded.from_entity_id,
		to_entity_id = excluded.to_entity_id,
		transition_type = excluded.transition_type,
		from_sentiment = excluded.from_sentiment,
		to_sentiment = excluded.to_sentiment,
		confidence = excluded.confidence,
		evidence_text = excluded.evidence_text,
		category = excluded.category
	`

	_, err := c.db.ExecContext(ctx, query,
		j.ID,
		j.UserID,
		j.FromEntityID,
		j.ToEntityID,
		j.TransitionType,
		nullInt(j.FromSentiment),
		nullInt(j.ToSentiment),
		j.Confidence,
		j.EvidenceText,
		j.Category,
		formatTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting journey: %w", err)
	}
	return nil
}

func (c *Client) ListJourneys(ctx context.Context, filter store.JourneyFilter) ([]store.Journey, error) {
	var where []string
	var args []any

	// A nil slice means no restriction; an empty one matches nothing.
	if filter.UserIDs != nil {
		if len(filter.UserIDs) == 0 {
			return []store.Journey{}, nil
		}
		where = append(where, fmt.Sprintf("user_id IN (%s)", placeholders(len(filter.UserIDs))))
		args = append(args, stringArgs(filter.UserIDs)...)
	}
	if filter.ExcludeUserID != "" {
		where = append(where, "user_id <> ?")
		args = append(args, filter.ExcludeUserID)
	}
	if filter.FromEntityIDs != nil {
		if len(filter.FromEntityIDs) == 0 {
			return []store.Journey{}, nil
		}
		where = append(where, fmt.Sprintf("from_entity_id IN (%s)", placeholders(len(filter.FromEntityIDs))))
		args = append(args, stringArgs(filter.FromEntityIDs)...)
	}
	if filter.TransitionType != "" {
		where = append(where, "transition_type = ?")
		args = append(args, filter.TransitionType)
	}

	query := `
	SELECT id, user_id, from_entity_id, to_entity_id, transition_type,
		from_sentiment, to_sentiment, confidence, COALESCE(evidence_text, ''), COALESCE(category, ''), created_at
	FROM user_journeys
	`
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY created_at DESC, id\nLIMIT ?"
	args = append(args, limitClause(filter.Limit))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	defer rows.Close()

	journeys := []store.Journey{}
	for rows.Next() {
		var j store.Journey
		var fromSentiment, toSentiment sql.NullInt64
		var createdAt string
		err := rows.Scan(
			&j.ID,
			&j.UserID,
			&j.FromEntityID,
			&j.ToEntityID,
			&j.TransitionType,
			&fromSentiment,
			&toSentiment,
			&j.Confidence,
			&j.EvidenceText,
			&j.Category,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning journey: %w", err)
		}
		j.FromSentiment = intFromNull(fromSentiment)
		j.ToSentiment = intFromNull(toSentiment)
		if j.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journey rows: %w", err)
	}
	return journeys, nil
}
