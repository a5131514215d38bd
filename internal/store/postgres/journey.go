package postgres

import (
	"context"
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
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    from_entity_id = EXCLUDED.from_entity_id,
    to_entity_id = EXCLUDED.to_entity_id,
    transition_type = EXCLUDED.transition_type,
    from_sentiment = EXCLUDED.from_sentiment,
    to_sentiment = EXCLUDED.to_sentiment,
    confidence = EXCLUDED.confidence,
    evidence_text = EXCLUDED.evidence_text,
    category = EXCLUDED.category
`

	_, err := c.pool.Exec(ctx, query,
		j.ID,
		j.UserID,
		j.FromEntityID,
		j.ToEntityID,
		j.TransitionType,
		j.FromSentiment,
		j.ToSentiment,
		j.Confidence,
		j.EvidenceText,
		j.Category,
		nullTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting journey: %w", err)
	}
	return nil
}

func (c *Client) ListJourneys(ctx context.Context, filter store.JourneyFilter) ([]store.Journey, error) {
	// A nil slice encodes as NULL (no restriction); an empty one matches nothing.
	query := `
SELECT id, user_id, from_entity_id, to_entity_id, transition_type,
       from_sentiment, to_sentiment, confidence, COALESCE(evidence_text, ''), COALESCE(category, ''), created_at
FROM user_journeys
WHERE ($1::text[] IS NULL OR user_id = ANY($1))
  AND ($2 = '' OR user_id <> $2)
  AND ($3::text[] IS NULL OR from_entity_id = ANY($3))
  AND ($4 = '' OR transition_type = $4)
ORDER BY created_at DESC, id
LIMIT $5
`

	rows, err := c.pool.Query(ctx, query, filter.UserIDs, filter.ExcludeUserID, filter.FromEntityIDs, filter.TransitionType, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	defer rows.Close()

	journeys := []store.Journey{}
	for rows.Next() {
		var j store.Journey
		var fromSentiment, toSentiment *int32
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
			&j.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning journey: %w", err)
		}
		j.FromSentiment = intPtr(fromSentiment)
		j.ToSentiment = intPtr(toSentiment)
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journey rows: %w", err)
	}
	return journeys, nil
}
