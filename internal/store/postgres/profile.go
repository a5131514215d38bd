package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"affinity/internal/store"
)

func (c *Client) UpsertStuff(ctx context.Context, item store.StuffItem) error {
	if strings.TrimSpace(item.UserID) == "" || strings.TrimSpace(item.EntityID) == "" {
		return fmt.Errorf("stuff item requires user and entity ids")
	}

	query := `
INSERT INTO user_stuff (user_id, entity_id, status, sentiment_score, category, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), now())
ON CONFLICT (user_id, entity_id) DO UPDATE SET
    status = EXCLUDED.status,
    sentiment_score = EXCLUDED.sentiment_score,
    category = EXCLUDED.category,
    updated_at = now()
`

	_, err := c.pool.Exec(ctx, query, item.UserID, item.EntityID, item.Status, item.Sentiment, item.Category)
	if err != nil {
		return fmt.Errorf("upserting stuff item: %w", err)
	}
	return nil
}

func (c *Client) UpsertRoutine(ctx context.Context, r store.Routine) error {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("routine requires id and user id")
	}

	steps := r.Steps
	if steps == nil {
		steps = []store.RoutineStep{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("marshaling routine steps: %w", err)
	}

	query := `
INSERT INTO user_routines (id, user_id, category, frequency, steps, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    category = EXCLUDED.category,
    frequency = EXCLUDED.frequency,
    steps = EXCLUDED.steps
`

	_, err = c.pool.Exec(ctx, query, r.ID, r.UserID, r.Category, r.Frequency, stepsJSON, nullTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("upserting routine: %w", err)
	}
	return nil
}

func (c *Client) UpsertReview(ctx context.Context, r store.Review) error {
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.EntityID) == "" {
		return fmt.Errorf("review requires user and entity ids")
	}

	query := `
INSERT INTO reviews (user_id, entity_id, rating, category, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (user_id, entity_id) DO UPDATE SET
    rating = EXCLUDED.rating,
    category = EXCLUDED.category
`

	_, err := c.pool.Exec(ctx, query, r.UserID, r.EntityID, r.Rating, r.Category, nullTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("upserting review: %w", err)
	}
	return nil
}

func (c *Client) CountStuff(ctx context.Context, userID string) (int, error) {
	return c.count(ctx, "SELECT COUNT(*) FROM user_stuff WHERE user_id = $1", userID)
}

func (c *Client) CountJourneys(ctx context.Context, userID string) (int, error) {
	return c.count(ctx, "SELECT COUNT(*) FROM user_journeys WHERE user_id = $1", userID)
}

func (c *Client) CountRoutines(ctx context.Context, userID string) (int, error) {
	return c.count(ctx, "SELECT COUNT(*) FROM user_routines WHERE user_id = $1", userID)
}

func (c *Client) CountReviews(ctx context.Context, userID string) (int, error) {
	return c.count(ctx, "SELECT COUNT(*) FROM reviews WHERE user_id = $1", userID)
}

func (c *Client) count(ctx context.Context, query, userID string) (int, error) {
	var n int
	if err := c.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

func (c *Client) ListCandidateUsers(ctx context.Context, excludeUserID string, limit int) ([]string, error) {
	query := `
SELECT user_id FROM (
    SELECT user_id FROM user_stuff
    UNION
    SELECT user_id FROM reviews
    UNION
    SELECT user_id FROM user_journeys
) u
WHERE user_id <> $1
ORDER BY user_id
LIMIT $2
`

	rows, err := c.pool.Query(ctx, query, excludeUserID, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("listing candidate users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning candidate user: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidate users: %w", err)
	}
	return users, nil
}

func (c *Client) ListStuff(ctx context.Context, userID string) ([]store.StuffItem, error) {
	query := `
SELECT user_id, entity_id, status, sentiment_score, COALESCE(category, ''), updated_at
FROM user_stuff
WHERE user_id = $1
ORDER BY entity_id
`
	return c.queryStuff(ctx, query, userID)
}

func (c *Client) ListAllStuff(ctx context.Context) ([]store.StuffItem, error) {
	query := `
SELECT user_id, entity_id, status, sentiment_score, COALESCE(category, ''), updated_at
FROM user_stuff
ORDER BY user_id, entity_id
`
	return c.queryStuff(ctx, query)
}

func (c *Client) queryStuff(ctx context.Context, query string, args ...any) ([]store.StuffItem, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stuff: %w", err)
	}
	defer rows.Close()

	items := []store.StuffItem{}
	for rows.Next() {
		var item store.StuffItem
		var sentiment *int32
		if err := rows.Scan(&item.UserID, &item.EntityID, &item.Status, &sentiment, &item.Category, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning stuff item: %w", err)
		}
		item.Sentiment = intPtr(sentiment)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stuff rows: %w", err)
	}
	return items, nil
}

func (c *Client) ListRoutines(ctx context.Context, userID string) ([]store.Routine, error) {
	query := `
SELECT id, user_id, category, frequency, steps, created_at
FROM user_routines
WHERE user_id = $1
ORDER BY id
`

	rows, err := c.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing routines: %w", err)
	}
	defer rows.Close()

	routines := []store.Routine{}
	for rows.Next() {
		var r store.Routine
		var stepsBytes []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Category, &r.Frequency, &stepsBytes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		if len(stepsBytes) > 0 {
			if err := json.Unmarshal(stepsBytes, &r.Steps); err != nil {
				return nil, fmt.Errorf("unmarshaling routine steps: %w", err)
			}
		}
		if r.Steps == nil {
			r.Steps = []store.RoutineStep{}
		}
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routine rows: %w", err)
	}
	return routines, nil
}

func (c *Client) ListReviews(ctx context.Context, userID string) ([]store.Review, error) {
	query := `
SELECT user_id, entity_id, rating, COALESCE(category, ''), created_at
FROM reviews
WHERE user_id = $1
ORDER BY entity_id
`

	rows, err := c.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := []store.Review{}
	for rows.Next() {
		var r store.Review
		if err := rows.Scan(&r.UserID, &r.EntityID, &r.Rating, &r.Category, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating review rows: %w", err)
	}
	return reviews, nil
}
