package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"affinity/internal/store"
)

func (c *Client) UpsertSimilarity(ctx context.Context, res store.SimilarityResult) error {
	if strings.TrimSpace(res.UserA) == "" || strings.TrimSpace(res.UserB) == "" {
		return fmt.Errorf("similarity requires both user ids")
	}
	if res.Type == "" {
		res.Type = store.SimilarityLifestyle
	}

	stuffJSON, err := json.Marshal(res.StuffDetail)
	if err != nil {
		return fmt.Errorf("marshaling stuff detail: %w", err)
	}
	routinesJSON, err := json.Marshal(res.RoutinesDetail)
	if err != nil {
		return fmt.Errorf("marshaling routines detail: %w", err)
	}
	metaJSON, err := json.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling calculation metadata: %w", err)
	}

	query := `
INSERT INTO user_similarities (user_a, user_b, similarity_type, overall_score, lifestyle_score,
    stuff_overlap_score, routines_score, journey_score, rating_score, category_score,
    stuff_overlap_details, routines_details, calculation_metadata, calculated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
ON CONFLICT (user_a, user_b, similarity_type) DO UPDATE SET
    overall_score = EXCLUDED.overall_score,
    lifestyle_score = EXCLUDED.lifestyle_score,
    stuff_overlap_score = EXCLUDED.stuff_overlap_score,
    routines_score = EXCLUDED.routines_score,
    journey_score = EXCLUDED.journey_score,
    rating_score = EXCLUDED.rating_score,
    category_score = EXCLUDED.category_score,
    stuff_overlap_details = EXCLUDED.stuff_overlap_details,
    routines_details = EXCLUDED.routines_details,
    calculation_metadata = EXCLUDED.calculation_metadata,
    calculated_at = EXCLUDED.calculated_at
`

	_, err = c.pool.Exec(ctx, query,
		res.UserA,
		res.UserB,
		res.Type,
		res.OverallScore,
		res.LifestyleScore,
		res.StuffOverlapScore,
		res.RoutinesScore,
		res.JourneyScore,
		res.RatingScore,
		res.CategoryScore,
		stuffJSON,
		routinesJSON,
		metaJSON,
		nullTime(res.CalculatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting similarity: %w", err)
	}
	return nil
}

func (c *Client) ListSimilarities(ctx context.Context, filter store.SimilarityFilter) ([]store.SimilarityResult, error) {
	if strings.TrimSpace(filter.UserA) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	simType := filter.Type
	if simType == "" {
		simType = store.SimilarityLifestyle
	}

	query := `
SELECT user_a, user_b, similarity_type, overall_score, lifestyle_score,
       stuff_overlap_score, routines_score, journey_score, rating_score, category_score,
       stuff_overlap_details, routines_details, calculation_metadata, calculated_at
FROM user_similarities
WHERE user_a = $1
  AND similarity_type = $2
  AND overall_score > $3
ORDER BY overall_score DESC, user_b
LIMIT $4
`

	rows, err := c.pool.Query(ctx, query, filter.UserA, simType, filter.MinScore, limitOrAll(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("listing similarities: %w", err)
	}
	defer rows.Close()

	results := []store.SimilarityResult{}
	for rows.Next() {
		var res store.SimilarityResult
		var stuffBytes, routinesBytes, metaBytes []byte
		err := rows.Scan(
			&res.UserA,
			&res.UserB,
			&res.Type,
			&res.OverallScore,
			&res.LifestyleScore,
			&res.StuffOverlapScore,
			&res.RoutinesScore,
			&res.JourneyScore,
			&res.RatingScore,
			&res.CategoryScore,
			&stuffBytes,
			&routinesBytes,
			&metaBytes,
			&res.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning similarity: %w", err)
		}
		if err := unmarshalDetails(stuffBytes, routinesBytes, metaBytes, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similarity rows: %w", err)
	}
	return results, nil
}

func unmarshalDetails(stuff, routines, meta []byte, res *store.SimilarityResult) error {
	if len(stuff) > 0 {
		if err := json.Unmarshal(stuff, &res.StuffDetail); err != nil {
			return fmt.Errorf("unmarshaling stuff detail: %w", err)
		}
	}
	if len(routines) > 0 {
		if err := json.Unmarshal(routines, &res.RoutinesDetail); err != nil {
			return fmt.Errorf("unmarshaling routines detail: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &res.Metadata); err != nil {
			return fmt.Errorf("unmarshaling calculation metadata: %w", err)
		}
	}
	return nil
}
