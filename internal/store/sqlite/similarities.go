package sqlite

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
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_a, user_b, similarity_type) DO UPDATE SET
		overall_score = excluded.overall_score,
		lifestyle_score = excluded.lifestyle_score,
		stuff_overlap_score = excluded.stuff_overlap_score,
		routines_score = excluded.routines_score,
		journey_score = excluded.journey_score,
		rating_score = excluded.rating_score,
		category_score = excluded.category_score,
		stuff_overlap_details = excluded.stuff_overlap_details,
		routines_details = excluded.routines_details,
		calculation_metadata = excluded.calculation_metadata,
		calculated_at = excluded.calculated_at
	`

	_, err = c.db.ExecContext(ctx, query,
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
		string(stuffJSON),
		string(routinesJSON),
		string(metaJSON),
		formatTime(res.CalculatedAt),
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
	WHERE user_a = ?
	  AND similarity_type = ?
	  AND overall_score > ?
	ORDER BY overall_score DESC, user_b
	LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, filter.UserA, simType, filter.MinScore, limitClause(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("listing similarities: %w", err)
	}
	defer rows.Close()

	results := []store.SimilarityResult{}
	for rows.Next() {
		var res store.SimilarityResult
		var stuffText, routinesText, metaText, calculatedAt string
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
			&stuffText,
			&routinesText,
			&metaText,
			&calculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning similarity: %w", err)
		}
		if err := json.Unmarshal([]byte(stuffText), &res.StuffDetail); err != nil {
			return nil, fmt.Errorf("unmarshaling stuff detail: %w", err)
		}
		if err := json.Unmarshal([]byte(routinesText), &res.RoutinesDetail); err != nil {
			return nil, fmt.Errorf("unmarshaling routines detail: %w", err)
		}
		if err := json.Unmarshal([]byte(metaText), &res.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling calculation metadata: %w", err)
		}
		if res.CalculatedAt, err = parseTime(calculatedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similarity rows: %w", err)
	}
	return results, nil
}
