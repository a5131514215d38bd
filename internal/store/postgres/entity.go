package postgres

import (
	"context"
	"fmt"
	"strings"

	"affinity/internal/store"
)

func (c *Client) UpsertEntity(ctx context.Context, e store.Entity) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id is required")
	}

	query := `
INSERT INTO entities (id, name, category, brand, image_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    image_url = EXCLUDED.image_url
`

	_, err := c.pool.Exec(ctx, query, e.ID, e.Name, e.Category, e.Brand, e.ImageURL)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

func (c *Client) GetEntities(ctx context.Context, ids []string) ([]store.Entity, error) {
	if len(ids) == 0 {
		return []store.Entity{}, nil
	}

	query := `
SELECT id, name, COALESCE(category, ''), COALESCE(brand, ''), COALESCE(image_url, '')
FROM entities
WHERE id = ANY($1)
ORDER BY id
`
	return c.queryEntities(ctx, query, ids)
}

func (c *Client) ListEntities(ctx context.Context) ([]store.Entity, error) {
	query := `
SELECT id, name, COALESCE(category, ''), COALESCE(brand, ''), COALESCE(image_url, '')
FROM entities
ORDER BY id
`
	return c.queryEntities(ctx, query)
}

func (c *Client) queryEntities(ctx context.Context, query string, args ...any) ([]store.Entity, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	entities := []store.Entity{}
	for rows.Next() {
		var e store.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Brand, &e.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}

	return entities, nil
}
