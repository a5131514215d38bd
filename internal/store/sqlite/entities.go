package sqlite

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
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		category = excluded.category,
		brand = excluded.brand,
		image_url = excluded.image_url
	`

	_, err := c.db.ExecContext(ctx, query, e.ID, e.Name, e.Category, e.Brand, e.ImageURL)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

func (c *Client) GetEntities(ctx context.Context, ids []string) ([]store.Entity, error) {
	if len(ids) == 0 {
		return []store.Entity{}, nil
	}

	query := fmt.Sprintf(`
	SELECT id, name, COALESCE(category, ''), COALESCE(brand, ''), COALESCE(image_url, '')
	FROM entities
	WHERE id IN (%s)
	ORDER BY id
	`, placeholders(len(ids)))

	return c.queryEntities(ctx, query, stringArgs(ids)...)
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
	rows, err := c.db.QueryContext(ctx, query, args...)
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
