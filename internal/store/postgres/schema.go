package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All statements run in one implicit transaction. IF NOT EXISTS keeps the
	// call idempotent; column changes need a real migration.
	ddl := `
CREATE TABLE IF NOT EXISTS entities (
    id        TEXT PRIMARY KEY,
    name      TEXT NOT NULL,
    category  TEXT DEFAULT '',
    brand     TEXT DEFAULT '',
    image_url TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_stuff (
    user_id         TEXT NOT NULL,
    entity_id       TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT '',
    sentiment_score INTEGER,
    category        TEXT,
    updated_at      TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (user_id, entity_id)
);

CREATE TABLE IF NOT EXISTS user_routines (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '',
    frequency  TEXT NOT NULL DEFAULT '',
    steps      JSONB DEFAULT '[]',
    created_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_journeys (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    from_entity_id  TEXT NOT NULL,
    to_entity_id    TEXT NOT NULL,
    transition_type TEXT NOT NULL,
    from_sentiment  INTEGER,
    to_sentiment    INTEGER,
    confidence      DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    evidence_text   TEXT DEFAULT '',
    category        TEXT DEFAULT '',
    created_at      TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
    user_id    TEXT NOT NULL,
    entity_id  TEXT NOT NULL,
    rating     DOUBLE PRECISION NOT NULL,
    category   TEXT DEFAULT '',
    created_at TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (user_id, entity_id)
);

CREATE TABLE IF NOT EXISTS product_relationships (
    entity_a_id       TEXT NOT NULL,
    entity_b_id       TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    consensus_count   INTEGER NOT NULL DEFAULT 0,
    avg_confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at        TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (entity_a_id, entity_b_id, relationship_type)
);

CREATE TABLE IF NOT EXISTS user_similarities (
    user_a                TEXT NOT NULL,
    user_b                TEXT NOT NULL,
    similarity_type       TEXT NOT NULL,
    overall_score         DOUBLE PRECISION NOT NULL,
    lifestyle_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    stuff_overlap_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
    routines_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
    journey_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    rating_score          DOUBLE PRECISION NOT NULL DEFAULT 0,
    category_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
    stuff_overlap_details JSONB DEFAULT '{}',
    routines_details      JSONB DEFAULT '{}',
    calculation_metadata  JSONB DEFAULT '{}',
    calculated_at         TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (user_a, user_b, similarity_type)
);

CREATE INDEX IF NOT EXISTS idx_user_stuff_entity ON user_stuff (entity_id);
CREATE INDEX IF NOT EXISTS idx_user_routines_user ON user_routines (user_id);
CREATE INDEX IF NOT EXISTS idx_user_journeys_user ON user_journeys (user_id);
CREATE INDEX IF NOT EXISTS idx_user_journeys_from ON user_journeys (from_entity_id);
CREATE INDEX IF NOT EXISTS idx_user_journeys_from_type ON user_journeys (from_entity_id, transition_type);
CREATE INDEX IF NOT EXISTS idx_reviews_entity ON reviews (entity_id);
CREATE INDEX IF NOT EXISTS idx_product_relationships_a ON product_relationships (entity_a_id);
CREATE INDEX IF NOT EXISTS idx_product_relationships_count ON product_relationships (consensus_count DESC);
CREATE INDEX IF NOT EXISTS idx_user_similarities_score ON user_similarities (user_a, similarity_type, overall_score DESC);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
