package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
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
		updated_at      TEXT NOT NULL,
		PRIMARY KEY (user_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS user_routines (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		frequency  TEXT NOT NULL DEFAULT '',
		steps      TEXT DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_journeys (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		from_entity_id  TEXT NOT NULL,
		to_entity_id    TEXT NOT NULL,
		transition_type TEXT NOT NULL,
		from_sentiment  INTEGER,
		to_sentiment    INTEGER,
		confidence      REAL NOT NULL DEFAULT 0.5,
		evidence_text   TEXT DEFAULT '',
		category        TEXT DEFAULT '',
		created_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		user_id    TEXT NOT NULL,
		entity_id  TEXT NOT NULL,
		rating     REAL NOT NULL,
		category   TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS product_relationships (
		entity_a_id       TEXT NOT NULL,
		entity_b_id       TEXT NOT NULL,
		relationship_type TEXT NOT NULL,
		consensus_count   INTEGER NOT NULL DEFAULT 0,
		avg_confidence    REAL NOT NULL DEFAULT 0,
		updated_at        TEXT NOT NULL,
		PRIMARY KEY (entity_a_id, entity_b_id, relationship_type)
	);

	CREATE TABLE IF NOT EXISTS user_similarities (
		user_a                TEXT NOT NULL,
		user_b                TEXT NOT NULL,
		similarity_type       TEXT NOT NULL,
		overall_score         REAL NOT NULL,
		lifestyle_score       REAL NOT NULL DEFAULT 0,
		stuff_overlap_score   REAL NOT NULL DEFAULT 0,
		routines_score        REAL NOT NULL DEFAULT 0,
		journey_score         REAL NOT NULL DEFAULT 0,
		rating_score          REAL NOT NULL DEFAULT 0,
		category_score        REAL NOT NULL DEFAULT 0,
		stuff_overlap_details TEXT DEFAULT '{}',
		routines_details      TEXT DEFAULT '{}',
		calculation_metadata  TEXT DEFAULT '{}',
		calculated_at         TEXT NOT NULL,
		PRIMARY KEY (user_a, user_b, similarity_type)
	);

	CREATE INDEX IF NOT EXISTS idx_user_stuff_entity ON user_stuff (entity_id);
	CREATE INDEX IF NOT EXISTS idx_user_routines_user ON user_routines (user_id);
	CREATE INDEX IF NOT EXISTS idx_user_journeys_user ON user_journeys (user_id);
	CREATE INDEX IF NOT EXISTS idx_user_journeys_from ON user_journeys (from_entity_id);
	CREATE INDEX IF NOT EXISTS idx_user_journeys_from_type ON user_journeys (from_entity_id, transition_type);
	CREATE INDEX IF NOT EXISTS idx_reviews_entity ON reviews (entity_id);
	CREATE INDEX IF NOT EXISTS idx_product_relationships_a ON product_relationships (entity_a_id);
	CREATE INDEX IF NOT EXISTS idx_user_similarities_score ON user_similarities (user_a, similarity_type, overall_score DESC);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

// splitStatements breaks a DDL script on trailing semicolons, dropping
// comment lines and blank remainders.
func splitStatements(ddl string) []string {
	var statements []string
	var current []string
	flush := func() {
		if stmt := strings.TrimSpace(strings.Join(current, "\n")); stmt != "" {
			statements = append(statements, stmt)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return statements
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}
