// Package graph mirrors journeys into Neo4j as
// (:Entity)-[:TRANSITION]->(:Entity) edges for exploration.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

var schemaStatements = []string{
	`CREATE CONSTRAINT entity_unique_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
	`CREATE INDEX entity_category IF NOT EXISTS FOR (e:Entity) ON (e.category)`,
	`CREATE INDEX transition_journey IF NOT EXISTS FOR ()-[t:TRANSITION]-() ON (t.journey_id)`,
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver for %s: %w", cfg.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("reaching neo4j at %s: %w", cfg.URI, err)
	}
	return &Client{driver: driver, database: cfg.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: mode})
}

// EnsureIndexes creates the entity constraint and lookup indexes. It is
// safe to call on every sync.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		// Schema changes cannot share a transaction with each other.
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("applying graph schema %q: %w", stmt, err)
		}
	}
	return nil
}
