//go:build integration

package graph

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func testConfig() Config {
	cfg := Config{URI: "bolt://localhost:7687", Username: "neo4j", Password: "changeme", Database: "neo4j"}
	if uri := os.Getenv("AFFINITY_TEST_NEO4J_URI"); uri != "" {
		cfg.URI = uri
	}
	return cfg
}

func testClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	client, err := NewClient(ctx, testConfig())
	if err != nil {
		t.Fatalf("connecting to test neo4j: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(ctx) })
	return client
}

func TestNewClientRejectsBadCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Password = "wrong"
	client, err := NewClient(context.Background(), cfg)
	if err == nil {
		_ = client.Close(context.Background())
		t.Fatalf("expected authentication error")
	}
}

func TestEnsureIndexesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	for i := 0; i < 2; i++ {
		if err := client.EnsureIndexes(ctx); err != nil {
			t.Fatalf("ensure indexes (run %d): %v", i+1, err)
		}
	}

	indexes := showNames(t, client, "SHOW INDEXES YIELD name RETURN name")
	for _, name := range []string{"entity_category", "transition_journey"} {
		if !slices.Contains(indexes, name) {
			t.Fatalf("index %s missing from %v", name, indexes)
		}
	}
	constraints := showNames(t, client, "SHOW CONSTRAINTS YIELD name RETURN name")
	if !slices.Contains(constraints, "entity_unique_id") {
		t.Fatalf("constraint entity_unique_id missing from %v", constraints)
	}
}

func showNames(t *testing.T, client *Client, query string) []string {
	t.Helper()
	ctx := context.Background()
	session := client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(records))
		for _, record := range records {
			if name, ok := record.Values[0].(string); ok {
				names = append(names, name)
			}
		}
		return names, nil
	})
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return result.([]string)
}
