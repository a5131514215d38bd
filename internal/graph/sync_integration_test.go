//go:build integration

package graph

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"affinity/internal/store"
)

func resetGraph(t *testing.T, client *Client) {
	t.Helper()
	ctx := context.Background()
	session := client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, "MATCH (n:Entity) DETACH DELETE n", nil)
		return nil, err
	}); err != nil {
		t.Fatalf("resetting graph: %v", err)
	}
}

func TestSyncJourneysAndPaths(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	resetGraph(t, client)

	if _, err := client.SyncEntities(ctx, []store.Entity{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Bravo"}}); err != nil {
		t.Fatalf("sync entities: %v", err)
	}
	journeys := []store.Journey{
		{ID: "j1", UserID: "u1", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, Confidence: 0.8},
		{ID: "j2", UserID: "u2", FromEntityID: "a", ToEntityID: "b", TransitionType: store.TransitionUpgrade, Confidence: 0.6},
		{ID: "j3", UserID: "u1", FromEntityID: "a", ToEntityID: "c", TransitionType: store.TransitionAlternative, Confidence: 1},
	}
	n, err := client.SyncJourneys(ctx, journeys)
	if err != nil || n != 3 {
		t.Fatalf("sync journeys: %d %v", n, err)
	}
	// idempotent
	if _, err := client.SyncJourneys(ctx, journeys); err != nil {
		t.Fatalf("resync journeys: %v", err)
	}

	paths, err := client.TransitionPaths(ctx, "a", 10)
	if err != nil {
		t.Fatalf("transition paths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %+v", paths)
	}
	if paths[0].ToID != "b" || paths[0].ToName != "Bravo" || paths[0].Users != 2 {
		t.Fatalf("unexpected first path: %+v", paths[0])
	}
	if paths[1].ToName != "c" {
		t.Fatalf("expected bare node to fall back to its id, got %+v", paths[1])
	}

	stats, err := client.Stats(ctx)
	if err != nil || stats.Entities != 3 || stats.Transitions != 3 {
		t.Fatalf("unexpected stats: %+v %v", stats, err)
	}

	deleted, err := client.RemoveStaleTransitions(ctx, []string{"j1", "j2"})
	if err != nil || deleted != 1 {
		t.Fatalf("expected one stale edge removed, got %d %v", deleted, err)
	}
}
