package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"affinity/internal/store"
	"affinity/internal/store/memstore"
)

type mockMirror struct {
	entities []store.Entity
	journeys []store.Journey
	failSync bool
}

func (m *mockMirror) SyncEntities(ctx context.Context, entities []store.Entity) (int, error) {
	if m.failSync {
		return 0, errors.New("neo4j unavailable")
	}
	m.entities = append(m.entities, entities...)
	return len(entities), nil
}

func (m *mockMirror) SyncJourneys(ctx context.Context, journeys []store.Journey) (int, error) {
	m.journeys = append(m.journeys, journeys...)
	return len(journeys), nil
}

func loadTestDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := LoadFile(filepath.Join("testdata", "dataset.yaml"))
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	return ds
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	mirror := &mockMirror{}

	result, err := Run(ctx, loadTestDataset(t), db, Options{RebuildConsensus: true, Mirror: mirror}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Entities != 3 || result.Stuff != 2 || result.Routines != 1 || result.Journeys != 2 || result.Reviews != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Error(), "sideways") {
		t.Fatalf("expected the sideways journey to be rejected, got %v", result.Errors)
	}
	if result.Relationships != 1 {
		t.Fatalf("expected one consensus row, got %d", result.Relationships)
	}
	if result.Mirrored != 2 || len(mirror.entities) != 3 {
		t.Fatalf("unexpected mirror calls: %+v", mirror)
	}

	rels, err := db.ListGlobalRelationships(ctx, store.ConsensusFilter{})
	if err != nil || len(rels) != 1 || rels[0].ConsensusCount != 2 {
		t.Fatalf("unexpected consensus: %+v %v", rels, err)
	}

	journeys, err := db.ListJourneys(ctx, store.JourneyFilter{UserIDs: []string{"alice"}})
	if err != nil || len(journeys) != 1 {
		t.Fatalf("unexpected journeys: %+v %v", journeys, err)
	}
	j := journeys[0]
	if j.ID != "alice:serum-a:serum-b:upgrade" || j.Confidence != 0.9 || *j.ToSentiment != 4 || j.CreatedAt.Year() != 2026 {
		t.Fatalf("unexpected journey: %+v", j)
	}

	routines, err := db.ListRoutines(ctx, "alice")
	if err != nil || len(routines) != 1 || routines[0].ID != "alice:routine:0" || len(routines[0].Steps) != 1 {
		t.Fatalf("unexpected routines: %+v %v", routines, err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	ds := loadTestDataset(t)

	for i := 0; i < 2; i++ {
		if _, err := Run(ctx, ds, db, Options{}, zerolog.Nop()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	n, err := db.CountJourneys(ctx, "bob")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 journey for bob after two runs, got %d %v", n, err)
	}
}

func TestRunReportsMirrorFailure(t *testing.T) {
	result, err := Run(context.Background(), loadTestDataset(t), memstore.New(), Options{Mirror: &mockMirror{failSync: true}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("mirror failure should not abort: %v", err)
	}
	if len(result.Errors) != 2 || result.Mirrored != 0 {
		t.Fatalf("expected mirror error recorded, got %+v", result)
	}
}

func TestDecode(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		if _, err := Decode(strings.NewReader("entitys:\n  - id: a\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		ds, err := Decode(strings.NewReader(""))
		if err != nil || len(ds.Entities) != 0 {
			t.Fatalf("expected empty dataset, got %+v %v", ds, err)
		}
	})
}

func TestJourneyFromRecord(t *testing.T) {
	bad := 1.5
	tests := []struct {
		name string
		rec  JourneyRecord
	}{
		{"missing endpoint", JourneyRecord{From: "a", Type: store.TransitionUpgrade}},
		{"unknown type", JourneyRecord{From: "a", To: "b", Type: "swap"}},
		{"confidence out of range", JourneyRecord{From: "a", To: "b", Type: store.TransitionUpgrade, Confidence: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := journeyFromRecord("u", tt.rec); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	j, err := journeyFromRecord("u", JourneyRecord{From: "a", To: "b", Type: store.TransitionComplementary})
	if err != nil || j.Confidence != 1 || j.ID != "u:a:b:complementary" {
		t.Fatalf("unexpected journey: %+v %v", j, err)
	}
}
