package main

import (
	"context"
	"path/filepath"
	"testing"

	"affinity/internal/config"
	"affinity/internal/store/memstore"
)

func TestInitScaffoldLoads(t *testing.T) {
	for _, dsn := range []string{"memory://", "sqlite://:memory:", "sqlite://affinity.db"} {
		t.Run(dsn, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "affinity.yaml")
			if err := runInit(path, "demo", dsn); err != nil {
				t.Fatalf("init: %v", err)
			}

			cfg, err := config.LoadProjectConfig(path)
			if err != nil {
				t.Fatalf("loading scaffold: %v", err)
			}
			if cfg.Project != "demo" || cfg.Database.DSN != dsn {
				t.Fatalf("unexpected config: %+v", cfg)
			}
			if cfg.Similarity.RecalculateAfter != config.Defaults().Similarity.RecalculateAfter {
				t.Fatalf("recalculate_after did not round trip: %s", cfg.Similarity.RecalculateAfter)
			}

			if err := runInit(path, "demo", dsn); err == nil {
				t.Fatalf("expected error when the file exists")
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	db, err := openStore(ctx, "memory://")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := db.(*memstore.Store); !ok {
		t.Fatalf("expected memstore, got %T", db)
	}

	db, err = openStore(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer db.Close(ctx)
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("sqlite schema: %v", err)
	}

	if _, err := openStore(ctx, "mysql://localhost"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}
