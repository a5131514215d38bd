package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads over defaults", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Database.DSN != "sqlite://:memory:" {
			t.Fatalf("expected quoted memory dsn, got %q", cfg.Database.DSN)
		}
		if cfg.Similarity.CandidatePool != 20 || cfg.Similarity.FailureMode != "redistribute" {
			t.Fatalf("file values not applied: %+v", cfg.Similarity)
		}
		if cfg.Similarity.RecalculateAfter != 2*time.Hour {
			t.Fatalf("expected 2h, got %s", cfg.Similarity.RecalculateAfter)
		}
		if cfg.Similarity.Concurrency != 4 || cfg.Recommend.MaxSimilarUsers != 50 {
			t.Fatalf("defaults not kept: %+v %+v", cfg.Similarity, cfg.Recommend)
		}
		if cfg.Correlation.OpenTimeout != 30*time.Second || cfg.HTTP.Addr != ":8080" {
			t.Fatalf("defaults not kept: %+v %+v", cfg.Correlation, cfg.HTTP)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("AFFINITY_RECOMMEND_DEFAULT_LIMIT", "7")
		t.Setenv("AFFINITY_DATABASE_DSN", "postgres://localhost/affinity")
		t.Setenv("AFFINITY_CORRELATION_TIMEOUT", "750ms")
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Recommend.DefaultLimit != 7 {
			t.Fatalf("expected env limit 7, got %d", cfg.Recommend.DefaultLimit)
		}
		if cfg.Database.DSN != "postgres://localhost/affinity" {
			t.Fatalf("expected env dsn, got %q", cfg.Database.DSN)
		}
		if cfg.Correlation.Timeout != 750*time.Millisecond {
			t.Fatalf("expected 750ms, got %s", cfg.Correlation.Timeout)
		}
	})

	invalid := []struct {
		name     string
		contents string
	}{
		{"missing project name", "version: 1\n"},
		{"unsupported version", "project: test\nversion: 2\n"},
		{"empty dsn", "project: test\ndatabase:\n  dsn: \"\"\n"},
		{"unknown dsn scheme", "project: test\ndatabase:\n  dsn: mysql://localhost\n"},
		{"unknown failure mode", "project: test\nsimilarity:\n  failure_mode: ignore\n"},
		{"limit above max", "project: test\nrecommend:\n  default_limit: 500\n"},
		{"min similarity out of range", "project: test\nrecommend:\n  min_similarity: 1.5\n"},
		{"bad correlation url", "project: test\ncorrelation:\n  url: ftp://scores\n"},
		{"invalid yaml", "project: [\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.contents)
			if _, err := LoadProjectConfig(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"AFFINITY_PROJECT":                   "project",
		"AFFINITY_DATABASE_DSN":              "database.dsn",
		"AFFINITY_SIMILARITY_CANDIDATE_POOL": "similarity.candidate_pool",
		"AFFINITY_HTTP_REQUEST_TIMEOUT":      "http.request_timeout",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Fatalf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
