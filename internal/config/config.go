// Package config loads the project file (affinity.yaml) layered over
// built-in defaults and AFFINITY_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultPath = "affinity.yaml"
	envPrefix   = "AFFINITY_"
)

type ProjectConfig struct {
	Project     string            `koanf:"project"`
	Version     int               `koanf:"version"`
	Database    DatabaseConfig    `koanf:"database"`
	Neo4j       Neo4jConfig       `koanf:"neo4j"`
	Logging     LoggingConfig     `koanf:"logging"`
	Similarity  SimilarityConfig  `koanf:"similarity"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Correlation CorrelationConfig `koanf:"correlation"`
	HTTP        HTTPConfig        `koanf:"http"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SimilarityConfig struct {
	CandidatePool    int           `koanf:"candidate_pool"`
	DefaultLimit     int           `koanf:"default_limit"`
	Concurrency      int           `koanf:"concurrency"`
	MinOverallScore  float64       `koanf:"min_overall_score"`
	RecalculateAfter time.Duration `koanf:"recalculate_after"`
	FailureMode      string        `koanf:"failure_mode"`
}

type RecommendConfig struct {
	DefaultLimit       int     `koanf:"default_limit"`
	MaxSimilarUsers    int     `koanf:"max_similar_users"`
	MinSimilarity      float64 `koanf:"min_similarity"`
	JourneyLimit       int     `koanf:"journey_limit"`
	ConsensusLimit     int     `koanf:"consensus_limit"`
	FallbackSimilarity float64 `koanf:"fallback_similarity"`
}

// CorrelationConfig points at the external rating-correlation routine. An
// empty URL scores rating patterns from local reviews instead.
type CorrelationConfig struct {
	URL               string        `koanf:"url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	FailureThreshold  uint32        `koanf:"failure_threshold"`
	OpenTimeout       time.Duration `koanf:"open_timeout"`
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

func Defaults() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Database: DatabaseConfig{DSN: "sqlite://affinity.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Similarity: SimilarityConfig{
			CandidatePool:    100,
			DefaultLimit:     50,
			Concurrency:      4,
			MinOverallScore:  0.01,
			RecalculateAfter: 24 * time.Hour,
			FailureMode:      "zero",
		},
		Recommend: RecommendConfig{
			DefaultLimit:       10,
			MaxSimilarUsers:    50,
			MinSimilarity:      0.1,
			JourneyLimit:       200,
			ConsensusLimit:     50,
			FallbackSimilarity: 0.1,
		},
		Correlation: CorrelationConfig{
			Timeout:           5 * time.Second,
			RequestsPerSecond: 5,
			Burst:             1,
			FailureThreshold:  5,
			OpenTimeout:       30 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080", RequestTimeout: 30 * time.Second},
	}
}

// LoadProjectConfig layers defaults, the YAML file at path and environment
// overrides, in that order, then validates the result.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

// envKey maps AFFINITY_SIMILARITY_CANDIDATE_POOL to similarity.candidate_pool.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	dsn := strings.TrimSpace(cfg.Database.DSN)
	switch {
	case dsn == "":
		return fmt.Errorf("database dsn is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"),
		strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "memory://"):
	default:
		return fmt.Errorf("unsupported database dsn scheme: %s", dsn)
	}

	switch cfg.Similarity.FailureMode {
	case "zero", "redistribute":
	default:
		return fmt.Errorf("unknown similarity failure_mode: %q", cfg.Similarity.FailureMode)
	}
	if cfg.Similarity.CandidatePool <= 0 {
		return fmt.Errorf("similarity candidate_pool must be positive")
	}
	if cfg.Similarity.DefaultLimit <= 0 || cfg.Similarity.DefaultLimit > 100 {
		return fmt.Errorf("similarity default_limit must be between 1 and 100")
	}
	if cfg.Similarity.Concurrency <= 0 {
		return fmt.Errorf("similarity concurrency must be positive")
	}
	if cfg.Recommend.DefaultLimit <= 0 || cfg.Recommend.DefaultLimit > 100 {
		return fmt.Errorf("recommend default_limit must be between 1 and 100")
	}
	if cfg.Recommend.MinSimilarity < 0 || cfg.Recommend.MinSimilarity > 1 {
		return fmt.Errorf("recommend min_similarity must be within [0,1]")
	}
	if cfg.Correlation.URL != "" && !strings.HasPrefix(cfg.Correlation.URL, "http") {
		return fmt.Errorf("correlation url must be http(s): %s", cfg.Correlation.URL)
	}

	return nil
}
