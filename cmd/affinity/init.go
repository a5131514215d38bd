package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"affinity/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new affinity project file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if err := runInit(configPath, projectName, dsn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://affinity.db", "Database DSN (postgres://, sqlite:// or memory://)")
	return cmd
}

type scaffold struct {
	Project  string `yaml:"project"`
	Version  int    `yaml:"version"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Similarity struct {
		CandidatePool    int    `yaml:"candidate_pool"`
		DefaultLimit     int    `yaml:"default_limit"`
		Concurrency      int    `yaml:"concurrency"`
		RecalculateAfter string `yaml:"recalculate_after"`
		FailureMode      string `yaml:"failure_mode"`
	} `yaml:"similarity"`
	Recommend struct {
		DefaultLimit    int     `yaml:"default_limit"`
		MaxSimilarUsers int     `yaml:"max_similar_users"`
		MinSimilarity   float64 `yaml:"min_similarity"`
	} `yaml:"recommend"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
}

func runInit(path, projectName, dsn string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	d := config.Defaults()
	var s scaffold
	s.Project = projectName
	s.Version = 1
	s.Database.DSN = dsn
	s.Logging.Level = d.Logging.Level
	s.Logging.Format = d.Logging.Format
	s.Similarity.CandidatePool = d.Similarity.CandidatePool
	s.Similarity.DefaultLimit = d.Similarity.DefaultLimit
	s.Similarity.Concurrency = d.Similarity.Concurrency
	s.Similarity.RecalculateAfter = d.Similarity.RecalculateAfter.String()
	s.Similarity.FailureMode = d.Similarity.FailureMode
	s.Recommend.DefaultLimit = d.Recommend.DefaultLimit
	s.Recommend.MaxSimilarUsers = d.Recommend.MaxSimilarUsers
	s.Recommend.MinSimilarity = d.Recommend.MinSimilarity
	s.HTTP.Addr = d.HTTP.Addr

	contents, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
