package main

import (
	"os"

	"github.com/spf13/cobra"

	"affinity/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "affinity",
		Short:        "Lifestyle similarity and product transition recommendations",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Project config file")

	root.AddCommand(initCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(similarityCmd())
	root.AddCommand(recommendCmd())
	root.AddCommand(similarCmd())
	root.AddCommand(consensusCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(serveHTTPCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
