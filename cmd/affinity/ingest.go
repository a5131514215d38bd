package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affinity/internal/ingest"
)

var (
	ingestRebuild bool
	ingestGraph   bool
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <dataset.yaml>",
		Short: "Load entities and user behavior from a YAML dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestRebuild, "rebuild-consensus", true, "Rebuild consensus relationships afterwards")
	cmd.Flags().BoolVar(&ingestGraph, "graph", false, "Mirror entities and journeys into Neo4j")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ds, err := ingest.LoadFile(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	opts := ingest.Options{RebuildConsensus: ingestRebuild}
	if ingestGraph {
		client, err := a.openGraph(ctx)
		if err != nil {
			return err
		}
		if client == nil {
			return fmt.Errorf("--graph needs neo4j.uri in %s", configPath)
		}
		defer client.Close(ctx)
		if err := client.EnsureIndexes(ctx); err != nil {
			return err
		}
		opts.Mirror = client
	}

	result, err := ingest.Run(ctx, ds, a.db, opts, a.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ingestion complete.")
	fmt.Fprintf(out, "  Entities:      %d\n", result.Entities)
	fmt.Fprintf(out, "  Stuff items:   %d\n", result.Stuff)
	fmt.Fprintf(out, "  Routines:      %d\n", result.Routines)
	fmt.Fprintf(out, "  Journeys:      %d\n", result.Journeys)
	fmt.Fprintf(out, "  Reviews:       %d\n", result.Reviews)
	if ingestRebuild {
		fmt.Fprintf(out, "  Consensus:     %d\n", result.Relationships)
	}
	if ingestGraph {
		fmt.Fprintf(out, "  Graph edges:   %d\n", result.Mirrored)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(out, "  - %v\n", item)
		}
		return fmt.Errorf("ingestion completed with errors")
	}

	return nil
}
