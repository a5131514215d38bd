package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affinity/internal/graph"
	"affinity/internal/store"
)

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Mirror journeys into Neo4j and explore them",
	}
	cmd.AddCommand(graphSyncCmd())
	cmd.AddCommand(graphPathsCmd())
	return cmd
}

// withGraph opens the app and the configured Neo4j client for fn.
func withGraph(fn func(ctx context.Context, a *app, client *graph.Client) error) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	client, err := a.openGraph(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("neo4j.uri is not set in %s", configPath)
	}
	defer client.Close(ctx)

	return fn(ctx, a, client)
}

func graphSyncCmd() *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy every entity and journey into the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGraph(func(ctx context.Context, a *app, client *graph.Client) error {
				if err := client.EnsureIndexes(ctx); err != nil {
					return err
				}

				entities, err := a.db.ListEntities(ctx)
				if err != nil {
					return err
				}
				journeys, err := a.db.ListJourneys(ctx, store.JourneyFilter{})
				if err != nil {
					return err
				}

				nEntities, err := client.SyncEntities(ctx, entities)
				if err != nil {
					return err
				}
				nJourneys, err := client.SyncJourneys(ctx, journeys)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Synced %d entities and %d journeys.\n", nEntities, nJourneys)

				if prune {
					ids := make([]string, 0, len(journeys))
					for _, j := range journeys {
						ids = append(ids, j.ID)
					}
					removed, err := client.RemoveStaleTransitions(ctx, ids)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d stale transitions.\n", removed)
				}

				stats, err := client.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Graph now holds %d entities and %d transitions.\n", stats.Entities, stats.Transitions)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", true, "Delete edges whose journey no longer exists")
	return cmd
}

func graphPathsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "paths <entity-id>",
		Short: "List transitions leaving an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGraph(func(ctx context.Context, a *app, client *graph.Client) error {
				paths, err := client.TransitionPaths(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No transitions found.")
					return nil
				}
				for _, p := range paths {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s) users=%d confidence=%.2f\n",
						p.FromID, p.ToName, p.TransitionType, p.Users, p.AvgConfidence)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum paths")
	return cmd
}
