package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affinity/internal/store"
)

func consensusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Manage population consensus relationships",
	}
	cmd.AddCommand(consensusRebuildCmd())
	cmd.AddCommand(consensusListCmd())
	return cmd
}

func consensusRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute consensus relationships from all journeys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			n, err := a.db.RebuildGlobalRelationships(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d consensus relationships.\n", n)
			return nil
		},
	}
}

func consensusListCmd() *cobra.Command {
	var entity string
	var transitionType string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consensus relationships, strongest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transitionType != "" && !store.IsValidTransitionType(transitionType) {
				return fmt.Errorf("unknown transition type: %s", transitionType)
			}

			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			filter := store.ConsensusFilter{RelationshipType: transitionType, Limit: limit}
			if entity != "" {
				filter.EntityAIDs = []string{entity}
			}
			rels, err := a.db.ListGlobalRelationships(ctx, filter)
			if err != nil {
				return err
			}
			if len(rels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No consensus relationships found.")
				return nil
			}
			for _, rel := range rels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s) users=%d confidence=%.2f\n",
					rel.EntityAID, rel.EntityBID, rel.RelationshipType, rel.ConsensusCount, rel.AvgConfidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Only relationships leaving this entity")
	cmd.Flags().StringVar(&transitionType, "type", "", "Transition type filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	return cmd
}
