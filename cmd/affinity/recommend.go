package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affinity/internal/transitions"
)

func recommendCmd() *cobra.Command {
	var req transitions.Request
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Recommend product transitions for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			req.UserID = args[0]
			resp, err := a.recommender().Recommend(ctx, req)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			md := resp.Metadata
			fmt.Fprintf(out, "Mode %s: %d similar users, %d journeys, %d consensus rows\n",
				md.RichnessMode, md.SimilarUsersFound, md.JourneysAnalyzed, md.GlobalRelationshipsAvailable)
			if len(resp.Recommendations) == 0 {
				fmt.Fprintln(out, "No recommendations found.")
				return nil
			}
			for i, rec := range resp.Recommendations {
				fmt.Fprintf(out, "%d. %s  [%s, %s, score %.3f]\n", i+1, rec.Story.Headline, rec.TransitionType, rec.Confidence, rec.WeightedScore)
				fmt.Fprintf(out, "   %s\n", rec.Story.Description)
				if rec.Story.SentimentChange != nil {
					fmt.Fprintf(out, "   Sentiment: %s\n", *rec.Story.SentimentChange)
				}
				if rec.Story.EvidenceQuote != nil {
					fmt.Fprintf(out, "   \"%s\"\n", *rec.Story.EvidenceQuote)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.EntityID, "entity", "", "Only transitions leaving this entity")
	cmd.Flags().StringVar(&req.TransitionType, "type", "", "upgrade, alternative or complementary")
	cmd.Flags().StringVar(&req.Category, "category", "", "Boost journeys in this category")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Maximum recommendations (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}
