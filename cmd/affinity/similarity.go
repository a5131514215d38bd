package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"affinity/internal/similarity"
)

func similarityCmd() *cobra.Command {
	var limit int
	var force bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "similarity <user-id>",
		Short: "Score a user's lifestyle similarity against other users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			resp, err := a.aggregator().Calculate(ctx, similarity.Request{
				UserID:           args[0],
				Limit:            limit,
				ForceRecalculate: force,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is %s (stuff %d, journeys %d, routines %d, reviews %d)\n",
				args[0], resp.UserMode, resp.UserCounts.Stuff, resp.UserCounts.Journeys, resp.UserCounts.Routines, resp.UserCounts.Reviews)
			fmt.Fprintf(out, "Processed %d users, stored %d similarities, skipped %d fresh.\n",
				resp.ProcessedUsers, resp.SimilaritiesCalculated, resp.SkippedFresh)
			printSimilar(out, resp.TopSimilarities)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Candidates to process (default from config, max 100)")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute pairs scored recently")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}

func printSimilar(out io.Writer, users []similarity.TopSimilarity) {
	for _, u := range users {
		dims := make([]string, 0, len(similarity.Dimensions))
		for _, d := range similarity.Dimensions {
			if score, ok := u.Scores[d]; ok {
				dims = append(dims, fmt.Sprintf("%s=%.2f", d, score))
			}
		}
		fmt.Fprintf(out, "  %-20s %.3f  %s  %s\n", u.UserID, u.OverallScore, u.EffectiveMode, strings.Join(dims, " "))
	}
}
