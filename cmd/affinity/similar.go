package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affinity/internal/similarity"
)

func similarCmd() *cobra.Command {
	var minScore float64
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "similar <user-id>",
		Short: "List stored similarity scores for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			users, err := similarity.SimilarUsers(ctx, a.db, args[0], minScore, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), users)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No similar users stored.")
				return nil
			}
			printSimilar(cmd.OutOrStdout(), users)
			return nil
		},
	}
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Only rows scoring above this")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
