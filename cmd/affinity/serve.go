package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"affinity/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	var paths mcp.PathFinder
	client, err := a.openGraph(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("neo4j unavailable, get_transition_paths disabled")
	} else if client != nil {
		defer client.Close(context.Background())
		paths = client
	}

	server := mcp.NewServer(a.aggregator(), a.recommender(), a.db, paths, version, a.logger)
	return server.Run(ctx, &sdk.StdioTransport{})
}
