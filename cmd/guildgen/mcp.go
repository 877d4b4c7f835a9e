package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gildcraft/guildgen/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start guildgen as an MCP server on stdio",
		Long: `Starts guildgen as a Model Context Protocol (MCP) server over stdio.

Tools exposed:
  guildgen_generate     - Generate text for a free-form prompt
  guildgen_template     - Generate content from a named template
  guildgen_templates    - List templates and their fields
  guildgen_cache_stats  - Show response cache statistics
  guildgen_usage        - Show usage per template and model

Logs go to stderr so stdout stays reserved for the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath, os.Stderr, nil)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			srv := mcp.New(a.fwd, a.tracker, version)
			if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
