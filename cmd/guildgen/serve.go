package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gildcraft/guildgen/pkg/metrics"
	"github.com/gildcraft/guildgen/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			a, err := newApp(ctx, *configPath, os.Stderr, m)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			if listen != "" {
				a.cfg.Listen = listen
			}

			srv := server.New(a.cfg, a.fwd,
				server.WithLogger(a.logger),
				server.WithMetrics(m),
				server.WithTracer(a.tracer),
			)

			a.logger.Info("starting guildgen",
				"version", version,
				"config", *configPath,
				"cache", a.cfg.Cache.Enabled,
				"ttl", a.cfg.Cache.TTL,
				"usage", a.cfg.Usage.Enabled,
			)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
