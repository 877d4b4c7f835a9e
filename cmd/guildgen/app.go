package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/gildcraft/guildgen/pkg/cache"
	"github.com/gildcraft/guildgen/pkg/config"
	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/logging"
	"github.com/gildcraft/guildgen/pkg/metrics"
	"github.com/gildcraft/guildgen/pkg/provider"
	"github.com/gildcraft/guildgen/pkg/telemetry"
	"github.com/gildcraft/guildgen/pkg/tracker"
)

// app is the wired forwarder plus everything that has to be closed with it.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	tracer  *telemetry.Provider
	tracker tracker.Tracker
	fwd     *generate.Forwarder
}

// newApp loads configuration and wires the forwarder. logOut receives the
// log stream; m may be nil.
func newApp(ctx context.Context, configPath string, logOut io.Writer, m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewWithWriter(logOut, cfg.Log)
	if err != nil {
		return nil, err
	}

	tc := cfg.Telemetry.Tracing
	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     tc.Enabled,
		Exporter:    tc.Exporter,
		Endpoint:    tc.Endpoint,
		SampleRate:  tc.SampleRate,
		ServiceName: "guildgen",
		Version:     version,
		Insecure:    tc.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, tracer: tp}

	client, err := provider.New(provider.Config{
		BaseURL: cfg.Provider.URL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
		Referer: cfg.Provider.Referer,
		Title:   cfg.Provider.Title,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init provider: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		logger.Warn("no provider API key configured; requests may be rejected upstream")
	}

	opts := []generate.Option{
		generate.WithDefaults(generate.Defaults{
			Model:       cfg.Provider.Model,
			MaxTokens:   cfg.Provider.MaxTokens,
			Temperature: cfg.Provider.Temperature,
		}),
		generate.WithLogger(logger),
		generate.WithTracer(tp),
	}
	if m != nil {
		opts = append(opts, generate.WithMetrics(m))
	}

	if cfg.Usage.Enabled {
		tr, err := tracker.New(cfg.DBPath)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("init tracker: %w", err)
		}
		a.tracker = tr
		opts = append(opts, generate.WithRecorder(tr))
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		store = cache.New(cfg.Cache.TTL)
		if m != nil {
			m.RegisterCacheSize(store.Len)
		}
		if cfg.Cache.Coalesce {
			opts = append(opts, generate.WithCoalescing())
		}
	}

	a.fwd = generate.New(client, store, opts...)
	return a, nil
}

// Close flushes traces and closes the usage ledger.
func (a *app) Close(ctx context.Context) {
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.logger.Warn("close tracker", "err", err)
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracing", "err", err)
	}
}
