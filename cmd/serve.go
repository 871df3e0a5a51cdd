package main

import (
	"context"
	"time"

	"github.com/UnknownOlympus/mapview/internal/config"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/server"
	"github.com/UnknownOlympus/mapview/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const reapInterval = time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the map page, its session API, health checks and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.MustLoad())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	provider, pool, err := buildProvider(ctx, cfg, logger, appMetrics)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start", "error", err)
		return err
	}

	var db server.Pinger
	if pool != nil {
		defer pool.Close()
		db = pool
	}

	if cfg.MapsJSKey == "" {
		logger.WarnContext(ctx, "No Maps JavaScript API key configured, the page map will not load")
	}

	sessions := session.NewManager(logger, provider, cfg.ProviderType, appMetrics, cfg.SessionTTL)
	srv := server.New(logger, sessions, reg, db, cfg.MapsJSKey)

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sessions.Run(gctx, reapInterval)
		return nil
	})
	group.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Port)
	})

	err = group.Wait()
	if err != nil {
		logger.ErrorContext(ctx, "Application stopped with error", "error", err)
		return err
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")

	return nil
}
