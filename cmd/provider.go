package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/mapview/internal/config"
	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildProvider wires the configured geocoding provider, the address prefix
// and, when a database is configured, the geocode cache. The returned pool is
// nil without a database; the caller closes it.
func buildProvider(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
) (geocoding.Provider, *pgxpool.Pool, error) {
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		RateLimit: cfg.RateLimit,
		Region:    cfg.Region,
		Language:  cfg.Language,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	log.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.ProviderType)

	provider = geocoding.WithAddressPrefix(provider, cfg.AddrPrefix)

	if !cfg.Database.Enabled() {
		return provider, nil, nil
	}

	pool, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := repository.NewRepository(pool, log)
	if err = repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to prepare geocode cache: %w", err)
	}
	log.InfoContext(ctx, "Geocode cache enabled", "host", cfg.Database.Host, "db", cfg.Database.Name)

	return geocoding.NewCachedProvider(provider, repo, m, log), pool, nil
}
