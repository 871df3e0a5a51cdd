package geocoding

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/UnknownOlympus/mapview/internal/repository"
)

// Cache stores resolved addresses so repeated lookups skip the provider.
type Cache interface {
	LookupCoordinates(ctx context.Context, address string) (*models.Coordinates, error)
	StoreCoordinates(ctx context.Context, address string, coords models.Coordinates) error
	IncrementFailureCount(ctx context.Context, address string, errMsg string) error
}

// CachedProvider consults a Cache before delegating to the wrapped provider.
// Cache failures are logged and never fail the geocode.
type CachedProvider struct {
	next    Provider
	cache   Cache
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next Provider, cache Cache, m *metrics.Metrics, log *slog.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, metrics: m, log: log}
}

// Geocode implements Provider.
func (cp *CachedProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	key := CacheKey(address)
	if key == "" {
		return nil, ErrEmptyAddress
	}

	cached, err := cp.cache.LookupCoordinates(ctx, key)
	switch {
	case err == nil:
		cp.metrics.CacheLookups.WithLabelValues("hit").Inc()
		cp.log.DebugContext(ctx, "Geocode cache hit", "address", key)
		return cached, nil
	case errors.Is(err, repository.ErrNotFound):
		cp.metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		cp.metrics.CacheLookups.WithLabelValues("error").Inc()
		cp.log.WarnContext(ctx, "Geocode cache lookup failed", "address", key, "error", err)
	}

	coords, err := cp.next.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			if errCount := cp.cache.IncrementFailureCount(ctx, key, err.Error()); errCount != nil {
				cp.log.WarnContext(ctx, "Could not record geocode failure", "address", key, "error", errCount)
			}
		}
		return nil, err
	}

	if errStore := cp.cache.StoreCoordinates(ctx, key, *coords); errStore != nil {
		cp.log.WarnContext(ctx, "Could not cache geocode result", "address", key, "error", errStore)
	}

	return coords, nil
}

// CacheKey normalizes an address for cache lookups: trimmed, lower-cased,
// inner whitespace collapsed.
func CacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
