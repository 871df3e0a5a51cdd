package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/jackc/pgx/v5"
)

const schemaQuery = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address    TEXT PRIMARY KEY,
		latitude   DOUBLE PRECISION NOT NULL,
		longitude  DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS geocode_failures (
		address    TEXT PRIMARY KEY,
		attempts   INTEGER NOT NULL DEFAULT 1,
		last_error TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// EnsureSchema creates the cache tables if they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to create geocode cache schema: %w", err)
	}

	return nil
}

// LookupCoordinates returns the cached coordinates for a normalized address,
// or ErrNotFound when there are none.
func (r *Repository) LookupCoordinates(ctx context.Context, address string) (*models.Coordinates, error) {
	query := `
		SELECT latitude, longitude
		FROM geocode_cache
		WHERE address = $1;
	`

	var coords models.Coordinates
	err := r.db.QueryRow(ctx, query, address).Scan(&coords.Latitude, &coords.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cached coordinates: %w", err)
	}

	r.log.DebugContext(ctx, "Cached coordinates found", "address", address, "coords", coords.String())

	return &coords, nil
}

// StoreCoordinates upserts the coordinates for an address and clears any recorded failures.
func (r *Repository) StoreCoordinates(ctx context.Context, address string, coords models.Coordinates) error {
	query := `
		INSERT INTO geocode_cache (address, latitude, longitude)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = now();
	`

	if _, err := r.db.Exec(ctx, query, address, coords.Latitude, coords.Longitude); err != nil {
		return fmt.Errorf("failed to store cached coordinates: %w", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM geocode_failures WHERE address = $1;`, address); err != nil {
		return fmt.Errorf("failed to clear geocode failures: %w", err)
	}

	return nil
}

// IncrementFailureCount records a failed geocode for address along with the last error message.
func (r *Repository) IncrementFailureCount(ctx context.Context, address string, errMsg string) error {
	query := `
		INSERT INTO geocode_failures (address, last_error)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET
			attempts = geocode_failures.attempts + 1,
			last_error = EXCLUDED.last_error,
			updated_at = now();
	`

	if _, err := r.db.Exec(ctx, query, address, errMsg); err != nil {
		return fmt.Errorf("failed to update geocoding error and number of attempts: %w", err)
	}

	return nil
}
