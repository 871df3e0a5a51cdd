package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/mapview/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider resolves addresses through the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	region string          // region is an optional ccTLD bias, e.g. "us"
	log    *slog.Logger
}

// GoogleAPIClient is the subset of *maps.Client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = fmt.Errorf("google maps: %w", ErrNoResults)

// NewGoogleProvider wraps an already configured Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, region string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, region: region, log: log}
}

// Geocode returns the location of the first result the Geocoding API reports for address.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrEmptyAddress
	}

	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address, Region: gp.region}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		// The client folds non-OK statuses into the error text.
		if strings.Contains(err.Error(), "REQUEST_DENIED") {
			return nil, fmt.Errorf("%w: %w", ErrRequestDenied, err)
		}
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	top := results[0]
	gp.log.DebugContext(ctx, "Google Maps found result",
		"formatted_address", top.FormattedAddress,
		"location_type", top.Geometry.LocationType,
		"results", len(results))

	return &models.Coordinates{Latitude: top.Geometry.Location.Lat, Longitude: top.Geometry.Location.Lng}, nil
}
