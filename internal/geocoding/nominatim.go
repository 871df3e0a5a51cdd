package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapview/internal/models"
)

const (
	// NominatimBaseURL is the public OpenStreetMap search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// NominatimUserAgent identifies the service as the Nominatim usage policy requires.
	NominatimUserAgent = "mapview/1.0 (https://github.com/UnknownOlympus/mapview)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// The public instance allows about one request per second.
type NominatimProvider struct {
	client    HTTPClient
	baseURL   string
	language  string // Accept-Language sent with every request
	userAgent string
	log       *slog.Logger
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = fmt.Errorf("nominatim: %w", ErrNoResults)
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a provider backed by the public Nominatim endpoint.
func NewNominatimProvider(language string, log *slog.Logger) *NominatimProvider {
	const timeout = 10 * time.Second
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, language, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
func NewNominatimProviderWithClient(client HTTPClient, language string, log *slog.Logger) *NominatimProvider {
	if language == "" {
		language = "en"
	}
	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		language:  language,
		userAgent: NominatimUserAgent,
		log:       log,
	}
}

// Geocode converts an address to coordinates. Free-text addresses that return
// nothing are retried with trailing comma-separated components dropped, so
// "Street 12, Town, Region" falls back to "Street 12, Town" and then "Street 12".
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrEmptyAddress
	}

	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	candidates := addressFallbacks(address)
	for level, candidate := range candidates {
		coords, err := np.search(ctx, candidate)
		switch {
		case err == nil:
			if level > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback address",
					"original", address, "fallback", candidate, "fallback_level", level)
			}
			return coords, nil
		case errors.Is(err, ErrNominatimEmptyResponse):
			np.log.DebugContext(ctx, "No results, trying next fallback", "candidate", candidate, "fallback_level", level)
		default:
			return nil, err
		}
	}

	np.log.WarnContext(ctx, "All address fallbacks exhausted", "address", address, "tried", len(candidates))
	return nil, ErrNominatimEmptyResponse
}

// addressFallbacks lists the address followed by progressively shorter prefixes,
// without duplicates.
func addressFallbacks(address string) []string {
	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for n := len(parts); n > 0; n-- {
		candidate := strings.Join(parts[:n], ", ")
		if candidate == "" {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	return out
}

func (np *NominatimProvider) search(ctx context.Context, address string) (*models.Coordinates, error) {
	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")
	query.Set("accept-language", np.language)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", np.language)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w: nominatim blocked the client: %s", ErrRequestDenied, string(body))
	default:
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResult
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	top := results[0]
	np.log.DebugContext(ctx, "Nominatim found result", "display_name", top.DisplayName, "lat", top.Lat, "lon", top.Lon)

	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, top.Lat)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, top.Lon)
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
