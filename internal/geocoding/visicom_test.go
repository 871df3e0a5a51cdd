package geocoding_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestVisicomProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	apiKey := "test-api-key"
	unlimited := rate.NewLimiter(rate.Inf, 0)

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), geocoding.VisicomBaseURL)
				assert.Equal(t, "Khreshchatyk 1, Kyiv", req.URL.Query().Get("text"))
				assert.Equal(t, apiKey, req.URL.Query().Get("key"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Equal(t, "application/json", req.Header.Get("Accept"))

				return respond(http.StatusOK, `{"geo_centroid":{"coordinates":[30.5234,50.4501]}}`)(req)
			},
		}

		provider := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger)
		coords, err := provider.Geocode(ctx, "Khreshchatyk 1, Kyiv")

		require.NoError(t, err)
		assert.InEpsilon(t, 50.4501, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 30.5234, coords.Longitude, 0.0001)
	})

	t.Run("empty response", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, `{}`)}

		coords, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger).
			Geocode(ctx, "some address")

		assert.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrVisicomEmptyResponse)
		assert.Equal(t, geocoding.StatusZeroResults, geocoding.Status(err))
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, `{"geo_centroid":{"coordinates":[30.5]}}`)}

		_, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger).Geocode(ctx, "bad coords")

		require.ErrorIs(t, err, geocoding.ErrVisicomInvalidCoords)
	})

	t.Run("unauthorized", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusUnauthorized, `unauthorized`)}

		_, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger).Geocode(ctx, "some address")

		require.ErrorIs(t, err, geocoding.ErrVisicomUnauthorized)
		assert.Equal(t, geocoding.StatusRequestDenied, geocoding.Status(err))
	})

	t.Run("server error", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusBadGateway, `upstream`)}

		_, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger).Geocode(ctx, "some address")

		assert.ErrorContains(t, err, "visicom API returned status 502")
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		mockClient := &mockHTTPClient{
			doFunc: func(*http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called when rate limit blocks")
				return nil, nil
			},
		}
		limiter := rate.NewLimiter(rate.Every(time.Second), 1)

		coords, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, limiter, logger).
			Geocode(canceled, "some address")

		assert.Nil(t, coords)
		assert.ErrorContains(t, err, "rate limit exceeded")
	})

	t.Run("empty address", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: respond(http.StatusOK, `{}`)}

		_, err := geocoding.NewVisicomProviderWithClient(mockClient, apiKey, unlimited, logger).Geocode(ctx, "")

		require.ErrorIs(t, err, geocoding.ErrEmptyAddress)
	})
}
