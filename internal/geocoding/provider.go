package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/mapview/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input,
// and returns the corresponding coordinates and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// ErrNoResults is returned when a provider answers but finds no match for the address.
// Provider-specific empty-response errors wrap it.
var ErrNoResults = errors.New("geocoding returned zero results")

// Sentinel errors shared by all providers.
var (
	ErrEmptyAddress  = errors.New("address is empty")
	ErrRequestDenied = errors.New("geocoding request denied")
)

// Geocoding statuses reported on the diagnostic channel.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusError          = "ERROR"
)

// Status maps a geocoding error to a short status code.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNoResults):
		return StatusZeroResults
	case errors.Is(err, ErrEmptyAddress):
		return StatusInvalidRequest
	case errors.Is(err, ErrRequestDenied):
		return StatusRequestDenied
	default:
		return StatusError
	}
}
