package geocoding

import (
	"context"
	"strings"

	"github.com/UnknownOlympus/mapview/internal/models"
)

// WithAddressPrefix prepends prefix (e.g. "Ukraine, Kyiv, ") to every address
// before it reaches next. Blank addresses are passed through untouched so the
// provider still rejects them. An empty prefix returns next unchanged.
func WithAddressPrefix(next Provider, prefix string) Provider {
	if prefix == "" {
		return next
	}

	return prefixedProvider{next: next, prefix: prefix}
}

type prefixedProvider struct {
	next   Provider
	prefix string
}

func (p prefixedProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return p.next.Geocode(ctx, address)
	}

	return p.next.Geocode(ctx, p.prefix+address)
}
