// Package geocoder turns coordinates into human readable place names.
package geocoder

import (
	"context"
	"errors"
)

var (
	ErrNoResult        = errors.New("no address found for coordinates")
	ErrGeocodeFailed   = errors.New("reverse geocoding failed")
	ErrTimeout         = errors.New("reverse geocoding timed out")
	ErrInvalidResponse = errors.New("invalid response from geocoding provider")
)

// Resolver performs a single reverse geocode lookup. Implementations return
// ErrNoResult when the provider has no address for the point.
type Resolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
