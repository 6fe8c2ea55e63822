// Package geocode defines the address lookup capability used by the profile synchronizer.
package geocode

import (
	"context"

	"vendordesk/internal/domain"
)

// Provider resolves coordinates and postal codes to addresses.
// Returned addresses carry pincode, state, district and country; coordinates are left unset.
type Provider interface {
	Reverse(ctx context.Context, lat, lon float64) (domain.Address, error)
	SearchPostalCode(ctx context.Context, code, countryCode string) ([]domain.Address, error)
}
