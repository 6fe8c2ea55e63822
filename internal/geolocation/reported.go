package geolocation

import (
	"context"

	"vendordesk/internal/domain"
)

// Browser PositionError codes as reported by the dashboard UI.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Reported is a position (or failure) the UI obtained from the browser and forwarded.
type Reported struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ErrorCode   int      `json:"errorCode"`
	Unsupported bool     `json:"unsupported"`
}

func (r Reported) Locate(_ context.Context) (Position, error) {
	if r.Unsupported {
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationUnsupported}
	}
	switch r.ErrorCode {
	case 0:
	case CodePermissionDenied:
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationPermissionDenied}
	case CodeTimeout:
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationTimeout}
	default:
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationPositionUnavailable}
	}
	if r.Latitude == nil || r.Longitude == nil {
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationPositionUnavailable}
	}
	return Position{Latitude: *r.Latitude, Longitude: *r.Longitude}, nil
}
