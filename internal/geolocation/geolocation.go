// Package geolocation models a device position request with a bounded wait.
package geolocation

import (
	"context"
	"errors"
	"time"

	"vendordesk/internal/domain"
)

// DefaultTimeout bounds a position request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Position is a device location in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locator requests the current device position.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (Position, error) {
	return f(ctx)
}

// Locate asks l for a position, waiting at most timeout.
// A nil locator means the environment has no geolocation support.
// Failures are always *domain.GeolocationError, except cancellation of ctx itself.
func Locate(ctx context.Context, l Locator, timeout time.Duration) (Position, error) {
	if l == nil {
		return Position{}, &domain.GeolocationError{Kind: domain.GeolocationUnsupported}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		pos Position
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pos, err := l.Locate(ctx)
		ch <- result{pos: pos, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return Position{}, classify(r.err)
		}
		if !valid(r.pos) {
			return Position{}, &domain.GeolocationError{Kind: domain.GeolocationPositionUnavailable}
		}
		return r.pos, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, &domain.GeolocationError{Kind: domain.GeolocationTimeout}
		}
		return Position{}, ctx.Err()
	}
}

func classify(err error) error {
	var geoErr *domain.GeolocationError
	if errors.As(err, &geoErr) {
		return geoErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.GeolocationError{Kind: domain.GeolocationTimeout}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.GeolocationError{Kind: domain.GeolocationPositionUnavailable}
}

func valid(p Position) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
