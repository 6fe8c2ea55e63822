package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned before any network call when no vendor token (or vendor id) is available.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrGeocodeLookupFailed marks a retryable address lookup failure; prior state is left intact.
	ErrGeocodeLookupFailed = errors.New("could not auto-fill address, please try again")
	// ErrNoAddressFound is returned when a postal code lookup yields no candidates.
	ErrNoAddressFound = errors.New("no address found for this pincode")
	// ErrRemoteMutationFailed marks a rejected save or status update.
	ErrRemoteMutationFailed = errors.New("remote mutation failed")
	// ErrNotConfirmed is returned when the user declines a status change.
	ErrNotConfirmed = errors.New("status change not confirmed")
	// ErrSuperseded is returned when a completion arrives for a session state that is no longer current.
	ErrSuperseded = errors.New("result superseded by newer state")
	// ErrNotLoaded is returned when an operation needs the canonical vendor record before it was fetched.
	ErrNotLoaded = errors.New("vendor profile not loaded")
)

// ValidationError reports client-side field checks that failed before any network call.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "please fill in the required fields: " + strings.Join(e.Fields, ", ")
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

// GeolocationErrorKind distinguishes device location failures.
type GeolocationErrorKind string

const (
	GeolocationUnsupported         GeolocationErrorKind = "unsupported"
	GeolocationPermissionDenied    GeolocationErrorKind = "permission_denied"
	GeolocationPositionUnavailable GeolocationErrorKind = "position_unavailable"
	GeolocationTimeout             GeolocationErrorKind = "timeout"
)

// GeolocationError is a device location failure of a specific kind.
type GeolocationError struct {
	Kind GeolocationErrorKind
}

func (e *GeolocationError) Error() string {
	switch e.Kind {
	case GeolocationUnsupported:
		return "geolocation is not supported in this environment"
	case GeolocationPermissionDenied:
		return "location permission denied"
	case GeolocationPositionUnavailable:
		return "location information is unavailable"
	case GeolocationTimeout:
		return "location request timed out"
	default:
		return fmt.Sprintf("geolocation failed: %s", e.Kind)
	}
}

// RemoteError is a non-2xx response from the vendor API.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// UserMessage returns the server-provided message carried by err, or fallback.
func UserMessage(err error, fallback string) string {
	var remote *RemoteError
	if errors.As(err, &remote) && strings.TrimSpace(remote.Message) != "" {
		return remote.Message
	}
	return fallback
}
