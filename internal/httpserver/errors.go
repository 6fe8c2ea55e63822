package httpserver

import (
	"context"
	"errors"
	"net/http"

	"vendordesk/internal/directions"
	"vendordesk/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	var (
		verr   *domain.ValidationError
		geoErr *domain.GeolocationError
		remote *domain.RemoteError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &verr), errors.As(err, &geoErr), errors.Is(err, directions.ErrNoLocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotConfirmed), errors.Is(err, domain.ErrSuperseded), errors.Is(err, domain.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoAddressFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGeocodeLookupFailed), errors.Is(err, domain.ErrRemoteMutationFailed), errors.As(err, &remote):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) errorResponse {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorResponse{Error: verr.Error(), Fields: verr.Fields}
	case errors.Is(err, domain.ErrRemoteMutationFailed):
		return errorResponse{Error: domain.UserMessage(err, "The server rejected the change. Please try again.")}
	case errors.Is(err, domain.ErrGeocodeLookupFailed):
		return errorResponse{Error: domain.ErrGeocodeLookupFailed.Error()}
	}
	if statusFor(err) == http.StatusInternalServerError {
		return errorResponse{Error: "internal error"}
	}
	return errorResponse{Error: domain.UserMessage(err, err.Error())}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), newErrorResponse(err))
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), newErrorResponse(err))
}
