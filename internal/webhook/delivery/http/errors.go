package http

import (
	"errors"
	"net/http"

	"gitlab-metrics/internal/webhook"
	pkgErrors "gitlab-metrics/pkg/errors"
)

var (
	errUnauthorized      = pkgErrors.NewHTTPError(http.StatusUnauthorized, "webhook validation failed")
	errTooManyRequests   = pkgErrors.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	errUnsupportedKind   = pkgErrors.NewHTTPError(http.StatusBadRequest, "unsupported event type")
	errInvalidPayload    = pkgErrors.NewHTTPError(http.StatusBadRequest, "invalid payload")
	errUnavailable       = pkgErrors.NewHTTPError(http.StatusServiceUnavailable, "event processor unavailable")
	errProcessingFailure = pkgErrors.NewHTTPError(http.StatusInternalServerError, "webhook processing failed")
)

// mapError translates webhook errors into HTTP errors from pkg/errors.
// Order matters: the specific processing errors all wrap ErrProcessing.
func (h *handler) mapError(err error) error {
	switch {
	case errors.Is(err, webhook.ErrAuthentication):
		return errUnauthorized
	case errors.Is(err, webhook.ErrRateLimited):
		return errTooManyRequests
	case errors.Is(err, webhook.ErrUnsupportedEventType):
		return errUnsupportedKind
	case errors.Is(err, webhook.ErrInvalidPayload), errors.Is(err, webhook.ErrMissingField):
		return errInvalidPayload
	case errors.Is(err, webhook.ErrProcessorUnavailable):
		return errUnavailable
	case errors.Is(err, webhook.ErrProcessing):
		return errProcessingFailure
	default:
		return pkgErrors.ErrInternalServerError
	}
}
