package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workdesk/request-tracker/internal/api/metrics"
	"github.com/workdesk/request-tracker/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler maps domain errors to status codes and renders
// {"error": "<message>"}. Unknown errors are logged and answered with a 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, kind, msg := resolveError(err)
		if code == http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}
		metrics.RequestErrorsTotal.WithLabelValues(kind).Inc()

		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error) (code int, kind, msg string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, "http", fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest, "user_exists", "Username or email already exists"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid_transition", err.Error()
	case errors.Is(err, domain.ErrUnknownAssignee):
		return http.StatusBadRequest, "unknown_assignee", "Assignee does not exist"

	case errors.Is(err, domain.ErrMissingToken):
		return http.StatusUnauthorized, "missing_token", "No token provided"
	case errors.Is(err, domain.ErrMalformedToken):
		return http.StatusUnauthorized, "malformed_token", "Invalid token format"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "Invalid or expired token"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"

	case errors.Is(err, domain.ErrForbiddenRole):
		return http.StatusForbidden, "forbidden_role", "Admin access required"
	case errors.Is(err, domain.ErrNotAllowed):
		return http.StatusForbidden, "not_allowed", "Not allowed"

	case errors.Is(err, domain.ErrWorkOrderNotFound):
		return http.StatusNotFound, "not_found", "Task not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "not_found", "User not found"

	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "conflict", "Task was modified concurrently"
	case errors.Is(err, domain.ErrIdempotencyInProgress):
		return http.StatusConflict, "idempotency_in_progress", "A request with this Idempotency-Key is still in progress"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "locked", "Too many failed login attempts"
	}

	return http.StatusInternalServerError, "internal", "internal server error"
}
