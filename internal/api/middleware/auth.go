package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/workdesk/request-tracker/internal/api/metrics"
	"github.com/workdesk/request-tracker/internal/core/domain"
	"github.com/workdesk/request-tracker/internal/core/ports"
)

const claimsKey = "claims"

// Authenticated verifies the bearer token and stores the caller's claims in
// the echo context. Failures are returned as domain errors for the HTTP error
// handler to render.
func Authenticated(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := tokens.Verify(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues(failureReason(err)).Inc()
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by Authenticated.
func ClaimsFrom(c echo.Context) (domain.Claims, bool) {
	claims, ok := c.Get(claimsKey).(domain.Claims)
	return claims, ok
}

// SetClaims is used by tests and by handlers mounted behind Authenticated.
func SetClaims(c echo.Context, claims domain.Claims) {
	c.Set(claimsKey, claims)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed_token"
	default:
		return "invalid_token"
	}
}
