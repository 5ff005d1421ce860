package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// AdminOnly must run after Authenticated. Callers without the admin role get
// domain.ErrForbiddenRole; a missing claims value is treated as a missing token.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return domain.ErrMissingToken
			}
			if !claims.Role.IsAdmin() {
				return domain.ErrForbiddenRole
			}
			return next(c)
		}
	}
}
