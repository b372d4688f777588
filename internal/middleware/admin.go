package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AdminTokenHeader carries the shared secret for operator endpoints
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator endpoints with a shared secret.
// An empty token disables the guarded routes entirely.
func RequireAdminToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return forbiddenError(c, "admin endpoints are disabled")
			}

			provided := c.Request().Header.Get(AdminTokenHeader)
			if provided == "" {
				return unauthorizedError(c, "missing admin token")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				log.Warn().Str("path", c.Request().URL.Path).Str("ip", c.RealIP()).Msg("Rejected admin token")
				return unauthorizedError(c, "invalid admin token")
			}

			return next(c)
		}
	}
}
