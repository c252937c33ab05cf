package middleware

import (
	"net/http"
	"strings"

	"fabro-storefront/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	AdminIDKey    = "admin_id"
	AdminEmailKey = "admin_email"
)

// AdminAuth rejects requests without a valid admin bearer token and stores the
// admin identity on the context for handlers that record who acted.
func AdminAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := auth.ParseAdminToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(AdminIDKey, claims.Subject)
			c.Set(AdminEmailKey, claims.Email)
			return next(c)
		}
	}
}
