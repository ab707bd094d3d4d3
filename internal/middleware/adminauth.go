package middleware // reusable HTTP middleware for the admin surface

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/utils"
)

// AdminAuth returns an Echo middleware that requires a valid admin
// session cookie. The cookie is minted by the login handler after the
// shared password check; there are no individual admin accounts. A
// missing or invalid cookie yields 401 and the handler never runs.
func AdminAuth(sessionSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(utils.AdminCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "admin login required"})
			}
			if err := utils.VerifyAdminSession(sessionSecret, cookie.Value); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}
			return next(c)
		}
	}
}
