package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminOnly runs after Auth and rejects any user without the admin role.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Access denied. No token provided."})
		}
		if !user.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Access denied. Admin privileges required."})
		}
		return next(c)
	}
}
