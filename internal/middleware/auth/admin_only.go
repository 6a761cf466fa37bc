package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin runs after Authenticate and checks the attached role claim.
func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get("role").(string)
		if role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
		}
		return next(c)
	}
}
