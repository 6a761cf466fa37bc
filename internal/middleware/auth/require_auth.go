package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qlphonglab/labauth/internal/tokens"
)

// Gate is the two-stage check guarding admin operations: Authenticate first,
// RequireAdmin second. The stages are distinct on purpose: a missing
// credential is 401, a supplied-but-rejected credential is 403.
type Gate struct {
	JWTSecret []byte
}

func NewGate(secret []byte) *Gate {
	return &Gate{JWTSecret: secret}
}

// Authenticate extracts the bearer token from the Authorization header,
// verifies it and attaches the claims to the request context.
func (g *Gate) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
		}

		claims, err := tokens.Parse(token, g.JWTSecret)
		if err != nil {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired token"})
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		return next(c)
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
