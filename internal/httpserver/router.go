package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qlphonglab/labauth/internal/middleware/auth"
)

type Deps struct {
	AuthHandler *AuthHTTP
	JWTSecret   []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	gate := auth.NewGate(d.JWTSecret)

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.GET("/users", d.AuthHandler.ListUsers, gate.Authenticate, gate.RequireAdmin)
}
