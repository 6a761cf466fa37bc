package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qlphonglab/labauth/internal/logging"
	"github.com/qlphonglab/labauth/internal/mykafka"
	"github.com/qlphonglab/labauth/internal/service"
	"github.com/qlphonglab/labauth/internal/validate"
)

type AuthHTTP struct {
	Svc      *service.AuthService
	Producer *mykafka.Producer
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	user, err := h.Svc.Register(ctx, validate.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		var fe service.FieldErrors
		if errors.As(err, &fe) {
			l.Warn("register_rejected", "status", 400, "fields", fe.Error())
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
		}
		l.Error("register_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	h.publishEvent(c, "user_registered", user.ID, user.Username)

	return c.JSON(http.StatusCreated, echo.Map{"message": "registration successful"})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier and password are required"})
	}

	res, err := h.Svc.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountDisabled):
			l.Warn("login_rejected", "status", 403, "reason", "account disabled")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account is disabled"})
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Warn("login_rejected", "status", 400)
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials"})
		default:
			l.Error("login_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
	}

	h.publishEvent(c, "user_logged_in", res.User.ID, res.User.Username)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_users")

	users, err := h.Svc.ListUsers(ctx, c.QueryParam("search"))
	if err != nil {
		l.Error("list_users_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, users)
}

// publishEvent is best effort: a broker failure is logged, never surfaced.
func (h *AuthHTTP) publishEvent(c echo.Context, eventType string, userID uint, username string) {
	if h.Producer == nil {
		return
	}

	event := map[string]any{
		"type":     eventType,
		"user_id":  userID,
		"username": username,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}
