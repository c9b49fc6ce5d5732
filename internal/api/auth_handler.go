package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"todo-service/internal/entity"
	"todo-service/internal/middleware"
	"todo-service/internal/service"
)

type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account --> POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return entity.NewValidationError("", "Invalid request payload")
	}

	user, err := h.auth.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login issues a token and sets it as an httpOnly cookie --> POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return entity.NewValidationError("", "Invalid request payload")
	}

	res, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(h.cookie(res.Token, res.ExpiresAt))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Logout revokes the current token, if any, and clears the cookie --> POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := middleware.LookupToken(c); token != "" {
		// Revocation is best effort; the cookie is cleared regardless.
		_ = h.auth.Logout(c.Request().Context(), token)
	}

	cookie := h.cookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// CheckSession reports the logged-in user --> GET /auth/check-session
func (h *AuthHandler) CheckSession(c echo.Context) error {
	claims, ok := middleware.Identity(c)
	if !ok {
		return entity.ErrUnauthenticated
	}

	user, err := h.auth.CurrentUser(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"loggedIn": true,
		"user":     user,
	})
}

func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
