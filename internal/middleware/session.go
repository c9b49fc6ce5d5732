package middleware

import (
	"context"
	"errors"
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"todo-service/internal/auth"
	"todo-service/internal/entity"
)

const (
	// CookieName is the httpOnly cookie that carries the token.
	CookieName = "token"
	// ContextKey is where the resolved claims are stored on the echo context.
	ContextKey = "identity"
)

// tokenHeaders are checked in order after the cookie.
var tokenHeaders = []string{"x-access-token", "x-auth-token"}

// Authenticator resolves a raw token into verified claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// Session rejects requests without a resolvable token with
// entity.ErrUnauthenticated and attaches the claims to both the echo context and
// the request context otherwise. Other Authenticator errors pass through.
func Session(authn Authenticator) echo.MiddlewareFunc {
	lookup := "cookie:" + CookieName
	for _, h := range tokenHeaders {
		lookup += ",header:" + h
	}

	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: lookup,
		ContextKey:  ContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authn.Authenticate(c.Request().Context(), token)
		},
		SuccessHandler: func(c echo.Context) {
			claims, ok := c.Get(ContextKey).(*auth.Claims)
			if !ok {
				return
			}
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), claims)))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) && !errors.Is(err, entity.ErrUnauthenticated) {
				return parseErr.Err
			}
			return fmt.Errorf("%w: %v", entity.ErrUnauthenticated, err)
		},
	})
}

// Identity returns the claims attached by Session.
func Identity(c echo.Context) (*auth.Claims, bool) {
	if claims, ok := c.Get(ContextKey).(*auth.Claims); ok && claims != nil {
		return claims, true
	}
	return auth.IdentityFromContext(c.Request().Context())
}

// LookupToken finds the raw token the same way Session does, for routes that
// run without it.
func LookupToken(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	for _, h := range tokenHeaders {
		if v := c.Request().Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}
