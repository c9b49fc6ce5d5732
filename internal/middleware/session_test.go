package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-service/internal/auth"
	"todo-service/internal/entity"
)

type fakeAuthenticator map[string]*auth.Claims

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if claims, ok := f[token]; ok {
		return claims, nil
	}
	return nil, entity.ErrUnauthenticated
}

func TestSession(t *testing.T) {
	authn := fakeAuthenticator{"good": {UserID: 7, Username: "alice"}}

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantID  int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "good"}) }, 7},
		{"x-access-token", func(r *http.Request) { r.Header.Set("x-access-token", "good") }, 7},
		{"x-auth-token", func(r *http.Request) { r.Header.Set("X-Auth-Token", "good") }, 7},
		{"missing", func(r *http.Request) {}, 0},
		{"unknown token", func(r *http.Request) { r.Header.Set("x-access-token", "forged") }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen *auth.Claims
			h := Session(authn)(func(c echo.Context) error {
				fromCtx, ok := auth.IdentityFromContext(c.Request().Context())
				require.True(t, ok)
				fromEcho, ok := Identity(c)
				require.True(t, ok)
				assert.Same(t, fromCtx, fromEcho)
				seen = fromCtx
				return c.NoContent(http.StatusOK)
			})

			err := h(c)
			if tt.wantID == 0 {
				assert.ErrorIs(t, err, entity.ErrUnauthenticated)
				assert.Nil(t, seen)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantID, seen.UserID)
		})
	}
}

func TestLookupToken(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	req.Header.Set("x-access-token", "from-header")
	assert.Equal(t, "from-cookie", LookupToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("x-auth-token", "fallback")
	assert.Equal(t, "fallback", LookupToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	assert.Empty(t, LookupToken(e.NewContext(req, httptest.NewRecorder())))
}

type failingAuthenticator struct{ err error }

func (f failingAuthenticator) Authenticate(context.Context, string) (*auth.Claims, error) {
	return nil, f.err
}

func TestSession_StoreFailurePassesThrough(t *testing.T) {
	storeErr := errors.New("redis: connection refused")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("x-access-token", "token")
	c := e.NewContext(req, httptest.NewRecorder())

	err := Session(failingAuthenticator{err: storeErr})(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(c)

	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, entity.ErrUnauthenticated)
}
