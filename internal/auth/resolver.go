package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ModeJWT     = "jwt"
	ModeSession = "session"
)

// IdentityResolver issues tokens at login and turns them back into an identity on
// every authenticated request.
type IdentityResolver interface {
	Issue(ctx context.Context, userID int, username string) (token string, expiresAt time.Time, err error)
	Resolve(ctx context.Context, token string) (*Claims, error)
	Revoke(ctx context.Context, token string) error
}

// NewIdentityResolver picks the implementation for mode. The session mode needs a
// Redis client.
func NewIdentityResolver(mode string, issuer *TokenIssuer, rdb *redis.Client, ttl time.Duration) (IdentityResolver, error) {
	switch mode {
	case "", ModeJWT:
		if issuer == nil {
			return nil, fmt.Errorf("jwt mode requires a token issuer")
		}
		return NewJWTResolver(issuer, ttl), nil
	case ModeSession:
		if rdb == nil {
			return nil, fmt.Errorf("session mode requires a redis client")
		}
		return NewSessionResolver(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// JWTResolver is stateless: the token itself carries the claims.
type JWTResolver struct {
	issuer *TokenIssuer
	ttl    time.Duration
}

func NewJWTResolver(issuer *TokenIssuer, ttl time.Duration) *JWTResolver {
	return &JWTResolver{issuer: issuer, ttl: ttl}
}

func (r *JWTResolver) Issue(_ context.Context, userID int, username string) (string, time.Time, error) {
	return r.issuer.Issue(Claims{UserID: userID, Username: username}, r.ttl)
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (*Claims, error) {
	return r.issuer.Verify(token)
}

// Revoke is a no-op; a JWT stays valid until it expires and logout only clears
// the cookie.
func (r *JWTResolver) Revoke(context.Context, string) error {
	return nil
}
