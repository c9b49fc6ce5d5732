package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionPrefix   = "session"
	sessionIDLength = 32
)

// SessionResolver keeps claims server-side in Redis under the SHA256 of an opaque
// session id. Only the id travels to the client.
type SessionResolver struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewSessionResolver(rdb *redis.Client, ttl time.Duration) *SessionResolver {
	return &SessionResolver{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *SessionResolver) Issue(ctx context.Context, userID int, username string) (string, time.Time, error) {
	raw := make([]byte, sessionIDLength)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session id: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	issuedAt := r.now()
	expiresAt := issuedAt.Add(r.ttl)
	claims := Claims{
		UserID:    userID,
		Username:  username,
		SessionID: token[:8],
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := r.rdb.Set(ctx, sessionKey(token), payload, r.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
	}
	return token, expiresAt, nil
}

func (r *SessionResolver) Resolve(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	payload, err := r.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: corrupt session payload", ErrInvalidToken)
	}
	if claims.ExpiresAt != nil && !r.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (r *SessionResolver) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.rdb.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%s:%s", sessionPrefix, hex.EncodeToString(sum[:]))
}
