package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer(nil)
	assert.Error(t, err)

	ti, err := NewTokenIssuer([]byte("secret"))
	require.NoError(t, err)
	assert.NotNil(t, ti)
}

func TestTokenIssuer_IssueVerify(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ti, err := NewTokenIssuer([]byte("secret"))
	require.NoError(t, err)
	ti.WithClock(fixedClock(now))

	token, expiresAt, err := ti.Issue(Claims{UserID: 7, Username: "alice"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_Issue_RejectsNonPositiveTTL(t *testing.T) {
	ti, err := NewTokenIssuer([]byte("secret"))
	require.NoError(t, err)

	_, _, err = ti.Issue(Claims{UserID: 1}, 0)
	assert.Error(t, err)
}

func TestTokenIssuer_Verify_Failures(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ti, err := NewTokenIssuer([]byte("secret"))
	require.NoError(t, err)
	ti.WithClock(fixedClock(now))

	valid, _, err := ti.Issue(Claims{UserID: 1, Username: "alice"}, time.Hour)
	require.NoError(t, err)

	other, err := NewTokenIssuer([]byte("other-secret"))
	require.NoError(t, err)
	other.WithClock(fixedClock(now))
	foreign, _, err := other.Issue(Claims{UserID: 1, Username: "alice"}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-token"},
		{"empty", ""},
		{"bad signature", tampered},
		{"signed with another secret", foreign},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ti.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenIssuer_Verify_Expired(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	current := start
	ti, err := NewTokenIssuer([]byte("secret"))
	require.NoError(t, err)
	ti.WithClock(func() time.Time { return current })

	token, _, err := ti.Issue(Claims{UserID: 1, Username: "alice"}, time.Second)
	require.NoError(t, err)

	_, err = ti.Verify(token)
	require.NoError(t, err)

	current = start.Add(2 * time.Second)
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
