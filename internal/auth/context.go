package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches verified claims to ctx.
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

// IdentityFromContext returns the claims attached by the session middleware.
func IdentityFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(identityKey).(*Claims)
	return claims, ok && claims != nil
}
