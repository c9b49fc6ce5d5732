package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"todo-service/internal/auth"
	"todo-service/internal/entity"
	"todo-service/internal/metrics"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "service").Logger()

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByID(ctx context.Context, id int) (*entity.User, error)
}

type AuthService struct {
	users    UserStore
	hasher   *auth.PasswordHasher
	resolver auth.IdentityResolver
	metrics  *metrics.Metrics
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users UserStore, hasher *auth.PasswordHasher, resolver auth.IdentityResolver, m *metrics.Metrics) *AuthService {
	return &AuthService{users: users, hasher: hasher, resolver: resolver, metrics: m}
}

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// Register creates the account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, username, password string) (user *entity.User, err error) {
	defer func() { s.metrics.Auth("register", err) }()

	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	user, err = s.users.Create(ctx, username, hash)
	if err != nil {
		if !errors.Is(err, entity.ErrDuplicateUser) {
			logger.Error().Err(err).Str("username", username).Msg("Error creating user")
		}
		return nil, err
	}

	logger.Info().Int("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login verifies the credentials and issues a token. An unknown username and a
// wrong password produce the same error after the same amount of work.
func (s *AuthService) Login(ctx context.Context, username, password string) (res *LoginResult, err error) {
	defer func() { s.metrics.Auth("login", err) }()

	if username == "" || password == "" {
		return nil, entity.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, entity.ErrInvalidCredentials
		}
		logger.Error().Err(err).Msg("Error looking up user for login")
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		logger.Warn().Int("user_id", user.ID).Msg("failed login attempt")
		return nil, entity.ErrInvalidCredentials
	}

	token, expiresAt, err := s.resolver.Issue(ctx, user.ID, user.Username)
	if err != nil {
		logger.Error().Err(err).Int("user_id", user.ID).Msg("Error issuing token")
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes server-side state for token, if any.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.resolver.Revoke(ctx, token)
	s.metrics.Auth("logout", err)
	if err != nil {
		logger.Warn().Err(err).Msg("Error revoking session")
	}
	return err
}

// Authenticate resolves a token into claims. A token that does not resolve is
// ErrUnauthenticated; a failing session store is returned as is.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, entity.ErrUnauthenticated
	}
	claims, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, fmt.Errorf("%w: %v", entity.ErrUnauthenticated, err)
		}
		logger.Error().Err(err).Msg("Error resolving token")
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return claims, nil
}

// CurrentUser loads the user behind verified claims. A user that no longer
// exists is treated as logged out.
func (s *AuthService) CurrentUser(ctx context.Context, claims *auth.Claims) (*entity.User, error) {
	if claims == nil {
		return nil, entity.ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}
