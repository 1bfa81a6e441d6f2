package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/security"
)

type authService struct {
	store  repository.Store
	tokens security.TokenManager
	opts   options
}

func NewAuthService(store repository.Store, tokens security.TokenManager, opts ...Option) AuthService {
	return &authService{store: store, tokens: tokens, opts: buildOptions(opts)}
}

// Login checks the password and issues a session token. Unknown users and
// wrong passwords produce the same error.
func (s *authService) Login(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error) {
	const method = "AuthService.Login"
	logger.EnterMethod(method, "username", username)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	var user *domain.User
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		user, err = repos.Users().GetByUsername(ctx, username)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return "", time.Time{}, domain.NewUnauthenticatedError("invalid username or password")
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return "", time.Time{}, domain.NewUnauthenticatedError("invalid username or password")
	}

	token, expiresAt, err = s.tokens.GenerateSessionToken(user.Username)
	if err != nil {
		return "", time.Time{}, err
	}
	logger.InfoContext(ctx, "User logged in", "username", user.Username)
	return token, expiresAt, nil
}

// Authenticate turns a bearer token into the request's session.
func (s *authService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.NewUnauthenticatedError("authorization token is not provided")
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, domain.NewUnauthenticatedError("invalid token: %v", err)
	}
	session := &domain.Session{
		Username:  claims.Username,
		Token:     token,
		RequestID: uuid.NewString(),
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
