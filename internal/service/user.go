package service

import (
	"context"
	"strings"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/security"
)

const minPasswordLength = 8

type userService struct {
	store repository.Store
	opts  options
}

func NewUserService(store repository.Store, opts ...Option) UserService {
	return &userService{store: store, opts: buildOptions(opts)}
}

func (s *userService) Register(ctx context.Context, username, name, email, password string) (user *domain.User, err error) {
	const method = "UserService.Register"
	logger.EnterMethod(method, "username", username)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if len(password) < minPasswordLength {
		return nil, domain.NewValidationError("password must be at least %d characters", minPasswordLength)
	}
	user = &domain.User{
		Username:  strings.TrimSpace(username),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: s.opts.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		return repos.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "User registered", "username", user.Username)
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, username string) (profile *domain.Profile, err error) {
	const method = "UserService.GetProfile"
	logger.EnterMethod(method, "username", username)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		user, err := repos.Users().GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		tools, err := repos.Tools().FindWhere(ctx, domain.ToolFilter{OwnerUsername: username})
		if err != nil {
			return err
		}
		rentals, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{RenterUsername: username})
		if err != nil {
			return err
		}
		requests, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{OwnerUsername: username})
		if err != nil {
			return err
		}
		profile = &domain.Profile{
			User:         *user,
			Tools:        tools,
			RentalCount:  len(rentals),
			RequestCount: len(requests),
		}
		for _, b := range requests {
			if b.Status == domain.BookingStatusPending {
				profile.PendingRequests++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *userService) ListUsers(ctx context.Context) (users []domain.User, err error) {
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		users, err = repos.Users().FindWhere(ctx, domain.UserFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
