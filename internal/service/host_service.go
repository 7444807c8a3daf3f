package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/pkg/auth"
	"github.com/slotwise/schedulr/pkg/config"
)

type HostService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, string, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error)
	GetHost(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, timezone, bio, welcome string) (*domain.User, error)
	PublicProfile(ctx context.Context, handle string) (*domain.User, []domain.EventType, error)
}

type hostService struct {
	userRepo      postgres.UserRepo
	eventTypeRepo postgres.EventTypeRepo
	cfg           *config.Config
}

func NewHostService(userRepo postgres.UserRepo, eventTypeRepo postgres.EventTypeRepo, cfg *config.Config) HostService {
	return &hostService{userRepo: userRepo, eventTypeRepo: eventTypeRepo, cfg: cfg}
}

func (s *hostService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	existing, _, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", domain.NewValidationError("email", "already registered")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "users_handle_key") {
			return nil, "", domain.NewValidationError("handle", "already taken")
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Handle, s.cfg.Auth.JWTSecret, s.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

func (s *hostService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	user, hash, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrUnauthorized
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, hash)
	if err != nil || !match {
		return nil, "", domain.ErrUnauthorized
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Handle, s.cfg.Auth.JWTSecret, s.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

func (s *hostService) GetHost(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *hostService) UpdateProfile(ctx context.Context, id int64, name, timezone, bio, welcome string) (*domain.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if _, err := domain.LoadTimezone(timezone); err != nil {
		return nil, domain.NewValidationError("timezone", "unknown timezone")
	}

	user, err := s.userRepo.UpdateProfile(ctx, id, strings.TrimSpace(name), timezone, bio, welcome)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// PublicProfile serves the unauthenticated booking page: display info plus
// active event types, host-scoped but not requester-scoped.
func (s *hostService) PublicProfile(ctx context.Context, handle string) (*domain.User, []domain.EventType, error) {
	user, err := s.userRepo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up host: %w", err)
	}
	if user == nil {
		return nil, nil, domain.ErrNotFound
	}

	eventTypes, err := s.eventTypeRepo.ListByHost(ctx, user.ID, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list event types: %w", err)
	}
	return user, eventTypes, nil
}
