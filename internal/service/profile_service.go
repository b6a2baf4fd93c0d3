package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/pkg/logger"
)

type ProfileService interface {
	GetProfile(ctx context.Context, email string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, email string, req *domain.UpdateProfileRequest) (*domain.Profile, error)
	SetPassword(ctx context.Context, email string, req *domain.SetPasswordRequest) error
}

type profileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

// GetProfile returns the stored profile, or an empty one for users who never
// completed it.
func (s *profileService) GetProfile(ctx context.Context, email string) (*domain.Profile, error) {
	p, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if p == nil {
		return &domain.Profile{Email: email}, nil
	}
	return p, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, email string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	taken, err := s.profiles.IsUsernameTaken(ctx, req.Username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	p, err := s.profiles.UpdateProfile(ctx, email, req.Name, req.Username)
	if errors.Is(err, repository.ErrDuplicateKey) {
		// lost a race with another user claiming the same username
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logger.InfoContext(ctx, "Profile completed", "email", email)
	return p, nil
}

func (s *profileService) SetPassword(ctx context.Context, email string, req *domain.SetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.profiles.SetPasswordHash(ctx, email, hash); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return nil
}
