package service

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProfileRepository()
	svc := NewProfileService(repo)

	p, err := svc.GetProfile(ctx, "a@iitk.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "a@iitk.ac.in", p.Email)
	assert.False(t, p.HasCompletedProfile)

	p, err = svc.UpdateProfile(ctx, "a@iitk.ac.in", &domain.UpdateProfileRequest{Name: " Asha ", Username: " Asha_K "})
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)
	require.NotNil(t, p.Username)
	assert.Equal(t, "asha_k", *p.Username)
	assert.True(t, p.HasCompletedProfile)

	// Re-saving your own username is allowed.
	_, err = svc.UpdateProfile(ctx, "a@iitk.ac.in", &domain.UpdateProfileRequest{Name: "Asha K", Username: "asha_k"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, "b@iitk.ac.in", &domain.UpdateProfileRequest{Name: "B", Username: "asha_k"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.UpdateProfile(ctx, "b@iitk.ac.in", &domain.UpdateProfileRequest{Name: "B", Username: "x"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestProfileService_SetPassword(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProfileRepository()
	svc := NewProfileService(repo)

	var vErr *ValidationError
	assert.ErrorAs(t, svc.SetPassword(ctx, "a@iitk.ac.in", &domain.SetPasswordRequest{Password: "short"}), &vErr)

	require.NoError(t, svc.SetPassword(ctx, "a@iitk.ac.in", &domain.SetPasswordRequest{Password: "long enough"}))

	p, err := repo.FindByEmail(ctx, "a@iitk.ac.in")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("long enough", p.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
