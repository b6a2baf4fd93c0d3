package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
	IsUsernameTaken(ctx context.Context, username, excludeEmail string) (bool, error)
	// UpdateProfile stores name and username and marks the profile complete.
	UpdateProfile(ctx context.Context, email, name, username string) (*domain.Profile, error)
	SetPasswordHash(ctx context.Context, email, hash string) error
	// Touch creates the profile row if needed and records activity.
	Touch(ctx context.Context, email string) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileCols = `email, name, username, COALESCE(password_hash, ''), has_completed_profile, last_seen_at, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.Email, &p.Name, &p.Username, &p.PasswordHash, &p.HasCompletedProfile, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) IsUsernameTaken(ctx context.Context, username, excludeEmail string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM profiles WHERE username = $1 AND email <> $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var taken bool
	err := r.pool.QueryRow(ctx, q, username, excludeEmail).Scan(&taken)
	return taken, err
}

func (r *profileRepository) UpdateProfile(ctx context.Context, email, name, username string) (*domain.Profile, error) {
	const q = `
		INSERT INTO profiles (email, name, username, has_completed_profile)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			has_completed_profile = true,
			updated_at = now()
		RETURNING ` + profileCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, email, name, username))
	if isUniqueViolation(err) {
		return nil, ErrDuplicateKey
	}
	return p, err
}

func (r *profileRepository) SetPasswordHash(ctx context.Context, email, hash string) error {
	const q = `
		INSERT INTO profiles (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, email, hash)
	return err
}

func (r *profileRepository) Touch(ctx context.Context, email string) error {
	const q = `
		INSERT INTO profiles (email, last_seen_at)
		VALUES ($1, now())
		ON CONFLICT (email) DO UPDATE SET last_seen_at = now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, email)
	return err
}

// MemoryProfileRepository is the in-process ProfileRepository used with USER_STORE=memory.
type MemoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*domain.Profile)}
}

func (r *MemoryProfileRepository) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[email]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *MemoryProfileRepository) IsUsernameTaken(_ context.Context, username, excludeEmail string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usernameOwnedByOther(username, excludeEmail), nil
}

func (r *MemoryProfileRepository) usernameOwnedByOther(username, email string) bool {
	for e, p := range r.profiles {
		if e != email && p.Username != nil && *p.Username == username {
			return true
		}
	}
	return false
}

func (r *MemoryProfileRepository) UpdateProfile(_ context.Context, email, name, username string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.usernameOwnedByOther(username, email) {
		return nil, ErrDuplicateKey
	}
	p := r.getOrCreate(email)
	p.Name = name
	p.Username = &username
	p.HasCompletedProfile = true
	p.UpdatedAt = time.Now()
	c := *p
	return &c, nil
}

func (r *MemoryProfileRepository) SetPasswordHash(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.getOrCreate(email)
	p.PasswordHash = hash
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryProfileRepository) Touch(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.getOrCreate(email).LastSeenAt = &now
	return nil
}

func (r *MemoryProfileRepository) getOrCreate(email string) *domain.Profile {
	p, ok := r.profiles[email]
	if !ok {
		now := time.Now()
		p = &domain.Profile{Email: email, CreatedAt: now, UpdatedAt: now}
		r.profiles[email] = p
	}
	return p
}
