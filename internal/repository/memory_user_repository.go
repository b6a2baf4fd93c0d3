package repository

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
)

// MemoryUserRepository keeps the registry in process memory. State is lost on
// restart and not shared between replicas.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.UserRecord
	order []string
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*domain.UserRecord),
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	return u.Clone(), nil
}

func (r *MemoryUserRepository) Update(_ context.Context, email string, fn MutateFunc) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.users[email]
	var snapshot *domain.UserRecord
	if exists {
		snapshot = current.Clone()
	}

	next, err := fn(snapshot)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if !exists {
			return nil, nil
		}
		return current.Clone(), nil
	}

	saved := next.Clone()
	saved.Email = email
	now := r.now()
	if exists {
		saved.CreatedAt = current.CreatedAt
	} else {
		saved.CreatedAt = now
		r.order = append(r.order, email)
	}
	saved.UpdatedAt = now
	r.users[email] = saved
	return saved.Clone(), nil
}

func (r *MemoryUserRepository) ListPendingAdmin(_ context.Context) ([]domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.UserRecord
	for _, email := range r.order {
		u := r.users[email]
		if u.HasPendingRequest() {
			out = append(out, *u.Clone())
		}
	}
	return out, nil
}
