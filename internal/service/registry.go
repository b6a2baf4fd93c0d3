package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/diagnosis/campus-connect/pkg/logger"
)

var (
	ErrMustVerifyFirst  = errors.New("user must verify first")
	ErrAlreadyAdmin     = errors.New("already an admin")
	ErrTargetNotFound   = errors.New("target user not found")
	ErrNoPendingRequest = errors.New("no pending admin request for this user")
)

// RoleRegistry owns every user's role and admin request state. All writes go
// through UserRepository.Update, so each transition is one atomic
// read-modify-write.
type RoleRegistry interface {
	EnsureUser(ctx context.Context, email string, seedAdmin bool) (*domain.UserRecord, error)
	GetUser(ctx context.Context, email string) (*domain.UserRecord, error)
	CreateAdminRequest(ctx context.Context, email string) (domain.AdminRequest, error)
	ListPendingAdminRequests(ctx context.Context) ([]domain.PendingAdminRequest, error)
	ApproveAdmin(ctx context.Context, targetEmail, approvedBy string) error
	RejectAdminRequest(ctx context.Context, targetEmail, rejectedBy string) error
}

type roleRegistry struct {
	users    repository.UserRepository
	eventBus events.Publisher
	now      func() time.Time
}

type RegistryOption func(*roleRegistry)

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *roleRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRoleRegistry(users repository.UserRepository, eventBus events.Publisher, opts ...RegistryOption) RoleRegistry {
	r := &roleRegistry{users: users, eventBus: eventBus, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *roleRegistry) EnsureUser(ctx context.Context, email string, seedAdmin bool) (*domain.UserRecord, error) {
	u, err := r.users.Update(ctx, email, func(cur *domain.UserRecord) (*domain.UserRecord, error) {
		if cur == nil {
			role := domain.RoleMember
			if seedAdmin {
				role = domain.RoleAdmin
			}
			return &domain.UserRecord{Email: email, Role: role}, nil
		}
		if !seedAdmin || cur.Role == domain.RoleAdmin {
			return nil, nil
		}
		// seeding never demotes; promotion closes any open request
		cur.Role = domain.RoleAdmin
		cur.RequestedAdmin = false
		cur.RequestedAt = nil
		return cur, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (r *roleRegistry) GetUser(ctx context.Context, email string) (*domain.UserRecord, error) {
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *roleRegistry) CreateAdminRequest(ctx context.Context, email string) (domain.AdminRequest, error) {
	var result domain.AdminRequest
	_, err := r.users.Update(ctx, email, func(cur *domain.UserRecord) (*domain.UserRecord, error) {
		switch {
		case cur == nil:
			return nil, ErrMustVerifyFirst
		case cur.Role == domain.RoleAdmin:
			return nil, ErrAlreadyAdmin
		case cur.RequestedAdmin:
			result = domain.AdminRequest{AlreadyRequested: true}
			if cur.RequestedAt != nil {
				result.RequestedAt = *cur.RequestedAt
			}
			return nil, nil
		}

		now := r.now()
		cur.RequestedAdmin = true
		cur.RequestedAt = &now
		result = domain.AdminRequest{RequestedAt: now}
		return cur, nil
	})
	if err != nil {
		return domain.AdminRequest{}, err
	}

	if !result.AlreadyRequested {
		logger.InfoContext(ctx, "Admin access requested", "email", email)
		events.Emit(ctx, r.eventBus, events.AdminRequested, events.AdminRequestedEvent{
			Email:       email,
			RequestedAt: result.RequestedAt.UnixMilli(),
		})
	}
	return result, nil
}

func (r *roleRegistry) ListPendingAdminRequests(ctx context.Context) ([]domain.PendingAdminRequest, error) {
	users, err := r.users.ListPendingAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending admin requests: %w", err)
	}

	pending := make([]domain.PendingAdminRequest, 0, len(users))
	for _, u := range users {
		if !u.HasPendingRequest() {
			continue
		}
		at := r.now()
		if u.RequestedAt != nil {
			at = *u.RequestedAt
		}
		pending = append(pending, domain.PendingAdminRequest{Email: u.Email, RequestedAt: at})
	}
	return pending, nil
}

func (r *roleRegistry) ApproveAdmin(ctx context.Context, targetEmail, approvedBy string) error {
	err := r.decide(ctx, targetEmail, func(cur *domain.UserRecord) {
		cur.Role = domain.RoleAdmin
		cur.ApprovedBy = approvedBy
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Admin request approved", "target", targetEmail, "approved_by", approvedBy)
	events.Emit(ctx, r.eventBus, events.AdminApproved, events.AdminDecisionEvent{
		Email: targetEmail, DecidedBy: approvedBy, At: r.now().UnixMilli(),
	})
	return nil
}

func (r *roleRegistry) RejectAdminRequest(ctx context.Context, targetEmail, rejectedBy string) error {
	if err := r.decide(ctx, targetEmail, func(*domain.UserRecord) {}); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Admin request rejected", "target", targetEmail, "rejected_by", rejectedBy)
	events.Emit(ctx, r.eventBus, events.AdminRejected, events.AdminDecisionEvent{
		Email: targetEmail, DecidedBy: rejectedBy, At: r.now().UnixMilli(),
	})
	return nil
}

// decide closes the target's pending request after apply has run on it.
func (r *roleRegistry) decide(ctx context.Context, targetEmail string, apply func(*domain.UserRecord)) error {
	_, err := r.users.Update(ctx, targetEmail, func(cur *domain.UserRecord) (*domain.UserRecord, error) {
		if cur == nil {
			return nil, ErrTargetNotFound
		}
		if !cur.RequestedAdmin {
			return nil, ErrNoPendingRequest
		}
		apply(cur)
		cur.RequestedAdmin = false
		cur.RequestedAt = nil
		return cur, nil
	})
	return err
}
