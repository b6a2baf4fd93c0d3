package otp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
)

type Reason string

// Failure reasons. NotFound covers an absent, forged or malformed token and
// must stay collapsed into one value.
const (
	ReasonNotFound Reason = "not-found"
	ReasonExpired  Reason = "expired"
	ReasonMismatch Reason = "mismatch"
)

type Result struct {
	OK                    bool
	Reason                Reason
	Email                 string
	Role                  domain.Role
	PendingAdminRequest   bool
	PendingAdminRequestAt *time.Time
}

// UserEnsurer creates or promotes the registry record of a verified user.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, email string, seedAdmin bool) (*domain.UserRecord, error)
}

type Verifier struct {
	codec  *Codec
	users  UserEnsurer
	policy AdminPolicy
	guard  ReplayGuard
	now    func() time.Time
}

type VerifierOption func(*Verifier)

func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithReplayGuard makes every token single-use on the server side.
func WithReplayGuard(g ReplayGuard) VerifierOption {
	return func(v *Verifier) { v.guard = g }
}

func NewVerifier(codec *Codec, users UserEnsurer, policy AdminPolicy, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		codec:  codec,
		users:  users,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks code against token for email. The check order is fixed:
// authenticity, then expiry, then content. The error is only set when a
// backing store fails; rejected codes are reported through Result.
func (v *Verifier) Verify(ctx context.Context, email, code, token string) (Result, error) {
	p, ok := v.codec.Verify(token)
	if !ok {
		return Result{Reason: ReasonNotFound}, nil
	}

	if v.now().UnixMilli() > p.Exp {
		return Result{Reason: ReasonExpired}, nil
	}

	if p.Email != email || p.Code != code {
		return Result{Reason: ReasonMismatch}, nil
	}

	if v.guard != nil {
		if p.Nonce == "" {
			return Result{Reason: ReasonNotFound}, nil
		}
		first, err := v.guard.Consume(ctx, p.Nonce, time.UnixMilli(p.Exp))
		if err != nil {
			return Result{}, fmt.Errorf("consume otp nonce: %w", err)
		}
		if !first {
			return Result{Reason: ReasonNotFound}, nil
		}
	}

	normalized := strings.ToLower(email)
	user, err := v.users.EnsureUser(ctx, normalized, v.policy.IsAdmin(normalized))
	if err != nil {
		return Result{}, fmt.Errorf("ensure user: %w", err)
	}

	return Result{
		OK:                    true,
		Email:                 normalized,
		Role:                  user.Role,
		PendingAdminRequest:   user.HasPendingRequest(),
		PendingAdminRequestAt: pendingAt(user),
	}, nil
}

func pendingAt(u *domain.UserRecord) *time.Time {
	if !u.HasPendingRequest() || u.RequestedAt == nil {
		return nil
	}
	t := *u.RequestedAt
	return &t
}
