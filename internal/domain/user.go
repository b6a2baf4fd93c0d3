package domain

import (
	"fmt"
	"time"

	"github.com/diagnosis/campus-connect/internal/utils"
)

type Role string

// Valid user roles
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleMember || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// UserRecord is the role registry entry for one normalized email.
// RequestedAdmin is always false while Role is admin.
type UserRecord struct {
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	RequestedAdmin bool       `json:"requested_admin"`
	RequestedAt    *time.Time `json:"requested_at,omitempty"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasPendingRequest reports an open admin request on a member record.
func (u *UserRecord) HasPendingRequest() bool {
	return u.RequestedAdmin && u.Role == RoleMember
}

func (u *UserRecord) Clone() *UserRecord {
	c := *u
	if u.RequestedAt != nil {
		t := *u.RequestedAt
		c.RequestedAt = &t
	}
	return &c
}

type AdminRequest struct {
	RequestedAt      time.Time
	AlreadyRequested bool
}

type PendingAdminRequest struct {
	Email       string
	RequestedAt time.Time
}

type ApproveAdminRequest struct {
	TargetEmail string `json:"targetEmail"`
}

func (r *ApproveAdminRequest) Normalize() {
	r.TargetEmail = utils.NormalizeEmail(r.TargetEmail)
}

func (r *ApproveAdminRequest) Validate() error {
	if !utils.IsValidEmail(r.TargetEmail) {
		return fmt.Errorf("valid user email is required")
	}
	return nil
}

// Milliseconds converts an optional instant to the epoch-millisecond wire form.
func Milliseconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
