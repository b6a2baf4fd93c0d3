package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Profile struct {
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Username            *string    `json:"username"`
	PasswordHash        string     `json:"-"`
	HasCompletedProfile bool       `json:"hasCompletedProfile"`
	LastSeenAt          *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"-"`
	UpdatedAt           time.Time  `json:"-"`
}

func (p *Profile) HasPassword() bool {
	return p != nil && p.PasswordHash != ""
}

type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

const minPasswordLength = 8

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.]{3,32}$`)

func (r *UpdateProfileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > 100 {
		return fmt.Errorf("name must be at most 100 characters")
	}
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(r.Username) {
		return fmt.Errorf("username must be 3-32 characters of a-z, 0-9, '_' or '.'")
	}
	return nil
}

func (r *SetPasswordRequest) Validate() error {
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if len(r.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
