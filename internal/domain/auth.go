package domain

import (
	"fmt"
	"strings"

	"github.com/diagnosis/campus-connect/internal/utils"
)

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CheckProfileRequest struct {
	Email string `json:"email"`
}

// LoginResult is what a successful OTP or password login reports to the client.
type LoginResult struct {
	Email                 string
	Role                  Role
	PendingAdminRequest   bool
	PendingAdminRequestAt *int64
	HasCompletedProfile   bool
	SessionToken          string
}

func (r *SendOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *SendOTPRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("Email is required.")
	}
	return nil
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyOTPRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("Email is required.")
	}
	if r.Code == "" {
		return fmt.Errorf("OTP code is required.")
	}
	return nil
}

func (r *PasswordLoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *PasswordLoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("Email is required.")
	}
	if r.Password == "" {
		return fmt.Errorf("Password is required.")
	}
	return nil
}

func (r *CheckProfileRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *CheckProfileRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("Email is required.")
	}
	return nil
}
