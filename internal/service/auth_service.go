package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/mailer"
	"github.com/diagnosis/campus-connect/internal/otp"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/internal/utils"
	"github.com/diagnosis/campus-connect/pkg/auth"
	"github.com/diagnosis/campus-connect/pkg/config"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/diagnosis/campus-connect/pkg/logger"
)

// Login methods recorded in sessions and events.
const (
	MethodOTP      = "otp"
	MethodPassword = "password"
)

type AuthService interface {
	SendOTP(ctx context.Context, req *domain.SendOTPRequest, clientIP string) (otp.Issued, error)
	// VerifyOTP returns a login on success, or the rejection reason.
	VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest, token string) (*domain.LoginResult, otp.Reason, error)
	LoginWithPassword(ctx context.Context, req *domain.PasswordLoginRequest) (*domain.LoginResult, error)
	CheckProfile(ctx context.Context, req *domain.CheckProfileRequest) (exists, completed bool, err error)
}

type authService struct {
	issuer    *otp.Issuer
	verifier  *otp.Verifier
	policy    otp.AdminPolicy
	registry  RoleRegistry
	profiles  repository.ProfileRepository
	rateLimit repository.RateLimitRepository
	mailer    mailer.Service
	eventBus  events.Publisher
	config    *config.Config
}

func NewAuthService(
	issuer *otp.Issuer,
	verifier *otp.Verifier,
	registry RoleRegistry,
	profiles repository.ProfileRepository,
	rateLimit repository.RateLimitRepository,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		issuer:    issuer,
		verifier:  verifier,
		policy:    AdminPolicyFromConfig(config.Auth),
		registry:  registry,
		profiles:  profiles,
		rateLimit: rateLimit,
		mailer:    mailer,
		eventBus:  eventBus,
		config:    config,
	}
}

// AdminPolicyFromConfig builds the admin seeding policy from ADMIN_EMAILS and ADMIN_DOMAIN.
func AdminPolicyFromConfig(cfg config.AuthConfig) otp.AdminPolicy {
	return otp.AdminPolicy{Emails: cfg.AdminEmails, Domain: cfg.AdminDomain}
}

func (s *authService) checkInstitutional(email string) error {
	if !utils.IsInstitutionalEmail(email, s.config.Auth.AllowedEmailDomains) {
		return ErrInvalidEmail
	}
	return nil
}

func (s *authService) SendOTP(ctx context.Context, req *domain.SendOTPRequest, clientIP string) (otp.Issued, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return otp.Issued{}, invalid(err)
	}
	if err := s.checkInstitutional(req.Email); err != nil {
		return otp.Issued{}, err
	}

	limit, window := s.config.Auth.RateLimitRequests, s.config.Auth.RateLimitWindow
	for _, key := range []string{"otp:ip:" + clientIP, "otp:email:" + req.Email} {
		allowed, err := s.rateLimit.CheckRateLimit(ctx, key, limit, window)
		if err != nil {
			logger.WarnContext(ctx, "Rate limit check failed", "error", err)
			continue
		}
		if !allowed {
			return otp.Issued{}, ErrRateLimited
		}
	}

	issued, err := s.issuer.Issue(req.Email)
	if err != nil {
		return otp.Issued{}, fmt.Errorf("issue otp: %w", err)
	}

	if err := s.mailer.SendLoginCode(ctx, req.Email, issued.Code, s.issuer.TTL()); err != nil {
		logger.ErrorContext(ctx, "Failed to send login code email", "error", err, "email", req.Email)
		// Don't fail the request if email fails
	}

	events.Emit(ctx, s.eventBus, events.OTPIssued, events.OTPIssuedEvent{
		Email:     req.Email,
		ExpiresAt: issued.ExpiresAt.UnixMilli(),
	})
	return issued, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest, token string) (*domain.LoginResult, otp.Reason, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", invalid(err)
	}
	if err := s.checkInstitutional(req.Email); err != nil {
		return nil, "", err
	}

	res, err := s.verifier.Verify(ctx, req.Email, req.Code, token)
	if err != nil {
		return nil, "", fmt.Errorf("verify otp: %w", err)
	}
	if !res.OK {
		logger.InfoContext(ctx, "OTP verification rejected", "email", req.Email, "reason", string(res.Reason))
		return nil, res.Reason, nil
	}

	login := &domain.LoginResult{
		Email:                 res.Email,
		Role:                  res.Role,
		PendingAdminRequest:   res.PendingAdminRequest,
		PendingAdminRequestAt: domain.Milliseconds(res.PendingAdminRequestAt),
	}
	if err := s.completeLogin(ctx, login, MethodOTP); err != nil {
		return nil, "", err
	}
	return login, "", nil
}

func (s *authService) LoginWithPassword(ctx context.Context, req *domain.PasswordLoginRequest) (*domain.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkInstitutional(req.Email); err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if !profile.HasPassword() {
		return nil, ErrNoPassword
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, profile.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	user, err := s.registry.EnsureUser(ctx, req.Email, s.policy.IsAdmin(req.Email))
	if err != nil {
		return nil, err
	}

	login := &domain.LoginResult{
		Email:                 user.Email,
		Role:                  user.Role,
		PendingAdminRequest:   user.HasPendingRequest(),
		PendingAdminRequestAt: pendingMillis(user),
	}
	if err := s.completeLogin(ctx, login, MethodPassword); err != nil {
		return nil, err
	}
	return login, nil
}

// completeLogin records activity, fills profile state and mints the session.
func (s *authService) completeLogin(ctx context.Context, login *domain.LoginResult, method string) error {
	if err := s.profiles.Touch(ctx, login.Email); err != nil {
		logger.WarnContext(ctx, "Failed to record profile activity", "error", err, "email", login.Email)
	}

	profile, err := s.profiles.FindByEmail(ctx, login.Email)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	login.HasCompletedProfile = profile != nil && profile.HasCompletedProfile

	token, err := auth.NewSessionToken(login.Email, string(login.Role), method,
		s.config.Auth.SessionSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}
	login.SessionToken = token

	logger.InfoContext(ctx, "Login succeeded", "email", login.Email, "role", string(login.Role), "method", method)
	events.Emit(ctx, s.eventBus, events.LoginSucceeded, events.LoginSucceededEvent{
		Email:  login.Email,
		Role:   string(login.Role),
		Method: method,
		At:     time.Now().UnixMilli(),
	})
	return nil
}

func (s *authService) CheckProfile(ctx context.Context, req *domain.CheckProfileRequest) (bool, bool, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return false, false, invalid(err)
	}

	profile, err := s.profiles.FindByEmail(ctx, req.Email)
	if err != nil {
		return false, false, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return false, false, nil
	}
	return true, profile.HasCompletedProfile, nil
}

func pendingMillis(u *domain.UserRecord) *int64 {
	if !u.HasPendingRequest() {
		return nil
	}
	return domain.Milliseconds(u.RequestedAt)
}
