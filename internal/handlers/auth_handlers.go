package handlers

import (
	"net/http"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/otp"
	mw "github.com/diagnosis/campus-connect/pkg/middleware"
)

// SendOTP issues a login code and hands the signed token back in an HTTP-only cookie.
func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issued, err := h.authService.SendOTP(r.Context(), &req, mw.ClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setCookie(w, h.config.Auth.CookieName, issued.Token, issued.ExpiresAt)

	response := map[string]interface{}{"ok": true}
	// Expose the code outside production for local testing
	if !h.config.App.IsProduction() {
		response["debugCode"] = issued.Code
	}
	writeJSON(w, http.StatusOK, response)
}

// VerifyOTP checks the submitted code against the otp_token cookie and starts a session.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var token string
	if c, err := r.Cookie(h.config.Auth.CookieName); err == nil {
		token = c.Value
	}

	login, reason, err := h.authService.VerifyOTP(r.Context(), &req, token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if reason != "" {
		if reason == otp.ReasonExpired {
			writeError(w, http.StatusBadRequest, "OTP expired. Please request a new one.", CodeOTPExpired)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid OTP. Try again.", CodeOTPInvalid)
		return
	}

	h.clearCookie(w, h.config.Auth.CookieName)
	h.writeLogin(w, login)
}

// LoginPassword signs in users who have set a password on their profile.
func (h *Handlers) LoginPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	login, err := h.authService.LoginWithPassword(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeLogin(w, login)
}

func (h *Handlers) writeLogin(w http.ResponseWriter, login *domain.LoginResult) {
	h.setCookie(w, h.config.Auth.SessionCookie, login.SessionToken, time.Now().Add(h.config.Auth.SessionTTL))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                    true,
		"email":                 login.Email,
		"role":                  login.Role,
		"pendingAdminRequest":   login.PendingAdminRequest,
		"pendingAdminRequestAt": login.PendingAdminRequestAt,
		"hasCompletedProfile":   login.HasCompletedProfile,
	})
}

func (h *Handlers) CheckProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	exists, completed, err := h.authService.CheckProfile(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                  true,
		"exists":              exists,
		"hasCompletedProfile": completed,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, h.config.Auth.SessionCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me reports the caller's current role, which may have changed since the session was issued.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)

	user, err := h.registry.GetUser(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"ok":                    true,
		"email":                 claims.Email,
		"method":                claims.Method,
		"role":                  domain.RoleMember,
		"pendingAdminRequest":   false,
		"pendingAdminRequestAt": nil,
	}
	if user != nil {
		response["role"] = user.Role
		response["pendingAdminRequest"] = user.HasPendingRequest()
		if user.HasPendingRequest() {
			response["pendingAdminRequestAt"] = domain.Milliseconds(user.RequestedAt)
		}
	}
	writeJSON(w, http.StatusOK, response)
}
