package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/internal/service"
	"github.com/diagnosis/campus-connect/pkg/auth"
	"github.com/diagnosis/campus-connect/pkg/config"
	"github.com/diagnosis/campus-connect/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Error codes returned next to the user-facing message.
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeOTPInvalid    = "OTP_INVALID"
	CodeOTPExpired    = "OTP_EXPIRED"
)

const maxBodyBytes = 1 << 20

// Per-user limits on chat writes.
const (
	messageRateLimit = 30
	roomRateLimit    = 10
	chatRateWindow   = time.Minute
)

type ctxKey string

const claimsKey ctxKey = "claims"

type Handlers struct {
	authService    service.AuthService
	registry       service.RoleRegistry
	profileService service.ProfileService
	chatService    service.ChatService
	rateLimitRepo  repository.RateLimitRepository
	config         *config.Config
}

func New(
	authService service.AuthService,
	registry service.RoleRegistry,
	profileService service.ProfileService,
	chatService service.ChatService,
	rateLimitRepo repository.RateLimitRepository,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:    authService,
		registry:       registry,
		profileService: profileService,
		chatService:    chatService,
		rateLimitRepo:  rateLimitRepo,
		config:         config,
	}
}

// Routes mounts every API endpoint on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", h.SendOTP)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/login-password", h.LoginPassword)
			r.Post("/check-profile", h.CheckProfile)
			r.Post("/logout", h.Logout)
			r.With(h.RequireSession).Get("/me", h.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/profile/password", h.SetPassword)

			r.Route("/users", func(r chi.Router) {
				r.Post("/request-admin", h.RequestAdmin)

				r.Group(func(r chi.Router) {
					r.Use(h.RequireAdmin)
					r.Post("/pending-approvals", h.PendingApprovals)
					r.Post("/approve", h.ApproveAdmin)
					r.Post("/reject", h.RejectAdmin)
				})
			})

			r.Route("/chat/rooms", func(r chi.Router) {
				r.Get("/", h.ListRooms)
				r.With(h.RateLimit("rooms", roomRateLimit, chatRateWindow)).Post("/", h.CreateRoom)
				r.Post("/join", h.JoinRoom)
				r.Get("/{roomID}/messages", h.ListMessages)
				r.With(h.RateLimit("messages", messageRateLimit, chatRateWindow)).Post("/{roomID}/messages", h.SendMessage)
			})
		})
	})
}

// RequireSession accepts the session cookie or a Bearer token.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r, h.config.Auth.SessionCookie)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Please sign in to continue.", CodeUnauthorized)
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.SessionSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Your session has expired. Please sign in again.", CodeUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin re-reads the caller's role so a stale session cannot keep admin rights.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.registry.GetUser(r.Context(), sessionEmail(r))
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to load caller record", "error", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", CodeInternalError)
			return
		}
		if user == nil || !user.Role.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin privileges required.", CodeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles a route per signed-in user. Limiter errors fail open.
func (h *Handlers) RateLimit(scope string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "chat:" + scope + ":" + sessionEmail(r)

			allowed, err := h.rateLimitRepo.CheckRateLimit(r.Context(), key, requests, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", CodeRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func sessionEmail(r *http.Request) string {
	if claims := getClaims(r); claims != nil {
		return claims.Email
	}
	return ""
}

func (h *Handlers) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(time.Until(expires).Round(time.Second) / time.Second),
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.config.App.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.config.App.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", CodeInvalidInput)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"message": message,
		"code":    code,
	})
}

// writeServiceError maps service errors onto status codes and user messages.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message, CodeInvalidInput)
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Please use your IITK email (…@iitk.ac.in).", CodeInvalidInput)
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", CodeRateLimited)
	case errors.Is(err, service.ErrNoPassword):
		writeError(w, http.StatusUnauthorized, "No password set. Please use OTP login.", CodeUnauthorized)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid password.", CodeUnauthorized)
	case errors.Is(err, service.ErrMustVerifyFirst):
		writeError(w, http.StatusBadRequest, "User must verify first.", CodeInvalidInput)
	case errors.Is(err, service.ErrAlreadyAdmin):
		writeError(w, http.StatusBadRequest, "Already an admin.", CodeInvalidInput)
	case errors.Is(err, service.ErrTargetNotFound):
		writeError(w, http.StatusBadRequest, "Target user not found.", CodeInvalidInput)
	case errors.Is(err, service.ErrNoPendingRequest):
		writeError(w, http.StatusBadRequest, "No pending admin request for this user.", CodeInvalidInput)
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "That username is already taken.", CodeConflict)
	case errors.Is(err, service.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found.", CodeNotFound)
	case errors.Is(err, service.ErrNotRoomMember):
		writeError(w, http.StatusForbidden, "You are not a member of this room.", CodeForbidden)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.", CodeInternalError)
	}
}
