package handlers

import (
	"net/http"

	"github.com/diagnosis/campus-connect/internal/domain"
)

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.Context(), sessionEmail(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "profile": profile})
}

// UpdateProfile completes the profile setup flow.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profileService.UpdateProfile(r.Context(), sessionEmail(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "profile": profile})
}

func (h *Handlers) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.SetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profileService.SetPassword(r.Context(), sessionEmail(r), &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
