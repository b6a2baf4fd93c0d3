package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosis/campus-connect/internal/domain"
)

// RequestAdmin files an admin request for the signed-in user.
func (h *Handlers) RequestAdmin(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.CreateAdminRequest(r.Context(), sessionEmail(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":               true,
		"requestedAt":      result.RequestedAt.UnixMilli(),
		"alreadyRequested": result.AlreadyRequested,
	})
}

type pendingRequest struct {
	Email       string `json:"email"`
	RequestedAt int64  `json:"requestedAt"`
}

func (h *Handlers) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.registry.ListPendingAdminRequests(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]pendingRequest, len(pending))
	for i, p := range pending {
		out[i] = pendingRequest{Email: p.Email, RequestedAt: p.RequestedAt.UnixMilli()}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"pending": out,
	})
}

func (h *Handlers) ApproveAdmin(w http.ResponseWriter, r *http.Request) {
	h.decideAdmin(w, r, h.registry.ApproveAdmin)
}

func (h *Handlers) RejectAdmin(w http.ResponseWriter, r *http.Request) {
	h.decideAdmin(w, r, h.registry.RejectAdminRequest)
}

func (h *Handlers) decideAdmin(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, target, by string) error) {
	var req domain.ApproveAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Valid user email is required.", CodeInvalidInput)
		return
	}

	if err := decide(r.Context(), req.TargetEmail, sessionEmail(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
