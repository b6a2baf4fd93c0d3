package handlers

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListRooms returns the caller's rooms, filtered by ?label=all|none|<label>.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.chatService.ListRooms(r.Context(), sessionEmail(r), r.URL.Query().Get("label"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "rooms": rooms})
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.chatService.CreateRoom(r.Context(), sessionEmail(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "room": room})
}

func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.chatService.JoinRoom(r.Context(), sessionEmail(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "room": room})
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseRoomID(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", CodeInvalidInput)
			return
		}
		limit = n
	}

	msgs, err := h.chatService.ListMessages(r.Context(), sessionEmail(r), roomID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "messages": msgs})
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseRoomID(w, r)
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), sessionEmail(r), roomID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "message": msg})
}

func parseRoomID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room ID", CodeInvalidInput)
		return uuid.Nil, false
	}
	return id, true
}
