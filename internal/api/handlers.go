package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	svc *cardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *cardservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetLock handles GET /lock.
func (h *Handler) GetLock(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.LockStatus(r.Context(), SessionID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Turn handles POST /lock/tumblers/{position}/{direction}. Turning a lock
// that is already opening or open returns the unchanged status.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	req := TurnRequest{
		Position:  chi.URLParam(r, "position"),
		Direction: chi.URLParam(r, "direction"),
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, fmt.Errorf("%w: %s", apperr.ErrInvalidArgument, err.Error()))
		return
	}
	pos, _ := strconv.Atoi(req.Position)

	st, err := h.svc.Turn(r.Context(), SessionID(r.Context()), pos, session.Direction(req.Direction))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetPlaylist handles GET /playlist.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Playlist(r.Context()))
}

// ListKeepsakes handles GET /keepsakes. It is forbidden until the lock opens.
func (h *Handler) ListKeepsakes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Keepsakes(r.Context(), SessionID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeepsakeListResponse{Keepsakes: items})
}

// GetKeepsake handles GET /keepsakes/{id}.
func (h *Handler) GetKeepsake(w http.ResponseWriter, r *http.Request) {
	k, err := h.svc.Keepsake(r.Context(), SessionID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}
