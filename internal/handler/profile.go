package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DonyChristie/crux/internal/httputil"
)

// ProfileHandler covers author pages.
type ProfileHandler struct {
	hub *Hub
}

// NewProfileHandler wires dependencies for profile endpoints.
func NewProfileHandler(hub *Hub) *ProfileHandler {
	return &ProfileHandler{hub: hub}
}

// Open handles POST /profiles/{id}/open
// Opens an author page: their profile document plus a live feed of
// their posts. The view then streams through snapshots until closed.
func (h *ProfileHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	if err := sess.OpenProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}

// Close handles POST /profiles/close
// Tears down the open author page.
func (h *ProfileHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	sess.CloseProfile()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
