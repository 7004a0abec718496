package handler

import (
	"log"
	"net/http"

	"github.com/DonyChristie/crux/internal/config"
	"github.com/DonyChristie/crux/internal/httputil"
	"github.com/DonyChristie/crux/internal/transport/http/middleware"
)

// SessionHandler manages engine session lifecycle and state reads.
type SessionHandler struct {
	hub    *Hub
	config *config.Config
}

// NewSessionHandler wires the hub and config for session endpoints.
func NewSessionHandler(hub *Hub, cfg *config.Config) *SessionHandler {
	return &SessionHandler{hub: hub, config: cfg}
}

// Create handles POST /session
// Starts a fresh engine session and returns the token that addresses it.
// The token also rides back as a cookie so browser clients get it for
// free.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _, err := h.hub.Create()
	if err != nil {
		log.Printf("[ERROR] Create session: %v", err)
		httputil.WriteInternalError(w, "Failed to create session")
		return
	}

	token, err := middleware.IssueSessionToken(h.config.JWTSecret, id, h.config.SessionMaxAge)
	if err != nil {
		h.hub.Destroy(id)
		log.Printf("[ERROR] Issue session token: %v", err)
		httputil.WriteInternalError(w, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"session_id": id,
		"token":      token,
	})
}

// Destroy handles DELETE /session
// Stops the caller's session and clears the cookie.
func (h *SessionHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if !h.hub.Destroy(id) {
		httputil.WriteNotFound(w, "Session not found")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// State handles GET /state
// Returns the full current snapshot: viewer, feed, tag directory, open
// views, drafts and preferences.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}
