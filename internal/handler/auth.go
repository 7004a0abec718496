package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/DonyChristie/crux/internal/httputil"
)

// AuthHandler groups the identity endpoints. Auth state lives in the
// engine session; these endpoints mutate it and return the refreshed
// snapshot so clients can render the result in one round trip.
type AuthHandler struct {
	hub *Hub
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(hub *Hub) *AuthHandler {
	return &AuthHandler{hub: hub}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedRequest struct {
	IDToken string `json:"id_token"`
}

// SignIn handles POST /auth/signin
// Email and password sign-in. A failure is reported twice: as the HTTP
// error and as the sanitized auth_error in subsequent snapshots.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "Email and password are required")
		return
	}

	if err := sess.SignIn(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}

// SignUp handles POST /auth/signup
// Creates the account and signs the session in as it.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "Email and password are required")
		return
	}

	if err := sess.SignUp(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}

// SignInGoogle handles POST /auth/google
// Federated sign-in with a Google ID token.
func (h *AuthHandler) SignInGoogle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req federatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.IDToken == "" {
		httputil.WriteBadRequest(w, "id_token is required")
		return
	}

	if err := sess.SignInWithGoogle(r.Context(), req.IDToken); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}

// SignOut handles POST /auth/signout
// Drops the identity and reverts the session to its guest state. The
// compose buffer is auto-saved as a draft before the identity goes away.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	if err := sess.SignOut(r.Context()); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}
