package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DonyChristie/crux/internal/events"
	"github.com/DonyChristie/crux/internal/httputil"
	"github.com/DonyChristie/crux/internal/session"
)

// actorID is the signed-in viewer behind a session, empty for guests.
func actorID(sess *session.Session) string {
	if v := sess.CurrentSnapshot().Viewer; v != nil {
		return v.ID
	}
	return ""
}

// PostHandler covers post authoring, the open-post view and ratings.
type PostHandler struct {
	hub *Hub
}

// NewPostHandler wires dependencies for post endpoints.
func NewPostHandler(hub *Hub) *PostHandler {
	return &PostHandler{hub: hub}
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

type rateRequest struct {
	Value int `json:"value"`
}

// Create handles POST /posts
// Publishes a post for the signed-in viewer. Tags arrive as the raw
// comma-separated compose field. Subject to the posting cooldown.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	postID, err := sess.CreatePost(r.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	h.hub.publish(r.Context(), events.NewPostCreatedEvent(postID, actorID(sess)))
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": postID})
}

// Delete handles DELETE /posts/{id}
// Owner-only removal.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")
	if err := sess.DeletePost(r.Context(), postID); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	h.hub.publish(r.Context(), events.NewPostDeletedEvent(postID, actorID(sess)))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Rate handles PUT /posts/{id}/rating
// Upserts the viewer's 0-11 rating of the post.
func (h *PostHandler) Rate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	postID := chi.URLParam(r, "id")
	if err := sess.RatePost(r.Context(), postID, req.Value); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	h.hub.publish(r.Context(), events.NewRatingSetEvent(postID, "", actorID(sess), req.Value))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Open handles POST /posts/{id}/open
// Opens the post view: the post plus its live threaded comments. The
// view then streams through snapshots until closed.
func (h *PostHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	if err := sess.OpenPost(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot())
}

// Close handles POST /posts/close
// Tears down the open post view.
func (h *PostHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	sess.ClosePost()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
