package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DonyChristie/crux/internal/events"
	"github.com/DonyChristie/crux/internal/httputil"
)

// CommentHandler covers threaded comments on the open post.
type CommentHandler struct {
	hub *Hub
}

// NewCommentHandler wires dependencies for comment endpoints.
func NewCommentHandler(hub *Hub) *CommentHandler {
	return &CommentHandler{hub: hub}
}

type addCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id,omitempty"`
}

type editCommentRequest struct {
	Content string `json:"content"`
}

// Add handles POST /posts/{id}/comments
// Adds a root comment, or a reply when parent_id is set.
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	postID := chi.URLParam(r, "id")
	commentID, err := sess.AddComment(r.Context(), postID, req.ParentID, req.Content)
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	h.hub.publish(r.Context(), events.NewCommentAddedEvent(postID, commentID, actorID(sess)))
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": commentID})
}

// Edit handles PUT /posts/{id}/comments/{commentID}
// Owner-only content edit; stamps updated_at.
func (h *CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req editCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := sess.EditComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentID"), req.Content)
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete handles DELETE /posts/{id}/comments/{commentID}
// Owner-only removal. Replies survive and are promoted to roots.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	err := sess.DeleteComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Rate handles PUT /posts/{id}/comments/{commentID}/rating
// Upserts the viewer's 0-11 rating of the comment.
func (h *CommentHandler) Rate(w http.ResponseWriter, r *http.Request) {
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
	commentID := chi.URLParam(r, "commentID")
	err := sess.RateComment(r.Context(), postID, commentID, req.Value)
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	h.hub.publish(r.Context(), events.NewRatingSetEvent(postID, commentID, actorID(sess), req.Value))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
