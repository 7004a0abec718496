package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DonyChristie/crux/internal/httputil"
	"github.com/DonyChristie/crux/internal/model"
)

// DraftHandler covers drafts and the compose buffer. Drafts belong to
// the session's current owner: the signed-in identity, or the device
// guest id when signed out.
type DraftHandler struct {
	hub *Hub
}

// NewDraftHandler wires dependencies for draft endpoints.
func NewDraftHandler(hub *Hub) *DraftHandler {
	return &DraftHandler{hub: hub}
}

type draftRequest struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (req draftRequest) draft() model.Draft {
	return model.Draft{
		ID:      req.ID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}
}

// List handles GET /drafts
// Returns the owner's drafts with their sync states, newest first.
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.CurrentSnapshot().Drafts)
}

// Get handles GET /drafts/{id}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	entry, err := sess.GetDraft(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// Save handles PUT /drafts
// Creates a draft when id is empty, overwrites it otherwise. Writes
// local first, then mirrors to the remote store for signed-in owners.
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	entry, err := sess.SaveDraft(r.Context(), req.draft())
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// Load handles POST /drafts/{id}/load
// Binds the draft to the session's compose buffer and marks the buffer
// clean until the next edit.
func (h *DraftHandler) Load(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	entry, err := sess.LoadDraft(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /drafts/{id}
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	if err := sess.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetCompose handles PUT /compose
// Mirrors the client's compose form into the session so sign-out can
// auto-save it as a draft.
func (h *DraftHandler) SetCompose(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess.SetCompose(req.draft())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
