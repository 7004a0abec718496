package handler

import (
	"encoding/json"
	"net/http"

	"github.com/DonyChristie/crux/internal/httputil"
	"github.com/DonyChristie/crux/internal/session"
	"github.com/DonyChristie/crux/internal/sortpolicy"
	"github.com/DonyChristie/crux/internal/tags"
)

// FeedHandler covers the live feed, the tag directory and presentation
// preferences. The feed itself streams through snapshots; these
// endpoints steer how it is filtered and ordered.
type FeedHandler struct {
	hub *Hub
}

// NewFeedHandler wires dependencies for feed endpoints.
func NewFeedHandler(hub *Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Get handles GET /feed
// Returns the filtered, sorted feed plus the tag directory from the
// current snapshot.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	snap := sess.CurrentSnapshot()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"feed":          snap.Feed,
		"feed_fallback": snap.FeedFallback,
		"sort_mode":     snap.SortMode,
		"selected_tags": snap.SelectedTags,
		"tag_stats":     snap.TagStats,
	})
}

type sortModeRequest struct {
	Mode string `json:"mode"`
}

type selectTagsRequest struct {
	Tags []string `json:"tags"`
}

type tagQueryRequest struct {
	Query string `json:"query"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// SetSort handles PUT /feed/sort
// Switches the feed and thread ordering. Unknown modes fall back to
// recency.
func (h *FeedHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req sortModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess.SetSortMode(sortpolicy.ParseMode(req.Mode))
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetTags handles PUT /feed/tags
// Replaces the conjunctive tag filter. An empty list clears it.
func (h *FeedHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req selectTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess.SelectTags(req.Tags)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetTagSort handles PUT /tags/sort
// Orders the tag directory by post count, average rating or name.
func (h *FeedHandler) SetTagSort(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req sortModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	mode := tags.SortMode(req.Mode)
	switch mode {
	case tags.ByPostCount, tags.ByAverage, tags.Alphabetical:
	default:
		mode = tags.ByPostCount
	}
	sess.SetTagSort(mode)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SearchTags handles PUT /tags/search
// Narrows the tag directory by substring. An empty query clears it.
func (h *FeedHandler) SearchTags(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req tagQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess.SearchTags(req.Query)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetTheme handles PUT /prefs/theme
// Switches the visual theme and persists it on the device store.
func (h *FeedHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := sess.SetTheme(session.Theme(req.Theme)); err != nil {
		httputil.WriteEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
