package session

import (
	"context"
	"fmt"
	"log"

	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/sortpolicy"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/tags"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// CreatePost validates and publishes a post, stamping the author snapshot
// and closing the posting gate. tagsCSV is the raw comma-separated tag
// input from the compose form.
func (s *Session) CreatePost(ctx context.Context, title, content, tagsCSV string) (string, error) {
	var postID string
	err := s.call(func() error {
		if s.viewer == nil {
			return model.ErrSignInRequired
		}
		if err := model.ValidatePost(title, content); err != nil {
			return err
		}
		tagList := model.ParseTags(tagsCSV)

		commit, rollback, err := s.gate.Acquire()
		if err != nil {
			return err
		}

		id, err := s.deps.Store.Add(ctx, store.PostsCollection, map[string]any{
			"title":     title,
			"content":   content,
			"tags":      tagList,
			"authorId":  s.viewer.ID,
			"author":    s.viewer.DisplayLabel(),
			"createdAt": store.ServerTimestamp,
		})
		if err != nil {
			rollback()
			return fmt.Errorf("failed to publish post: %w", err)
		}
		postID = id

		// The gate runs on the store's clock, read back from the
		// document the store just stamped.
		postedAt := s.deps.Now()
		if doc, ok, err := s.deps.Store.Get(ctx, store.PostPath(id)); err == nil && ok {
			if at, coerced := timeutil.Coerce(doc.Fields["createdAt"]); coerced {
				postedAt = at
			}
		}
		commit(postedAt)
		s.startCooldownTicker()

		err = s.deps.Store.Set(ctx, store.UserPath(s.viewer.ID), map[string]any{
			"lastPostAt": store.ServerTimestamp,
		}, true)
		if err != nil {
			// The in-memory gate still holds; only cross-device
			// reconciliation degrades until the next successful write.
			log.Printf("[Session] lastPostAt write for %s failed: %v", s.viewer.ID, err)
		}

		s.composeDraft = model.Draft{}
		s.composeDirty = false
		s.emit()
		return nil
	})
	return postID, err
}

// DeletePost removes the viewer's own post. The post's comments and
// ratings become unreachable rather than being swept here.
func (s *Session) DeletePost(ctx context.Context, postID string) error {
	return s.call(func() error {
		if s.viewer == nil {
			return model.ErrSignInRequired
		}

		doc, ok, err := s.deps.Store.Get(ctx, store.PostPath(postID))
		if err != nil {
			return fmt.Errorf("failed to load post: %w", err)
		}
		if !ok {
			return model.ErrPostNotFound
		}
		if authorID, _ := doc.Fields["authorId"].(string); authorID != s.viewer.ID {
			return model.ErrNotOwner
		}

		if err := s.deps.Store.Delete(ctx, store.PostPath(postID)); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		if s.postView != nil && s.postView.postID == postID {
			s.closePostView()
			s.emit()
		}
		return nil
	})
}

// RatePost records the viewer's rating of a post.
func (s *Session) RatePost(ctx context.Context, postID string, value int) error {
	return s.call(func() error {
		return s.deps.Ratings.Rate(ctx, store.PostRatingsCollection(postID), s.viewerID(), value)
	})
}

// SelectTags replaces the feed's tag filter. Posts must carry every
// selected tag to remain visible.
func (s *Session) SelectTags(selected []string) {
	s.do(func() {
		s.selectedTags = append([]string(nil), selected...)
		s.emit()
	})
}

// SetSortMode switches the feed and thread ordering.
func (s *Session) SetSortMode(mode sortpolicy.Mode) {
	s.do(func() {
		s.sortMode = mode
		s.emit()
	})
}

// SetTagSort orders the tag directory.
func (s *Session) SetTagSort(mode tags.SortMode) {
	s.do(func() {
		s.tagSort = mode
		s.emit()
	})
}

// SearchTags narrows the tag directory.
func (s *Session) SearchTags(query string) {
	s.do(func() {
		s.tagQuery = query
		s.emit()
	})
}

// SetTheme switches the visual theme and persists it on the device.
func (s *Session) SetTheme(theme Theme) error {
	return s.call(func() error {
		if theme != ThemeClean && theme != ThemeStarry {
			theme = ThemeClean
		}
		s.theme = theme
		if err := s.deps.Local.Set(s.ctx, localstore.ThemeKey, string(theme)); err != nil {
			log.Printf("[Session] Theme persistence failed: %v", err)
		}
		s.emit()
		return nil
	})
}
