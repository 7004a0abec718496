package session

import (
	"context"
	"fmt"
	"log"

	"github.com/DonyChristie/crux/internal/feed"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/store"
)

// profileViewState tracks an open author page: the profile document plus
// a live feed of that author's posts.
type profileViewState struct {
	userID  string
	profile model.Profile
	posts   []feed.Item
	watcher *feed.Watcher
}

func (pv *profileViewState) view() *ProfileView {
	return &ProfileView{
		Profile: pv.profile,
		Posts:   append([]feed.Item(nil), pv.posts...),
	}
}

// OpenProfile loads an author page. The profile document may be missing
// for accounts that never signed in after profile mirroring shipped; the
// page still opens with the posts feed.
func (s *Session) OpenProfile(ctx context.Context, userID string) error {
	return s.call(func() error {
		s.closeProfileView()
		if err := s.buildProfileView(ctx, userID); err != nil {
			return err
		}
		s.emit()
		return nil
	})
}

// CloseProfile tears down the open author page.
func (s *Session) CloseProfile() {
	s.do(func() {
		s.closeProfileView()
		s.emit()
	})
}

// openProfileView reopens by id after a viewer change. Dispatch-loop only.
func (s *Session) openProfileView(userID string) {
	if err := s.buildProfileView(s.ctx, userID); err != nil {
		log.Printf("[Session] Profile %s no longer readable: %v", userID, err)
	}
}

// buildProfileView reads the profile document and opens the author's post
// feed. Dispatch-loop only.
func (s *Session) buildProfileView(ctx context.Context, userID string) error {
	doc, ok, err := s.deps.Store.Get(ctx, store.UserPath(userID))
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	pv := &profileViewState{userID: userID, profile: model.Profile{ID: userID}}
	if ok {
		pv.profile = DecodeProfile(doc)
	}
	s.profileView = pv

	pv.watcher = feed.Watch(s.ctx, s.deps.Store, s.deps.Ratings, feed.Options{
		ViewerID: s.viewerID(),
		AuthorID: userID,
		OnChange: func(items []feed.Item) {
			s.do(func() {
				if s.profileView != pv {
					return
				}
				pv.posts = items
				s.emit()
			})
		},
		OnError: func(err error) {
			// Fail open with whatever posts loaded so far.
			log.Printf("[Session] Profile feed for %s failed: %v", userID, err)
		},
	})
	return nil
}

func (s *Session) closeProfileView() {
	if s.profileView == nil {
		return
	}
	if s.profileView.watcher != nil {
		s.profileView.watcher.Dispose()
	}
	s.profileView = nil
}
