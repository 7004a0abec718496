package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/DonyChristie/crux/internal/auth"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// SignIn authenticates with email and password. On failure the sanitized
// provider message lands in the snapshot's AuthError.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	return s.call(func() error {
		identity, err := s.deps.Auth.SignIn(ctx, email, password)
		return s.finishAuth(ctx, identity, err)
	})
}

// SignUp registers a new account and signs it in.
func (s *Session) SignUp(ctx context.Context, email, password string) error {
	return s.call(func() error {
		identity, err := s.deps.Auth.SignUp(ctx, email, password)
		return s.finishAuth(ctx, identity, err)
	})
}

// SignInWithGoogle exchanges a Google ID token for a session identity.
func (s *Session) SignInWithGoogle(ctx context.Context, idToken string) error {
	return s.call(func() error {
		identity, err := s.deps.Auth.SignInFederated(ctx, idToken)
		return s.finishAuth(ctx, identity, err)
	})
}

// finishAuth applies the provider result: on success it mirrors the
// profile, reconciles the posting gate, reloads drafts under the identity
// and reopens viewer-dependent subscriptions. Dispatch-loop only.
func (s *Session) finishAuth(ctx context.Context, identity model.Identity, err error) error {
	if err != nil {
		s.authError = auth.SanitizeError(err)
		s.emit()
		return fmt.Errorf("%w: %s", model.ErrInvalidCredentials, s.authError)
	}

	s.viewer = &identity
	s.authError = ""

	lastPostAt, mirrorErr := s.mirrorProfile(ctx, identity)
	if mirrorErr != nil {
		// The session still works without the profile write; the gate
		// just starts open.
		log.Printf("[Session] Profile mirror for %s failed: %v", identity.ID, mirrorErr)
	}
	s.gate.SetLastPost(lastPostAt)
	s.startCooldownTicker()

	s.resetDrafts()
	s.openFeed()
	s.reopenViews()
	s.emit()

	log.Printf("[Session] Signed in as %s", identity.DisplayLabel())
	return nil
}

// SignOut autosaves the compose buffer, clears the identity and returns
// the session to guest state.
func (s *Session) SignOut(ctx context.Context) error {
	return s.call(func() error {
		if s.viewer == nil {
			return nil
		}

		s.autosaveCompose()

		label := s.viewer.DisplayLabel()
		s.viewer = nil
		s.gate.SetLastPost(nil)
		s.stopCooldownTicker()

		s.resetDrafts()
		s.openFeed()
		s.reopenViews()
		s.emit()

		log.Printf("[Session] %s signed out", label)
		return nil
	})
}

// SetCompose tracks the in-progress compose form so sign-out and shutdown
// can autosave it. An edit marks the buffer dirty; a form that does not
// carry a draft id stays bound to the one already loaded or saved.
func (s *Session) SetCompose(draft model.Draft) {
	s.do(func() {
		if draft.ID == "" {
			draft.ID = s.composeDraft.ID
		}
		s.composeDraft = draft
		s.composeDirty = true
	})
}

// autosaveCompose flushes a dirty compose buffer to the draft store. It
// runs on navigation away (sign-out, teardown) and never blocks those
// transitions on a failed save. Dispatch-loop only.
func (s *Session) autosaveCompose() {
	if !s.composeDirty || s.composeDraft.IsEmpty() {
		return
	}
	entry, err := s.reconciler.AutoSave(s.composeDraft)
	if err != nil {
		log.Printf("[Session] Compose autosave failed: %v", err)
		return
	}
	// Keep the allocated id so the buffer stays bound to one draft
	// across repeated autosaves.
	s.composeDraft.ID = entry.Draft.ID
	s.composeDirty = false
	s.draftList = s.reconciler.List()
}

// reopenViews rebuilds the open post and profile views so self ratings
// reflect the current viewer. Dispatch-loop only.
func (s *Session) reopenViews() {
	if s.postView != nil {
		postID := s.postView.postID
		s.closePostView()
		s.openPostView(postID)
	}
	if s.profileView != nil {
		userID := s.profileView.userID
		s.closeProfileView()
		s.openProfileView(userID)
	}
}

// mirrorProfile upserts the users document for the identity and returns
// the persisted last-post time for gate reconciliation.
func (s *Session) mirrorProfile(ctx context.Context, identity model.Identity) (*time.Time, error) {
	path := store.UserPath(identity.ID)

	doc, exists, err := s.deps.Store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	fields := map[string]any{
		"displayName": identity.DisplayLabel(),
		"email":       identity.Email,
		"lastSeenAt":  store.ServerTimestamp,
	}
	if !exists {
		fields["createdAt"] = store.ServerTimestamp
	}
	if err := s.deps.Store.Set(ctx, path, fields, true); err != nil {
		return nil, fmt.Errorf("failed to write profile: %w", err)
	}

	if at, ok := timeutil.Coerce(doc.Fields["lastPostAt"]); ok {
		return &at, nil
	}
	return nil, nil
}

// DecodeProfile maps a users document onto the model.
func DecodeProfile(doc store.Document) model.Profile {
	p := model.Profile{ID: doc.ID}
	if name, ok := doc.Fields["displayName"].(string); ok {
		p.DisplayName = name
	}
	if at, ok := timeutil.Coerce(doc.Fields["createdAt"]); ok {
		p.CreatedAt = at
	}
	if at, ok := timeutil.Coerce(doc.Fields["lastSeenAt"]); ok {
		p.LastSeenAt = at
	}
	if at, ok := timeutil.Coerce(doc.Fields["lastPostAt"]); ok {
		p.LastPostAt = &at
	}
	return p
}
