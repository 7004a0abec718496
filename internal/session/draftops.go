package session

import (
	"context"

	"github.com/DonyChristie/crux/internal/drafts"
	"github.com/DonyChristie/crux/internal/model"
)

// SaveDraft persists a draft for the current owner (identity or guest)
// and refreshes the snapshot's draft list. Saving the compose buffer's
// draft marks the buffer clean and keeps it bound to the saved id.
func (s *Session) SaveDraft(ctx context.Context, draft model.Draft) (drafts.Entry, error) {
	var entry drafts.Entry
	err := s.call(func() error {
		fromCompose := draft.ID == s.composeDraft.ID
		saved, err := s.reconciler.Save(ctx, draft)
		if err != nil {
			return err
		}
		entry = saved
		if fromCompose {
			s.composeDraft = saved.Draft
			s.composeDirty = false
		}
		s.draftList = s.reconciler.List()
		s.emit()
		return nil
	})
	return entry, err
}

// LoadDraft binds a saved draft to the compose form. The freshly loaded
// buffer is clean; the next edit marks it dirty again.
func (s *Session) LoadDraft(draftID string) (drafts.Entry, error) {
	var entry drafts.Entry
	err := s.call(func() error {
		found, err := s.reconciler.Get(draftID)
		if err != nil {
			return err
		}
		entry = found
		s.composeDraft = found.Draft
		s.composeDirty = false
		s.emit()
		return nil
	})
	return entry, err
}

// DeleteDraft discards a draft.
func (s *Session) DeleteDraft(ctx context.Context, draftID string) error {
	return s.call(func() error {
		if err := s.reconciler.Delete(ctx, draftID); err != nil {
			return err
		}
		s.draftList = s.reconciler.List()
		s.emit()
		return nil
	})
}

// GetDraft returns one draft with its sync state.
func (s *Session) GetDraft(draftID string) (drafts.Entry, error) {
	var entry drafts.Entry
	err := s.call(func() error {
		found, err := s.reconciler.Get(draftID)
		if err != nil {
			return err
		}
		entry = found
		return nil
	})
	return entry, err
}
