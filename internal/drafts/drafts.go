// Package drafts keeps unpublished compose state alive across sessions.
// Every draft is written through to the device-local store first, then
// mirrored to the remote drafts collection for signed-in users. The local
// copy is the safety net: a remote failure marks the draft syncFailed but
// never loses it.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// SyncState describes where a draft currently lives.
type SyncState string

const (
	// StateLocalOnly means the draft exists only on this device, either
	// because the owner is a guest or the remote copy has not been
	// written yet.
	StateLocalOnly SyncState = "localOnly"

	// StateSyncing means a remote write is in flight.
	StateSyncing SyncState = "syncing"

	// StateSynced means local and remote agree as of the last save.
	StateSynced SyncState = "synced"

	// StateSyncFailed means the last remote write failed; the local copy
	// is intact and a later save retries.
	StateSyncFailed SyncState = "syncFailed"
)

// Entry is a draft with its sync state.
type Entry struct {
	Draft model.Draft `json:"draft"`
	State SyncState   `json:"state"`
}

// autoSaveTimeout bounds a background save so navigation and sign-out
// never block on a slow remote.
const autoSaveTimeout = 3 * time.Second

// Reconciler manages one owner's drafts. The owner is either a signed-in
// identity (remote mirroring on) or the device's guest id (local only).
type Reconciler struct {
	local   localstore.Store
	remote  store.Store
	ownerID string
	mirror  bool
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry

	// saving is the single-flight guard for remote writes. It covers the
	// whole reconciler: at most one remote save runs at a time, whichever
	// draft it is for.
	saving bool
}

// NewReconciler creates a reconciler for the owner. mirror enables the
// remote drafts collection; guests run local only.
func NewReconciler(local localstore.Store, remote store.Store, ownerID string, mirror bool) *Reconciler {
	return &Reconciler{
		local:   local,
		remote:  remote,
		ownerID: ownerID,
		mirror:  mirror,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
}

// Load merges the local and remote draft sets. On id collision the remote
// copy wins, since it is the one shared across devices. The merged set is
// written back to the local store so both sides agree afterwards.
func (r *Reconciler) Load(ctx context.Context) ([]Entry, error) {
	local := r.loadLocal(ctx)

	merged := make(map[string]*Entry, len(local))
	for _, d := range local {
		merged[d.ID] = &Entry{Draft: d, State: StateLocalOnly}
	}

	if r.mirror {
		docs, err := r.remote.List(ctx, store.DraftsCollection(r.ownerID), store.Query{})
		if err != nil {
			log.Printf("[Drafts] Remote load failed, serving local drafts only: %v", err)
			for _, entry := range merged {
				entry.State = StateSyncFailed
			}
		} else {
			for _, doc := range docs {
				merged[doc.ID] = &Entry{Draft: decodeDraft(doc), State: StateSynced}
			}
		}
	}

	r.mu.Lock()
	r.entries = merged
	entries := r.listLocked()
	r.mu.Unlock()

	if err := r.flushLocal(ctx); err != nil {
		log.Printf("[Drafts] Local write-back after load failed: %v", err)
	}
	return entries, nil
}

// List returns the current entries, most recently updated first.
func (r *Reconciler) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

func (r *Reconciler) listLocked() []Entry {
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, *entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Draft.UpdatedAt.After(entries[j].Draft.UpdatedAt)
	})
	return entries
}

// Save persists the draft: local first, then remote when mirroring. An
// empty draft is rejected rather than silently stored. While a remote
// write is in flight, further saves keep the local copy and stay
// localOnly; they are mirrored by the next save once the flight lands.
func (r *Reconciler) Save(ctx context.Context, draft model.Draft) (Entry, error) {
	if draft.IsEmpty() {
		return Entry{}, model.ErrNothingToSave
	}

	now := r.now()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
		draft.CreatedAt = now
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	r.mu.Lock()
	entry := &Entry{Draft: draft, State: StateLocalOnly}
	r.entries[draft.ID] = entry
	inFlight := r.saving
	if r.mirror && !inFlight {
		r.saving = true
		entry.State = StateSyncing
	}
	result := *entry
	r.mu.Unlock()

	if err := r.flushLocal(ctx); err != nil {
		return result, fmt.Errorf("failed to save draft locally: %w", err)
	}

	if !r.mirror || inFlight {
		return result, nil
	}

	err := r.remote.Set(ctx, store.DraftPath(r.ownerID, draft.ID), encodeDraft(draft), false)

	r.mu.Lock()
	r.saving = false
	if current, ok := r.entries[draft.ID]; ok {
		if current == entry {
			// The entry is still the copy this flight wrote, so the
			// remote now matches it.
			if err != nil {
				current.State = StateSyncFailed
			} else {
				current.State = StateSynced
			}
		}
		// A newer save replaced the entry mid-flight: that content was
		// never mirrored, so it keeps its localOnly state until its own
		// save runs.
		result = *current
	}
	r.mu.Unlock()

	if err != nil {
		log.Printf("[Drafts] Remote save of %s failed, draft kept locally: %v", draft.ID, err)
	}
	return result, nil
}

// AutoSave runs Save detached from the caller's lifecycle with a short
// timeout, for the save-on-navigate and save-on-sign-out paths.
func (r *Reconciler) AutoSave(draft model.Draft) (Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), autoSaveTimeout)
	defer cancel()
	return r.Save(ctx, draft)
}

// Delete removes the draft locally first, then best-effort remotely. A
// failed remote delete is logged and retried implicitly the next time the
// remote set is reconciled.
func (r *Reconciler) Delete(ctx context.Context, draftID string) error {
	r.mu.Lock()
	_, found := r.entries[draftID]
	delete(r.entries, draftID)
	r.mu.Unlock()

	if !found {
		return model.ErrDraftNotFound
	}

	if err := r.flushLocal(ctx); err != nil {
		return fmt.Errorf("failed to delete draft locally: %w", err)
	}

	if r.mirror {
		if err := r.remote.Delete(ctx, store.DraftPath(r.ownerID, draftID)); err != nil {
			log.Printf("[Drafts] Remote delete of %s failed: %v", draftID, err)
		}
	}
	return nil
}

// Get returns one draft.
func (r *Reconciler) Get(draftID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, found := r.entries[draftID]
	if !found {
		return Entry{}, model.ErrDraftNotFound
	}
	return *entry, nil
}

func (r *Reconciler) loadLocal(ctx context.Context) []model.Draft {
	raw, found, err := r.local.Get(ctx, localstore.DraftsKey(r.ownerID))
	if err != nil {
		log.Printf("[Drafts] Local load failed: %v", err)
		return nil
	}
	if !found || raw == "" {
		return nil
	}
	var drafts []model.Draft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		log.Printf("[Drafts] Local draft list unreadable, starting fresh: %v", err)
		return nil
	}
	return drafts
}

func (r *Reconciler) flushLocal(ctx context.Context) error {
	r.mu.Lock()
	drafts := make([]model.Draft, 0, len(r.entries))
	for _, entry := range r.entries {
		drafts = append(drafts, entry.Draft)
	}
	r.mu.Unlock()

	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	raw, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}
	return r.local.Set(ctx, localstore.DraftsKey(r.ownerID), string(raw))
}

func encodeDraft(d model.Draft) map[string]any {
	return map[string]any{
		"title":     d.Title,
		"content":   d.Content,
		"tags":      d.Tags,
		"createdAt": d.CreatedAt,
		"updatedAt": d.UpdatedAt,
	}
}

func decodeDraft(doc store.Document) model.Draft {
	d := model.Draft{ID: doc.ID}
	if title, ok := doc.Fields["title"].(string); ok {
		d.Title = title
	}
	if content, ok := doc.Fields["content"].(string); ok {
		d.Content = content
	}
	switch tags := doc.Fields["tags"].(type) {
	case []string:
		d.Tags = tags
	case []any:
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				d.Tags = append(d.Tags, s)
			}
		}
	}
	if at, ok := timeutil.Coerce(doc.Fields["createdAt"]); ok {
		d.CreatedAt = at
	}
	if at, ok := timeutil.Coerce(doc.Fields["updatedAt"]); ok {
		d.UpdatedAt = at
	}
	return d
}
