package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/store/memory"
)

func newMirrored(t *testing.T) (*Reconciler, *localstore.MemoryStore, *memory.Store) {
	t.Helper()
	local := localstore.NewMemory()
	remote := memory.New()
	r := NewReconciler(local, remote, "u1", true)
	return r, local, remote
}

func draft(id, content string) model.Draft {
	return model.Draft{ID: id, Content: content}
}

// ============================================================
// Save
// ============================================================

func TestSave_WritesLocalAndRemote(t *testing.T) {
	// ARRANGE
	r, local, remote := newMirrored(t)
	ctx := context.Background()

	// ACT
	entry, err := r.Save(ctx, draft("", "an unfinished thought"))

	// ASSERT
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entry.Draft.ID == "" {
		t.Fatal("Save did not allocate an id")
	}
	if entry.State != StateSynced {
		t.Fatalf("State = %s, want synced", entry.State)
	}

	if raw, found, _ := local.Get(ctx, localstore.DraftsKey("u1")); !found || raw == "" {
		t.Fatal("local draft list missing")
	}
	if _, found, _ := remote.Get(ctx, store.DraftPath("u1", entry.Draft.ID)); !found {
		t.Fatal("remote draft missing")
	}
}

func TestSave_EmptyDraftRejected(t *testing.T) {
	r, _, _ := newMirrored(t)

	_, err := r.Save(context.Background(), model.Draft{})
	if !errors.Is(err, model.ErrNothingToSave) {
		t.Fatalf("err = %v, want ErrNothingToSave", err)
	}
	if entries := r.List(); len(entries) != 0 {
		t.Fatalf("empty draft was stored: %+v", entries)
	}
}

func TestSave_RemoteFailureKeepsLocalCopy(t *testing.T) {
	// ARRANGE: remote draft writes fail
	r, local, remote := newMirrored(t)
	ctx := context.Background()
	remote.FailWrites(store.DraftsCollection("u1"), errors.New("offline"))

	// ACT
	entry, err := r.Save(ctx, draft("", "do not lose this"))

	// ASSERT: the save itself succeeds, flagged syncFailed
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entry.State != StateSyncFailed {
		t.Fatalf("State = %s, want syncFailed", entry.State)
	}
	if raw, found, _ := local.Get(ctx, localstore.DraftsKey("u1")); !found || raw == "" {
		t.Fatal("local copy missing after remote failure")
	}

	// ACT: remote recovers, the next save retries
	remote.FailWrites(store.DraftsCollection("u1"), nil)
	entry.Draft.Content = "revised"
	saved, err := r.Save(ctx, entry.Draft)
	if err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if saved.State != StateSynced {
		t.Fatalf("State after retry = %s, want synced", saved.State)
	}
}

// gatedRemote holds every Set open until released, so a test can observe
// the reconciler while a remote write is in flight.
type gatedRemote struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRemote) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Store.Set(ctx, path, fields, merge)
}

func TestSave_NewerContentDuringFlightStaysLocal(t *testing.T) {
	// ARRANGE: the first remote write is held in flight
	local := localstore.NewMemory()
	remote := &gatedRemote{
		Store:   memory.New(),
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	r := NewReconciler(local, remote, "u1", true)
	ctx := context.Background()

	firstDone := make(chan Entry, 1)
	go func() {
		entry, err := r.Save(ctx, draft("d1", "first version"))
		if err != nil {
			t.Errorf("first Save: %v", err)
		}
		firstDone <- entry
	}()
	<-remote.entered

	// ACT: a newer save lands while the first write is flying
	second, err := r.Save(ctx, draft("d1", "second version"))
	if err != nil {
		t.Fatalf("Save during flight: %v", err)
	}

	// ASSERT: the newer content is kept locally without a second write
	if second.State != StateLocalOnly {
		t.Fatalf("State during flight = %s, want localOnly", second.State)
	}

	close(remote.release)
	<-firstDone

	// The flight wrote only the first version; the entry now holds the
	// second version and must not claim it is synced.
	got, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Draft.Content != "second version" {
		t.Fatalf("content = %q, want the newer save", got.Draft.Content)
	}
	if got.State != StateLocalOnly {
		t.Fatalf("State after flight = %s, want localOnly (remote holds older content)", got.State)
	}
	doc, found, _ := remote.Store.Get(ctx, store.DraftPath("u1", "d1"))
	if !found || doc.Fields["content"] != "first version" {
		t.Fatalf("remote doc = %+v, want the first version only", doc.Fields)
	}

	// A follow-up save mirrors the newest content.
	synced, err := r.Save(ctx, got.Draft)
	if err != nil {
		t.Fatalf("follow-up Save: %v", err)
	}
	if synced.State != StateSynced {
		t.Fatalf("State after follow-up = %s, want synced", synced.State)
	}
}

func TestSave_FlightForOneDraftGatesAnother(t *testing.T) {
	// ARRANGE: d1's write is in flight
	local := localstore.NewMemory()
	remote := &gatedRemote{
		Store:   memory.New(),
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	r := NewReconciler(local, remote, "u1", true)
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		if _, err := r.Save(ctx, draft("d1", "flying")); err != nil {
			t.Errorf("first Save: %v", err)
		}
	}()
	<-remote.entered

	// ACT: saving a different draft while d1 flies
	other, err := r.Save(ctx, draft("d2", "waiting its turn"))

	// ASSERT: one flight at a time across the reconciler, so d2 stays
	// local rather than opening a concurrent write
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if other.State != StateLocalOnly {
		t.Fatalf("State = %s, want localOnly while another draft flies", other.State)
	}
	if _, found, _ := remote.Store.Get(ctx, store.DraftPath("u1", "d2")); found {
		t.Fatal("second draft reached the remote during the first flight")
	}

	close(remote.release)
	<-firstDone

	if got, err := r.Get("d1"); err != nil || got.State != StateSynced {
		t.Fatalf("d1 after flight = (%+v, %v), want synced", got, err)
	}
}

func TestSave_GuestStaysLocalOnly(t *testing.T) {
	local := localstore.NewMemory()
	remote := memory.New()
	r := NewReconciler(local, remote, "guest-abc", false)
	ctx := context.Background()

	entry, err := r.Save(ctx, draft("", "guest scribble"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entry.State != StateLocalOnly {
		t.Fatalf("State = %s, want localOnly", entry.State)
	}
	if docs, _ := remote.List(ctx, store.DraftsCollection("guest-abc"), store.Query{}); len(docs) != 0 {
		t.Fatalf("guest draft reached the remote store: %+v", docs)
	}
}

// ============================================================
// Load and merge
// ============================================================

func TestLoad_RemoteWinsOnCollision(t *testing.T) {
	// ARRANGE: the same draft id exists locally and remotely with
	// different content
	r, local, remote := newMirrored(t)
	ctx := context.Background()
	localList := `[{"id":"d1","content":"stale local text","updated_at":"2026-01-01T00:00:00Z"}]`
	if err := local.Set(ctx, localstore.DraftsKey("u1"), localList); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	err := remote.Set(ctx, store.DraftPath("u1", "d1"), map[string]any{
		"content":   "fresh remote text",
		"updatedAt": time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}, false)
	if err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	// ACT
	entries, err := r.Load(ctx)

	// ASSERT
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want exactly one", entries)
	}
	if entries[0].Draft.Content != "fresh remote text" {
		t.Fatalf("content = %q, remote copy should win", entries[0].Draft.Content)
	}
	if entries[0].State != StateSynced {
		t.Fatalf("State = %s, want synced", entries[0].State)
	}
}

func TestLoad_UnionOfDisjointSets(t *testing.T) {
	r, local, remote := newMirrored(t)
	ctx := context.Background()
	if err := local.Set(ctx, localstore.DraftsKey("u1"), `[{"id":"local-1","content":"only here"}]`); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	if err := remote.Set(ctx, store.DraftPath("u1", "remote-1"), map[string]any{"content": "only there"}, false); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	entries, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want union of both sets", entries)
	}

	states := make(map[string]SyncState)
	for _, entry := range entries {
		states[entry.Draft.ID] = entry.State
	}
	if states["local-1"] != StateLocalOnly {
		t.Errorf("local-1 state = %s, want localOnly", states["local-1"])
	}
	if states["remote-1"] != StateSynced {
		t.Errorf("remote-1 state = %s, want synced", states["remote-1"])
	}
}

func TestLoad_CorruptLocalListStartsFresh(t *testing.T) {
	r, local, _ := newMirrored(t)
	ctx := context.Background()
	if err := local.Set(ctx, localstore.DraftsKey("u1"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	entries, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v, want none", entries)
	}
}

func TestLoad_RemoteFailureServesLocal(t *testing.T) {
	r, local, remote := newMirrored(t)
	ctx := context.Background()
	if err := local.Set(ctx, localstore.DraftsKey("u1"), `[{"id":"d1","content":"kept"}]`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	remote.FailWatch(store.DraftsCollection("u1"), errors.New("offline"))

	entries, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Draft.Content != "kept" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].State != StateSyncFailed {
		t.Fatalf("State = %s, want syncFailed", entries[0].State)
	}
}

// ============================================================
// Delete
// ============================================================

func TestDelete_LocalFirstThenRemote(t *testing.T) {
	r, local, remote := newMirrored(t)
	ctx := context.Background()
	entry, err := r.Save(ctx, draft("", "short lived"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := r.Delete(ctx, entry.Draft.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := r.Get(entry.Draft.ID); !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrDraftNotFound", err)
	}
	raw, _, _ := local.Get(ctx, localstore.DraftsKey("u1"))
	if raw != "[]" {
		t.Fatalf("local list after delete = %q, want empty", raw)
	}
	if _, found, _ := remote.Get(ctx, store.DraftPath("u1", entry.Draft.ID)); found {
		t.Fatal("remote draft survived delete")
	}
}

func TestDelete_RemoteFailureStillRemovesLocally(t *testing.T) {
	r, _, remote := newMirrored(t)
	ctx := context.Background()
	entry, err := r.Save(ctx, draft("", "stubborn"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	remote.FailWrites(store.DraftsCollection("u1"), errors.New("offline"))
	if err := r.Delete(ctx, entry.Draft.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(entry.Draft.ID); !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("draft still present after delete: %v", err)
	}
}

func TestDelete_Missing(t *testing.T) {
	r, _, _ := newMirrored(t)
	if err := r.Delete(context.Background(), "ghost"); !errors.Is(err, model.ErrDraftNotFound) {
		t.Fatalf("err = %v, want ErrDraftNotFound", err)
	}
}

// ============================================================
// AutoSave
// ============================================================

func TestAutoSave_CompletesWithoutCallerContext(t *testing.T) {
	r, _, _ := newMirrored(t)

	entry, err := r.AutoSave(draft("", "saved on the way out"))
	if err != nil {
		t.Fatalf("AutoSave: %v", err)
	}
	if entry.State != StateSynced {
		t.Fatalf("State = %s, want synced", entry.State)
	}
}
