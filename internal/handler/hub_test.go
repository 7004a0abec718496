package handler

import (
	"testing"
	"time"

	authmemory "github.com/DonyChristie/crux/internal/auth/memory"
	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/session"
	storememory "github.com/DonyChristie/crux/internal/store/memory"
)

func newHub(t *testing.T) *Hub {
	t.Helper()
	docStore := storememory.New()
	hub := NewHub(session.Deps{
		Store:   docStore,
		Auth:    authmemory.NewProvider(),
		Local:   localstore.NewMemory(),
		Ratings: ratings.NewEngine(docStore),
	}, nil)
	t.Cleanup(hub.Shutdown)
	return hub
}

func TestHub_CreateGetDestroy(t *testing.T) {
	hub := newHub(t)

	id, sess, err := hub.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess == nil || id == "" {
		t.Fatal("Create returned empty session or id")
	}

	got, ok := hub.Get(id)
	if !ok || got != sess {
		t.Fatalf("Get(%q) = (%v, %v)", id, got, ok)
	}
	if _, ok := hub.Get("no-such-id"); ok {
		t.Error("Get of unknown id succeeded")
	}

	if !hub.Destroy(id) {
		t.Error("Destroy of live session returned false")
	}
	if _, ok := hub.Get(id); ok {
		t.Error("session still reachable after Destroy")
	}
	if hub.Destroy(id) {
		t.Error("second Destroy returned true")
	}
}

func TestHub_SweepIdle(t *testing.T) {
	hub := newHub(t)

	idleID, _, err := hub.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	activeID, _, err := hub.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Backdate one session past the idle cutoff.
	hub.mu.Lock()
	hub.sessions[idleID].lastSeen = time.Now().Add(-time.Hour)
	hub.mu.Unlock()

	if n := hub.SweepIdle(30 * time.Minute); n != 1 {
		t.Fatalf("SweepIdle = %d, want 1", n)
	}
	if _, ok := hub.Get(idleID); ok {
		t.Error("idle session survived the sweep")
	}
	if _, ok := hub.Get(activeID); !ok {
		t.Error("active session was reaped")
	}
}

func TestHub_GetRefreshesIdleClock(t *testing.T) {
	hub := newHub(t)

	id, _, err := hub.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	hub.mu.Lock()
	hub.sessions[id].lastSeen = time.Now().Add(-time.Hour)
	hub.mu.Unlock()

	// A request-path lookup counts as activity.
	if _, ok := hub.Get(id); !ok {
		t.Fatal("Get failed")
	}
	if n := hub.SweepIdle(30 * time.Minute); n != 0 {
		t.Errorf("SweepIdle = %d after touch, want 0", n)
	}
}
