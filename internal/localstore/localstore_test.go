package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// ============================================================
// FileStore
// ============================================================

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx := context.Background()

	if _, found, _ := s.Get(ctx, ThemeKey); found {
		t.Fatal("fresh store should be empty")
	}

	if err := s.Set(ctx, ThemeKey, "starry"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := s.Get(ctx, ThemeKey)
	if err != nil || !found || value != "starry" {
		t.Fatalf("Get = (%q, %v, %v), want (starry, true, nil)", value, found, err)
	}

	if err := s.Delete(ctx, ThemeKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, ThemeKey); found {
		t.Fatal("key survived Delete")
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	ctx := context.Background()

	first, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := first.Set(ctx, DraftsKey("u1"), `[{"id":"d1"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, found, _ := second.Get(ctx, DraftsKey("u1"))
	if !found || value != `[{"id":"d1"}]` {
		t.Fatalf("reopened value = (%q, %v)", value, found)
	}
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, err := OpenFile(path); err == nil {
		t.Fatal("OpenFile accepted a corrupt store")
	}
}

// ============================================================
// Keys
// ============================================================

func TestDraftsKey(t *testing.T) {
	if got := DraftsKey("uid-1"); got != "drafts-uid-1" {
		t.Errorf("DraftsKey(uid-1) = %q", got)
	}
	if got := DraftsKey("guest-abc"); got != "drafts-guest-abc" {
		t.Errorf("DraftsKey(guest-abc) = %q", got)
	}
}

// ============================================================
// RedisStore (integration)
// ============================================================

// TestRedisStore_RoundTrip exercises the Redis backend against a local
// instance. Skipped when Redis is not reachable.
func TestRedisStore_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	s := NewRedis(client)
	if err := s.Ping(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	key := "test-roundtrip-" + t.Name()
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	if err := s.Set(ctx, key, "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := s.Get(ctx, key)
	if err != nil || !found || value != "value" {
		t.Fatalf("Get = (%q, %v, %v)", value, found, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, key); found {
		t.Fatal("key survived Delete")
	}
}
