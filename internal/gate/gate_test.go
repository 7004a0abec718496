package gate

import (
	"errors"
	"testing"
	"time"
)

func TestGate_OpenByDefault(t *testing.T) {
	g := New()
	if remaining := g.Remaining(); remaining != 0 {
		t.Fatalf("Remaining = %v, want 0", remaining)
	}
}

func TestGate_ClosesAfterCommitAndReopensAfterCooldown(t *testing.T) {
	// ARRANGE: a controllable clock
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewWithClock(func() time.Time { return current })

	// ACT: publish
	commit, _, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	commit(current)

	// ASSERT: closed right after, with the full cooldown remaining
	if remaining := g.Remaining(); remaining != Cooldown {
		t.Fatalf("Remaining = %v, want %v", remaining, Cooldown)
	}
	if _, _, err := g.Acquire(); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("second Acquire err = %v, want ErrCooldownActive", err)
	}

	// ASSERT: one second short of the cooldown it is still closed
	current = current.Add(Cooldown - time.Second)
	if remaining := g.Remaining(); remaining != time.Second {
		t.Fatalf("Remaining = %v, want 1s", remaining)
	}

	// ASSERT: at the boundary it opens again
	current = current.Add(time.Second)
	if remaining := g.Remaining(); remaining != 0 {
		t.Fatalf("Remaining = %v, want 0", remaining)
	}
	if _, _, err := g.Acquire(); err != nil {
		t.Fatalf("Acquire after cooldown: %v", err)
	}
}

func TestGate_RollbackReopensImmediately(t *testing.T) {
	g := New()

	_, rollback, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	rollback()

	if _, _, err := g.Acquire(); err != nil {
		t.Fatalf("Acquire after rollback: %v", err)
	}
}

func TestGate_PendingBlocksConcurrentAcquire(t *testing.T) {
	g := New()

	commit, _, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// A second publish while the first write is in flight loses the race.
	if _, _, err := g.Acquire(); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("concurrent Acquire err = %v, want ErrCooldownActive", err)
	}

	commit(time.Now())
}

func TestGate_CommitAndRollbackAreOneShot(t *testing.T) {
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewWithClock(func() time.Time { return current })

	commit, rollback, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	commit(current)
	// A late rollback must not reopen a gate the commit closed.
	rollback()

	if _, _, err := g.Acquire(); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("Acquire err = %v, want ErrCooldownActive", err)
	}
}

func TestGate_SetLastPostReconciles(t *testing.T) {
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewWithClock(func() time.Time { return current })

	// A profile that posted two hours ago closes the gate for the rest
	// of the day.
	lastPost := current.Add(-2 * time.Hour)
	g.SetLastPost(&lastPost)
	if remaining := g.Remaining(); remaining != 22*time.Hour {
		t.Fatalf("Remaining = %v, want 22h", remaining)
	}

	// A profile that posted over a day ago leaves it open.
	stale := current.Add(-25 * time.Hour)
	g.SetLastPost(&stale)
	if remaining := g.Remaining(); remaining != 0 {
		t.Fatalf("Remaining = %v, want 0", remaining)
	}

	// Signing into an account that never posted clears it.
	g.SetLastPost(nil)
	if remaining := g.Remaining(); remaining != 0 {
		t.Fatalf("Remaining = %v, want 0", remaining)
	}
}
