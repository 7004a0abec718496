// Package gate enforces the one-post-per-day rule. The gate is advisory
// on the client side: it closes optimistically the moment a publish is
// attempted and reopens if the write fails, so double-submits lose the
// race locally instead of at the store.
package gate

import (
	"errors"
	"sync"
	"time"
)

// Cooldown is how long publishing stays closed after a post.
const Cooldown = 24 * time.Hour

// ErrCooldownActive rejects a publish attempted while the gate is closed.
var ErrCooldownActive = errors.New("you can only post once every 24 hours")

// Gate tracks the viewer's last post time.
type Gate struct {
	mu       sync.Mutex
	lastPost *time.Time
	pending  bool
	now      func() time.Time
}

func New() *Gate {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Gate {
	return &Gate{now: now}
}

// SetLastPost reconciles the gate against the persisted profile, typically
// at session start or sign-in. Pass nil for an account that never posted.
func (g *Gate) SetLastPost(t *time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t == nil {
		g.lastPost = nil
		return
	}
	at := *t
	g.lastPost = &at
}

// Remaining is the time left until the gate opens, zero when open.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

func (g *Gate) remainingLocked() time.Duration {
	if g.lastPost == nil {
		return 0
	}
	remaining := Cooldown - g.now().Sub(*g.lastPost)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Acquire closes the gate for an imminent publish. On success it returns
// commit, to be called with the server-assigned post time once the write
// lands, and rollback, to be called if the write fails. Exactly one of
// the two must be called. Acquire fails while the cooldown is active or
// another publish is in flight.
func (g *Gate) Acquire() (commit func(postedAt time.Time), rollback func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending || g.remainingLocked() > 0 {
		return nil, nil, ErrCooldownActive
	}
	g.pending = true

	var once sync.Once
	commit = func(postedAt time.Time) {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.pending = false
			g.lastPost = &postedAt
		})
	}
	rollback = func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.pending = false
		})
	}
	return commit, rollback, nil
}
