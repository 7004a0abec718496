// Package handler exposes the session engine over HTTP. Every endpoint
// except session creation operates on the caller's engine session, which
// the hub keeps alive between requests.
package handler

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonyChristie/crux/internal/events"
	"github.com/DonyChristie/crux/internal/httputil"
	"github.com/DonyChristie/crux/internal/session"
	"github.com/DonyChristie/crux/internal/transport/http/middleware"
)

// liveSession pairs a running session with its idle-tracking timestamp.
type liveSession struct {
	sess     *session.Session
	lastSeen time.Time
}

// Hub owns the live engine sessions, one per connected client. Sessions
// outlive the requests that touch them; they die on explicit teardown,
// when the idle janitor reaps them, or when the hub shuts down.
type Hub struct {
	deps   session.Deps
	events events.Publisher

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewHub wires the shared backends every session runs against. The
// publisher journals board activity; pass events.NopPublisher{} when no
// stream is configured.
func NewHub(deps session.Deps, publisher events.Publisher) *Hub {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Hub{
		deps:     deps,
		events:   publisher,
		sessions: make(map[string]*liveSession),
	}
}

// Create starts a fresh session and returns its id. The session runs on
// its own background context so it survives the creating request.
func (h *Hub) Create() (string, *session.Session, error) {
	sess := session.New(h.deps)
	if err := sess.Start(context.Background()); err != nil {
		sess.Stop()
		return "", nil, err
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &liveSession{sess: sess, lastSeen: time.Now()}
	h.mu.Unlock()

	log.Printf("[Hub] Session %s created", id)
	return id, sess, nil
}

// Get returns the session for an id and marks it as recently used.
func (h *Hub) Get(id string) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	live, ok := h.sessions[id]
	if !ok {
		return nil, false
	}
	live.lastSeen = time.Now()
	return live.sess, true
}

// Destroy stops a session and forgets it. Reports whether the id was
// known.
func (h *Hub) Destroy(id string) bool {
	h.mu.Lock()
	live, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !ok {
		return false
	}
	live.sess.Stop()
	log.Printf("[Hub] Session %s destroyed", id)
	return true
}

// SweepIdle stops every session untouched for longer than maxIdle and
// returns how many were stopped. Called by the janitor.
func (h *Hub) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	var stale []*liveSession
	for id, live := range h.sessions {
		if live.lastSeen.Before(cutoff) {
			stale = append(stale, live)
			delete(h.sessions, id)
			log.Printf("[Hub] Session %s idle since %s, reaping", id, live.lastSeen.Format(time.RFC3339))
		}
	}
	h.mu.Unlock()

	// Stop outside the lock; Stop blocks on the dispatch loop draining.
	for _, live := range stale {
		live.sess.Stop()
	}
	return len(stale)
}

// Shutdown stops every live session. Used on server teardown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*liveSession)
	h.mu.Unlock()

	for id, live := range sessions {
		live.sess.Stop()
		log.Printf("[Hub] Session %s destroyed", id)
	}
}

// FromRequest resolves the caller's session from the request context set
// by the auth middleware. Writes the error response itself when the
// session is missing or expired.
func (h *Hub) FromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	sess, ok := h.Get(id)
	if !ok {
		httputil.WriteUnauthorized(w, "Session expired, create a new one")
		return nil, false
	}
	return sess, true
}

// publish journals an activity event. Best-effort: failures are logged
// by the publisher and never surface to the request.
func (h *Hub) publish(ctx context.Context, event events.Event) {
	_, _ = h.events.Publish(ctx, event)
}
