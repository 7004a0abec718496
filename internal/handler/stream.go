package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DonyChristie/crux/internal/session"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// StreamHandler pushes engine snapshots over a websocket so clients
// render live updates without polling.
type StreamHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler wires dependencies for the snapshot stream.
func NewStreamHandler(hub *Hub) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The session token already authenticates the caller; the
			// stream is origin-agnostic like the rest of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /stream
// Upgrades to a websocket and sends a JSON snapshot immediately and on
// every engine change until the client disconnects. Browser clients
// pass the session token as the "token" query parameter.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.hub.FromRequest(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("[Stream] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Snapshots arrive on the engine's dispatch goroutine; a slow socket
	// must not stall it. Buffer one snapshot and coalesce: only the
	// newest pending state matters.
	updates := make(chan session.Snapshot, 1)
	cancel := sess.Subscribe(func(snap session.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer cancel()

	// Reader goroutine exists only to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("[Stream] Write failed, dropping client: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
