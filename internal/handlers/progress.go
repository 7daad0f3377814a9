package handlers

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
)

// ProgressHub fans pipeline events out to websocket subscribers. Notify
// never blocks on a slow client: a failed write drops the connection.
type ProgressHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{conns: make(map[*websocket.Conn]bool)}
}

// Notify broadcasts one event to all subscribers.
func (h *ProgressHub) Notify(ev pipeline.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, c)
			c.Close()
		}
	}
}

// Handle registers a websocket subscriber and blocks until it disconnects.
// Incoming messages are discarded; the socket is one-way.
func (h *ProgressHub) Handle(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
	log.Printf("Progress subscriber connected (%d active)", h.count())

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
		log.Printf("Progress subscriber disconnected (%d active)", h.count())
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ProgressHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
