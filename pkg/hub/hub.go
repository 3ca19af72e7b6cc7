// Package hub fans out JSON events to a set of live viewer connections.
//
// Every event is serialized once and handed to each connection's Send,
// which must not block. A connection that cannot take the frame right
// now is skipped for that event; nothing is retried or queued by the hub.
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned by Send after the connection has been closed.
	ErrClosed = errors.New("hub: connection closed")

	// ErrNotWritable is returned by Send when the connection cannot accept
	// a frame without blocking.
	ErrNotWritable = errors.New("hub: connection not writable")
)

// Conn is one viewer connection. Send must not block.
type Conn interface {
	Send(data []byte) error
}

// Hub is the set of connected viewers.
type Hub struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[Conn]struct{})}
}

// Register adds c to the connected set and sends init to c alone. No
// broadcast can interleave between the two. Registering a member again is
// a no-op: it stays a member and gets no second init.
func (h *Hub) Register(c Conn, init any) error {
	data, err := json.Marshal(init)
	if err != nil {
		return fmt.Errorf("hub: encode init: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		return nil
	}
	h.conns[c] = struct{}{}
	_ = c.Send(data)
	return nil
}

// Unregister removes c and reports whether it was a member.
func (h *Hub) Unregister(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return false
	}
	delete(h.conns, c)
	return true
}

// Broadcast serializes v once and sends it to every member. Send failures
// are skipped; only an encoding error is returned.
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hub: encode event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		_ = c.Send(data)
	}
	return nil
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Has reports whether c is connected.
func (h *Hub) Has(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[c]
	return ok
}
