package stream

import "sync"

// Sink delivers outbound events to one connection.
//
// Send must not block: broadcasts are fire-and-forget, so a slow consumer
// drops events rather than stalling the pipeline for everyone else.
type Sink interface {
	ID() string
	Send(ev Event)
}

// Hub is the viewer broadcast group. Viewers are read-only connections that
// mirror the caption and sign events of every active session. Membership is
// the only state a viewer owns.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]Sink
}

// NewHub creates an empty broadcast group.
func NewHub() *Hub {
	return &Hub{viewers: make(map[string]Sink)}
}

// AddViewer registers s as a broadcast recipient. Re-adding the same
// connection ID replaces the previous sink.
func (h *Hub) AddViewer(s Sink) {
	h.mu.Lock()
	h.viewers[s.ID()] = s
	h.mu.Unlock()
}

// RemoveViewer unregisters the connection and reports whether it was a
// member. Viewers leave immediately on disconnect; there is no grace period.
func (h *Hub) RemoveViewer(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[id]; !ok {
		return false
	}
	delete(h.viewers, id)
	return true
}

// IsViewer reports whether the connection is a broadcast group member.
func (h *Hub) IsViewer(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.viewers[id]
	return ok
}

// Broadcast sends ev to every viewer. Delivery is best-effort per sink.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.viewers))
	for _, s := range h.viewers {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, s := range sinks {
		s.Send(ev)
	}
}

// ViewerCount returns the current broadcast group size.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}
