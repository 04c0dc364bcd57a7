package events

import "sync"

// Subscription receives the events its filter matches.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	filter Filter
}

// Hub fans events out to SSE subscribers. Slow subscribers miss events
// rather than block publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(f Filter) *Subscription {
	ch := make(chan Event, 16)
	s := &Subscription{C: ch, ch: ch, filter: f}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
	h.mu.Unlock()
}

func (h *Hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.filter.Match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			// drop if slow
		}
	}
}

// Emit publishes an event scoped by sc. A nil hub discards it.
func (h *Hub) Emit(sc Scope, typ string, data any) {
	if h == nil {
		return
	}
	h.publish(newEvent(sc, typ, data))
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
