package devapi

import "sync"

// hub fans an "orders changed" signal out to every open stream. The
// signal carries no payload — subscribers refetch on their own.
type hub struct {
	mu   sync.Mutex
	subs map[string]chan struct{}
}

func newHub() *hub {
	return &hub{subs: map[string]chan struct{}{}}
}

func (h *hub) subscribe(id string) chan struct{} {
	ch := make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(id string) {
	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

// broadcast drops the signal for slow subscribers rather than blocking;
// a missed signal only delays a refetch until the next one.
func (h *hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
