package stream

import (
	"fmt"
	"sync"

	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

// Notifier raises a user-facing notification. The desktop integration
// is environment-specific; LogNotifier is the default sink.
type Notifier interface {
	Notify(title, body string)
}

type LogNotifier struct{}

func (LogNotifier) Notify(title, body string) {
	applog.Info("notify", map[string]any{"title": title, "body": body})
}

// StatusWatcher remembers each order's last observed status and, on the
// next observation, notifies for orders that newly entered "received"
// or "ready" — the two moments a customer cares about.
type StatusWatcher struct {
	mu       sync.Mutex
	last     map[string]domain.Status
	notifier Notifier
}

func NewStatusWatcher(n Notifier) *StatusWatcher {
	if n == nil {
		n = LogNotifier{}
	}
	return &StatusWatcher{last: map[string]domain.Status{}, notifier: n}
}

// Observe compares a fresh order list against the previous observation
// and fires notifications for interesting transitions. The first
// observation only primes the baseline.
func (w *StatusWatcher) Observe(orders []domain.Order) {
	w.mu.Lock()
	primed := len(w.last) > 0
	changed := make([]domain.Order, 0, 2)
	for _, o := range orders {
		prev, seen := w.last[o.ID]
		if primed && seen && prev != o.Status && notable(o.Status) {
			changed = append(changed, o)
		}
		w.last[o.ID] = o.Status
	}
	w.mu.Unlock()

	for _, o := range changed {
		w.notifier.Notify("Order update", fmt.Sprintf("Order %s is now %s", o.ID, o.Status))
	}
}

func notable(s domain.Status) bool {
	return s == domain.StatusReceived || s == domain.StatusReady
}
