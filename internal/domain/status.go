package domain

import "errors"

// Status is one value from the fixed order-lifecycle vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReceived  Status = "received"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// forwardChain is the canonical progression. Cancelled and rejected sit
// outside it as side exits.
var forwardChain = []Status{
	StatusPending,
	StatusReceived,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
}

var ErrTerminalStatus = errors.New("order is in a terminal status")

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReceived, StatusPreparing, StatusReady,
		StatusDelivered, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

// Next returns the following status on the forward chain. It returns
// false for terminal statuses and anything not on the chain.
func (s Status) Next() (Status, bool) {
	for i, st := range forwardChain {
		if st == s && i+1 < len(forwardChain) {
			return forwardChain[i+1], true
		}
	}
	return "", false
}

// Rejectable: rejection requires a reason and only applies to orders the
// shop has not started working on.
func (s Status) Rejectable() bool { return s == StatusPending }

// Cancellable: customers may back out before preparation begins.
func (s Status) Cancellable() bool { return s == StatusPending || s == StatusReceived }

// ForwardChain returns the canonical progression, e.g. for admin controls.
func ForwardChain() []Status {
	out := make([]Status, len(forwardChain))
	copy(out, forwardChain)
	return out
}

// AllStatuses lists every valid value, for the unrestricted admin selector.
func AllStatuses() []Status {
	return []Status{
		StatusPending, StatusReceived, StatusPreparing, StatusReady,
		StatusDelivered, StatusCancelled, StatusRejected,
	}
}
