package order

import "errors"

var ErrInvalidTransition = errors.New("invalid order status transition")

// Forward chain of the status machine. cancelled sits outside the chain
// and is reachable only through CanCancelFrom states.
var forward = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipping,
	StatusShipping:   StatusCompleted,
}

// NextStatus returns the single forward step from s. Advancing never
// skips states and never leaves cancelled or completed.
func NextStatus(s Status) (Status, error) {
	next, ok := forward[s]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// CanCancelFrom reports whether an order in s may still be cancelled.
// Once an order reaches shipping it is final for cancellation purposes.
func CanCancelFrom(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}

// CancellableStatuses lists the states Cancel may claim from, in the
// order they appear in the forward chain. Used to build the conditional
// update that makes cancellation a single atomic claim.
func CancellableStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusProcessing}
}
