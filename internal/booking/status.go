package booking

import (
	"fmt"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s is absorbing.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether a booking in s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Validate checks the status/provider invariant: a pending booking has no provider,
// assigned, in-progress and completed bookings have one. A cancelled booking keeps
// whatever it had when it was cancelled.
func (b *Booking) Validate() error {
	if !b.Status.Valid() {
		return fmt.Errorf("unknown status %q", b.Status)
	}
	hasProvider := b.ProviderID != nil && *b.ProviderID != ""
	switch b.Status {
	case StatusPending:
		if hasProvider {
			return fmt.Errorf("pending booking has provider %q", *b.ProviderID)
		}
	case StatusAssigned, StatusInProgress, StatusCompleted:
		if !hasProvider {
			return fmt.Errorf("%s booking has no provider", b.Status)
		}
	}
	if b.Rating != nil && b.Status != StatusCompleted {
		return fmt.Errorf("%s booking carries a rating", b.Status)
	}
	return nil
}
