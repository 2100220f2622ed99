package booking

import (
	"fmt"
	"time"

	"github.com/campusops/roomclerk/internal/store"
)

// ConflictError signals a room or participant double-booking. It carries
// enough context for a caller to render an actionable message or offer
// an alternate slot.
type ConflictError struct {
	RoomID    string
	Start     time.Time
	End       time.Time
	MeetingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("room %s is already booked between %s and %s",
		e.RoomID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// PolicyError signals an authorization or ownership failure. Not
// retryable.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return "policy violation: " + e.Reason
}

// StateError signals an operation on a meeting in an incompatible
// lifecycle state (terminal, already transitioned, outside its window).
type StateError struct {
	MeetingID string
	Status    store.MeetingStatus
	Reason    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("meeting %s (%s): %s", e.MeetingID, e.Status, e.Reason)
}
