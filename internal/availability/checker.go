// Package availability answers read-only busy/conflict questions against
// the persisted meeting set. Only CONFIRMED meetings count; touching
// boundaries never count as overlap.
package availability

import (
	"context"
	"time"

	"github.com/campusops/roomclerk/internal/store"
)

// Checker is a read-only view over the meeting query port.
type Checker struct {
	meetings store.MeetingStore
}

// NewChecker creates a Checker backed by the given meeting store.
func NewChecker(meetings store.MeetingStore) *Checker {
	return &Checker{meetings: meetings}
}

// IsRoomBusy reports whether a CONFIRMED meeting in the room strictly
// overlaps [start, end).
func (c *Checker) IsRoomBusy(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	return c.meetings.IsRoomOverlap(ctx, roomID, start, end, "")
}

// IsRoomBusyExcluding is IsRoomBusy with one meeting exempted, so moving
// a meeting within its own slot is never treated as a self-conflict.
func (c *Checker) IsRoomBusyExcluding(ctx context.Context, roomID string, start, end time.Time, excludeMeetingID string) (bool, error) {
	return c.meetings.IsRoomOverlap(ctx, roomID, start, end, excludeMeetingID)
}

// FindConflicts returns every CONFIRMED meeting overlapping [start, end)
// where any of the given users is organizer or participant.
func (c *Checker) FindConflicts(ctx context.Context, userIDs []string, start, end time.Time) ([]*store.Meeting, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return c.meetings.FindByParticipant(ctx, userIDs, start, end)
}
