// Package suggest answers "give me free slots of duration D for this
// group within this range" by composing the availability checker with
// the interval algebra. Strictly read-only.
package suggest

import (
	"context"
	"time"

	"github.com/campusops/roomclerk/internal/availability"
	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/schedule"
)

// Engine computes free-slot candidates for a group of users.
type Engine struct {
	avail *availability.Checker
}

// NewEngine creates an Engine over the given checker.
func NewEngine(avail *availability.Checker) *Engine {
	return &Engine{avail: avail}
}

// Suggest returns free slots of at least minDuration inside
// [rangeStart, rangeEnd) where none of the users has a CONFIRMED
// meeting. Results are chronological; an empty result means no slot of
// sufficient length exists.
func (e *Engine) Suggest(ctx context.Context, userIDs []string, rangeStart, rangeEnd time.Time, minDuration time.Duration) ([]schedule.TimeSlot, error) {
	errs := &booking.ValidationErrors{}
	if len(userIDs) == 0 {
		errs.Add("participantIds", "required field missing")
	}
	if !rangeStart.Before(rangeEnd) {
		errs.Add("rangeEnd", "must be after rangeStart")
	}
	if minDuration <= 0 {
		errs.Add("durationMinutes", "must be positive")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	meetings, err := e.avail.FindConflicts(ctx, userIDs, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	busy := make([]schedule.TimeSlot, 0, len(meetings))
	for _, m := range meetings {
		busy = append(busy, schedule.TimeSlot{Start: m.StartTime, End: m.EndTime})
	}
	busy = schedule.Clip(busy, rangeStart, rangeEnd)
	merged := schedule.Merge(busy)
	return schedule.Invert(merged, rangeStart, rangeEnd, minDuration), nil
}
