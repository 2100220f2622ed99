// Package schedule provides pure interval arithmetic over time slots.
// All functions return freshly allocated slices and never mutate their
// inputs.
package schedule

import (
	"sort"
	"time"
)

// TimeSlot is a half-open interval [Start, End). It represents both busy
// and free time, depending on context. It has no identity.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the slot.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Overlaps reports whether s and o share any time. Touching boundaries
// (s.End == o.Start or s.Start == o.End) do not count as overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && s.End.After(o.Start)
}

// Merge collapses a slot list into a sorted, pairwise non-overlapping
// list. Slots that overlap or touch (one's end equals the other's start)
// are merged into a single spanning slot. The input need not be sorted
// and is left untouched; an empty input yields nil.
func Merge(slots []TimeSlot) []TimeSlot {
	if len(slots) == 0 {
		return nil
	}

	sorted := make([]TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]TimeSlot, 0, len(sorted))
	current := sorted[0]
	for _, s := range sorted[1:] {
		if !s.Start.After(current.End) {
			// Overlapping or adjacent: extend the current slot.
			if s.End.After(current.End) {
				current.End = s.End
			}
			continue
		}
		merged = append(merged, current)
		current = s
	}
	return append(merged, current)
}

// Clip clamps every slot to [rangeStart, rangeEnd), dropping slots that
// lie entirely outside the range. An empty or inverted range yields nil.
func Clip(slots []TimeSlot, rangeStart, rangeEnd time.Time) []TimeSlot {
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	clipped := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !s.Start.Before(rangeEnd) || !s.End.After(rangeStart) {
			continue
		}
		if s.Start.Before(rangeStart) {
			s.Start = rangeStart
		}
		if s.End.After(rangeEnd) {
			s.End = rangeEnd
		}
		clipped = append(clipped, s)
	}
	if len(clipped) == 0 {
		return nil
	}
	return clipped
}

// Invert walks a merged busy list and emits the free gaps inside
// [rangeStart, rangeEnd) that are at least minDuration long. Gaps shorter
// than the minimum are dropped, never truncated. An empty busy list
// yields the whole range as a single slot when it meets the minimum.
//
// The busy list must be the output of Merge (sorted, non-overlapping);
// slots reaching outside the range are tolerated and treated as clipped.
func Invert(mergedBusy []TimeSlot, rangeStart, rangeEnd time.Time, minDuration time.Duration) []TimeSlot {
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	var free []TimeSlot
	cursor := rangeStart
	for _, busy := range mergedBusy {
		if !busy.Start.Before(rangeEnd) {
			break
		}
		if busy.Start.After(cursor) {
			gap := TimeSlot{Start: cursor, End: busy.Start}
			if gap.Duration() >= minDuration {
				free = append(free, gap)
			}
		}
		if busy.End.After(cursor) {
			cursor = busy.End
		}
	}
	if rangeEnd.After(cursor) {
		gap := TimeSlot{Start: cursor, End: rangeEnd}
		if gap.Duration() >= minDuration {
			free = append(free, gap)
		}
	}
	return free
}
