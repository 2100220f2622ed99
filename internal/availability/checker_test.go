package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/campusops/roomclerk/internal/availability"
	"github.com/campusops/roomclerk/internal/store"
	_ "github.com/campusops/roomclerk/internal/store/memory"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.April, 6, hour, min, 0, 0, time.UTC)
}

func newChecker(t *testing.T) (*availability.Checker, store.MeetingStore) {
	t.Helper()
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { driver.Close() })

	meetings := driver.(store.MeetingStore)
	return availability.NewChecker(meetings), meetings
}

func seed(t *testing.T, meetings store.MeetingStore, id string, start, end time.Time, status store.MeetingStatus) {
	t.Helper()
	err := meetings.CreateMeeting(context.Background(), &store.Meeting{
		ID: id, Title: "busy", StartTime: start, EndTime: end,
		Status: status, RoomID: "r1", OrganizerID: "u1", CreatorID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestIsRoomBusyBoundaries(t *testing.T) {
	checker, meetings := newChecker(t)
	ctx := context.Background()

	seed(t, meetings, "m1", at(10, 0), at(11, 0), store.MeetingConfirmed)

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical window", at(10, 0), at(11, 0), true},
		{"contained", at(10, 15), at(10, 45), true},
		{"containing", at(9, 0), at(12, 0), true},
		{"overlaps start", at(9, 30), at(10, 30), true},
		{"overlaps end", at(10, 30), at(11, 30), true},
		{"ends at start", at(9, 0), at(10, 0), false},
		{"starts at end", at(11, 0), at(12, 0), false},
		{"disjoint before", at(8, 0), at(9, 0), false},
		{"disjoint after", at(12, 0), at(13, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.IsRoomBusy(ctx, "r1", tc.start, tc.end)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("IsRoomBusy(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestIsRoomBusyIgnoresNonConfirmed(t *testing.T) {
	checker, meetings := newChecker(t)
	ctx := context.Background()

	seed(t, meetings, "m1", at(10, 0), at(11, 0), store.MeetingCancelled)
	seed(t, meetings, "m2", at(10, 0), at(11, 0), store.MeetingPendingApproval)

	busy, err := checker.IsRoomBusy(ctx, "r1", at(10, 0), at(11, 0))
	if err != nil {
		t.Fatal(err)
	}
	if busy {
		t.Error("cancelled and pending-approval meetings should not block the room")
	}
}

func TestIsRoomBusyExcluding(t *testing.T) {
	checker, meetings := newChecker(t)
	ctx := context.Background()

	seed(t, meetings, "m1", at(10, 0), at(11, 0), store.MeetingConfirmed)

	busy, err := checker.IsRoomBusyExcluding(ctx, "r1", at(10, 0), at(11, 0), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if busy {
		t.Error("a meeting must not conflict with itself")
	}

	busy, err = checker.IsRoomBusyExcluding(ctx, "r1", at(10, 0), at(11, 0), "other")
	if err != nil {
		t.Fatal(err)
	}
	if !busy {
		t.Error("excluding an unrelated meeting must not hide the conflict")
	}
}

func TestFindConflicts(t *testing.T) {
	checker, meetings := newChecker(t)
	ctx := context.Background()

	seed(t, meetings, "m1", at(10, 0), at(11, 0), store.MeetingConfirmed)

	// Organizer involvement counts even without a participant record.
	got, err := checker.FindConflicts(ctx, []string{"u1"}, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("FindConflicts = %v, want [m1]", got)
	}

	got, err = checker.FindConflicts(ctx, []string{"stranger"}, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("FindConflicts for stranger = %v, want none", got)
	}

	// Empty user set short-circuits.
	got, err = checker.FindConflicts(ctx, nil, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("FindConflicts with no users = %v, want nil", got)
	}
}
