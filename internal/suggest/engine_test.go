package suggest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusops/roomclerk/internal/availability"
	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/schedule"
	"github.com/campusops/roomclerk/internal/store"
	_ "github.com/campusops/roomclerk/internal/store/memory"
	"github.com/campusops/roomclerk/internal/suggest"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.April, 6, hour, min, 0, 0, time.UTC)
}

func newEngine(t *testing.T) (*suggest.Engine, store.MeetingStore) {
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
	return suggest.NewEngine(availability.NewChecker(meetings)), meetings
}

func seedMeeting(t *testing.T, meetings store.MeetingStore, id, room, user string, start, end time.Time, status store.MeetingStatus) {
	t.Helper()
	m := &store.Meeting{
		ID:          id,
		Title:       "busy",
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		RoomID:      room,
		OrganizerID: user,
		CreatorID:   user,
		Participants: []store.Participant{{
			ID: id + "-p", MeetingID: id, UserID: user, Status: store.ParticipantAccepted,
		}},
	}
	if err := meetings.CreateMeeting(context.Background(), m); err != nil {
		t.Fatal(err)
	}
}

func TestSuggestGroupGaps(t *testing.T) {
	engine, meetings := newEngine(t)
	ctx := context.Background()

	// u1 is busy 09:00-10:00, u2 is busy 10:30-11:00. In 09:00-12:00 the
	// 30-minute candidates are 10:00-10:30 and 11:00-12:00.
	seedMeeting(t, meetings, "m1", "r1", "u1", at(9, 0), at(10, 0), store.MeetingConfirmed)
	seedMeeting(t, meetings, "m2", "r2", "u2", at(10, 30), at(11, 0), store.MeetingConfirmed)

	got, err := engine.Suggest(ctx, []string{"u1", "u2"}, at(9, 0), at(12, 0), 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	want := []schedule.TimeSlot{
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(11, 0), End: at(12, 0)},
	}
	assertSlots(t, got, want)

	// A 45-minute minimum drops the short gap.
	got, err = engine.Suggest(ctx, []string{"u1", "u2"}, at(9, 0), at(12, 0), 45*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, got, []schedule.TimeSlot{{Start: at(11, 0), End: at(12, 0)}})
}

func TestSuggestIgnoresCancelledAndOtherUsers(t *testing.T) {
	engine, meetings := newEngine(t)
	ctx := context.Background()

	seedMeeting(t, meetings, "m1", "r1", "u1", at(9, 0), at(12, 0), store.MeetingCancelled)
	seedMeeting(t, meetings, "m2", "r1", "stranger", at(9, 0), at(12, 0), store.MeetingConfirmed)

	got, err := engine.Suggest(ctx, []string{"u1"}, at(9, 0), at(12, 0), 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, got, []schedule.TimeSlot{{Start: at(9, 0), End: at(12, 0)}})
}

func TestSuggestClipsMeetingsSpanningTheRange(t *testing.T) {
	engine, meetings := newEngine(t)
	ctx := context.Background()

	// Busy block straddles the range start; only the in-range part counts.
	seedMeeting(t, meetings, "m1", "r1", "u1", at(8, 0), at(9, 30), store.MeetingConfirmed)

	got, err := engine.Suggest(ctx, []string{"u1"}, at(9, 0), at(12, 0), 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assertSlots(t, got, []schedule.TimeSlot{{Start: at(9, 30), End: at(12, 0)}})
}

func TestSuggestFullyBooked(t *testing.T) {
	engine, meetings := newEngine(t)
	ctx := context.Background()

	seedMeeting(t, meetings, "m1", "r1", "u1", at(9, 0), at(12, 0), store.MeetingConfirmed)

	got, err := engine.Suggest(ctx, []string{"u1"}, at(9, 0), at(12, 0), 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Suggest = %v, want no slots", got)
	}
}

func TestSuggestValidation(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		users    []string
		start    time.Time
		end      time.Time
		duration time.Duration
	}{
		{"no users", nil, at(9, 0), at(12, 0), 30 * time.Minute},
		{"inverted range", []string{"u1"}, at(12, 0), at(9, 0), 30 * time.Minute},
		{"zero duration", []string{"u1"}, at(9, 0), at(12, 0), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *booking.ValidationErrors
			if _, err := engine.Suggest(ctx, tc.users, tc.start, tc.end, tc.duration); !errors.As(err, &verr) {
				t.Errorf("Suggest = %v, want ValidationErrors", err)
			}
		})
	}
}

func assertSlots(t *testing.T, got, want []schedule.TimeSlot) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("slot %d = %v, want %v", i, got[i], want[i])
		}
	}
}
