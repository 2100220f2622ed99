// Package testutil provides shared test helpers for store driver tests.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusops/roomclerk/internal/store"
)

// Base is a fixed reference instant so overlap assertions are readable.
var Base = time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)

// At returns Base shifted by whole minutes.
func At(minutes int) time.Time {
	return Base.Add(time.Duration(minutes) * time.Minute)
}

// TestMeeting creates a CONFIRMED test meeting in [Base+60m, Base+120m).
func TestMeeting(id, roomID string) *store.Meeting {
	return &store.Meeting{
		ID:          id,
		Title:       "sprint planning",
		Description: "weekly planning",
		StartTime:   At(60),
		EndTime:     At(120),
		Status:      store.MeetingConfirmed,
		RoomID:      roomID,
		OrganizerID: "alice",
		CreatorID:   "alice",
		Participants: []store.Participant{
			{ID: id + "-p0", MeetingID: id, UserID: "alice", Status: store.ParticipantAccepted},
			{ID: id + "-p1", MeetingID: id, UserID: "bob", Status: store.ParticipantPending, ResponseToken: "token-" + id},
		},
	}
}

// RunDriverTests runs the standard test suite against a driver.
func RunDriverTests(t *testing.T, driverName string, cfg *store.DriverConfig) {
	ctx := context.Background()

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatalf("failed to create %s driver: %v", driverName, err)
	}
	defer driver.Close()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("failed to init %s driver: %v", driverName, err)
	}

	if driver.Name() != driverName {
		t.Errorf("expected driver name %q, got %q", driverName, driver.Name())
	}

	meetings, ok := driver.(store.MeetingStore)
	if !ok {
		t.Fatalf("%s driver does not implement MeetingStore", driverName)
	}
	rooms, ok := driver.(store.RoomStore)
	if !ok {
		t.Fatalf("%s driver does not implement RoomStore", driverName)
	}
	users, ok := driver.(store.UserStore)
	if !ok {
		t.Fatalf("%s driver does not implement UserStore", driverName)
	}
	devices, ok := driver.(store.DeviceStore)
	if !ok {
		t.Fatalf("%s driver does not implement DeviceStore", driverName)
	}

	t.Run("MeetingCRUD", func(t *testing.T) {
		TestMeetingCRUD(t, ctx, meetings)
	})
	t.Run("RoomOverlap", func(t *testing.T) {
		TestRoomOverlap(t, ctx, meetings)
	})
	t.Run("ParticipantQueries", func(t *testing.T) {
		TestParticipantQueries(t, ctx, meetings)
	})
	t.Run("UncheckedQuery", func(t *testing.T) {
		TestUncheckedQuery(t, ctx, meetings)
	})
	t.Run("RoomAndUserCRUD", func(t *testing.T) {
		TestRoomAndUserCRUD(t, ctx, rooms, users)
	})
	t.Run("DeviceCRUD", func(t *testing.T) {
		TestDeviceCRUD(t, ctx, devices)
	})
}

// TestMeetingCRUD tests meeting create, get, token lookup, and update.
func TestMeetingCRUD(t *testing.T, ctx context.Context, s store.MeetingStore) {
	m := TestMeeting("crud-1", "room-crud")
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	got, err := s.GetMeeting(ctx, "crud-1")
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if got.Title != "sprint planning" {
		t.Errorf("title = %q, want %q", got.Title, "sprint planning")
	}
	if len(got.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(got.Participants))
	}

	if _, err := s.GetMeeting(ctx, "no-such-meeting"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetMeeting(missing) = %v, want ErrNotFound", err)
	}

	byToken, err := s.GetMeetingByResponseToken(ctx, "token-crud-1")
	if err != nil {
		t.Fatalf("GetMeetingByResponseToken: %v", err)
	}
	if byToken.ID != "crud-1" {
		t.Errorf("token lookup id = %q, want crud-1", byToken.ID)
	}
	if _, err := s.GetMeetingByResponseToken(ctx, "bogus"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("token lookup(bogus) = %v, want ErrNotFound", err)
	}
	// The organizer row stores an empty token; it must not be addressable.
	if _, err := s.GetMeetingByResponseToken(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("token lookup(empty) = %v, want ErrNotFound", err)
	}

	got.Title = "renamed"
	if p := got.ParticipantFor("bob"); p != nil {
		p.Status = store.ParticipantAccepted
	}
	if err := s.UpdateMeeting(ctx, got); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	reread, err := s.GetMeeting(ctx, "crud-1")
	if err != nil {
		t.Fatalf("GetMeeting after update: %v", err)
	}
	if reread.Title != "renamed" {
		t.Errorf("title after update = %q, want renamed", reread.Title)
	}
	if p := reread.ParticipantFor("bob"); p == nil || p.Status != store.ParticipantAccepted {
		t.Errorf("bob not accepted after update: %+v", p)
	}
}

// TestRoomOverlap covers strict overlap semantics and the write backstop.
func TestRoomOverlap(t *testing.T, ctx context.Context, s store.MeetingStore) {
	m := TestMeeting("ov-1", "room-ov") // [60, 120)
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"contained", At(70), At(110), true},
		{"straddles start", At(30), At(90), true},
		{"straddles end", At(90), At(150), true},
		{"touching end boundary", At(120), At(180), false},
		{"touching start boundary", At(0), At(60), false},
		{"disjoint before", At(0), At(30), false},
	}
	for _, tc := range cases {
		busy, err := s.IsRoomOverlap(ctx, "room-ov", tc.start, tc.end, "")
		if err != nil {
			t.Fatalf("%s: IsRoomOverlap: %v", tc.name, err)
		}
		if busy != tc.want {
			t.Errorf("%s: busy = %v, want %v", tc.name, busy, tc.want)
		}
	}

	// Self-exclusion for no-op moves.
	busy, err := s.IsRoomOverlap(ctx, "room-ov", At(60), At(120), "ov-1")
	if err != nil {
		t.Fatalf("IsRoomOverlap exclude self: %v", err)
	}
	if busy {
		t.Error("self-overlap with exclusion should not be busy")
	}

	// Storage backstop: a conflicting confirmed insert fails.
	conflict := TestMeeting("ov-2", "room-ov")
	conflict.StartTime = At(90)
	conflict.EndTime = At(150)
	conflict.Participants = nil
	if err := s.CreateMeeting(ctx, conflict); !errors.Is(err, store.ErrRoomBusy) {
		t.Errorf("conflicting CreateMeeting = %v, want ErrRoomBusy", err)
	}

	// Cancelled meetings never block a room.
	got, err := s.GetMeeting(ctx, "ov-1")
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	got.Status = store.MeetingCancelled
	if err := s.UpdateMeeting(ctx, got); err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	busy, err = s.IsRoomOverlap(ctx, "room-ov", At(70), At(110), "")
	if err != nil {
		t.Fatalf("IsRoomOverlap after cancel: %v", err)
	}
	if busy {
		t.Error("cancelled meeting still reported as busy")
	}
}

// TestParticipantQueries covers FindByParticipant and FindBySeriesID.
func TestParticipantQueries(t *testing.T, ctx context.Context, s store.MeetingStore) {
	// Subtest-unique user ids keep fixtures from sibling subtests (which
	// share this driver) out of the participant-window queries below.
	m1 := TestMeeting("pq-1", "room-pq-a") // alice-pq organizer, bob-pq participant
	m1.SeriesID = "series-pq"
	m1.OrganizerID = "alice-pq"
	m1.CreatorID = "alice-pq"
	m1.Participants = []store.Participant{
		{ID: "pq-1-p0", MeetingID: "pq-1", UserID: "alice-pq", Status: store.ParticipantAccepted},
		{ID: "pq-1-p1", MeetingID: "pq-1", UserID: "bob-pq", Status: store.ParticipantPending, ResponseToken: "token-pq-1"},
	}
	if err := s.CreateMeeting(ctx, m1); err != nil {
		t.Fatalf("CreateMeeting pq-1: %v", err)
	}

	m2 := TestMeeting("pq-2", "room-pq-b")
	m2.OrganizerID = "carol-pq"
	m2.CreatorID = "carol-pq"
	m2.SeriesID = "series-pq"
	m2.Participants = []store.Participant{
		{ID: "pq-2-p0", MeetingID: "pq-2", UserID: "carol-pq", Status: store.ParticipantAccepted},
	}
	if err := s.CreateMeeting(ctx, m2); err != nil {
		t.Fatalf("CreateMeeting pq-2: %v", err)
	}

	found, err := s.FindByParticipant(ctx, []string{"bob-pq"}, At(0), At(240))
	if err != nil {
		t.Fatalf("FindByParticipant: %v", err)
	}
	if len(found) != 1 || found[0].ID != "pq-1" {
		t.Errorf("bob's meetings = %v, want [pq-1]", meetingIDs(found))
	}

	found, err = s.FindByParticipant(ctx, []string{"alice-pq", "carol-pq"}, At(0), At(240))
	if err != nil {
		t.Fatalf("FindByParticipant: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("alice+carol meetings = %v, want two", meetingIDs(found))
	}

	// Window excludes everything: [0, 60) touches pq-1's start only.
	found, err = s.FindByParticipant(ctx, []string{"bob-pq"}, At(0), At(60))
	if err != nil {
		t.Fatalf("FindByParticipant: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("boundary-touching window returned %v, want none", meetingIDs(found))
	}

	series, err := s.FindBySeriesID(ctx, "series-pq")
	if err != nil {
		t.Fatalf("FindBySeriesID: %v", err)
	}
	if len(series) != 2 {
		t.Errorf("series instances = %v, want two", meetingIDs(series))
	}
}

// TestUncheckedQuery covers the reconciliation sweep query.
func TestUncheckedQuery(t *testing.T, ctx context.Context, s store.MeetingStore) {
	stale := TestMeeting("uc-1", "room-uc-a")
	stale.Participants = nil
	if err := s.CreateMeeting(ctx, stale); err != nil {
		t.Fatalf("CreateMeeting uc-1: %v", err)
	}

	checked := TestMeeting("uc-2", "room-uc-b")
	checked.CheckedIn = true
	checked.Participants = nil
	if err := s.CreateMeeting(ctx, checked); err != nil {
		t.Fatalf("CreateMeeting uc-2: %v", err)
	}

	// Cutoff after both starts: only the unchecked one qualifies.
	found, err := s.FindUnchecked(ctx, At(90))
	if err != nil {
		t.Fatalf("FindUnchecked: %v", err)
	}
	ids := meetingIDs(found)
	if !contains(ids, "uc-1") || contains(ids, "uc-2") {
		t.Errorf("unchecked = %v, want uc-1 without uc-2", ids)
	}

	// Cutoff before both starts: neither qualifies.
	found, err = s.FindUnchecked(ctx, At(30))
	if err != nil {
		t.Fatalf("FindUnchecked: %v", err)
	}
	ids = meetingIDs(found)
	if contains(ids, "uc-1") || contains(ids, "uc-2") {
		t.Errorf("early cutoff returned %v, want neither uc meeting", ids)
	}
}

// TestRoomAndUserCRUD tests the lookup stores.
func TestRoomAndUserCRUD(t *testing.T, ctx context.Context, rooms store.RoomStore, users store.UserStore) {
	room := &store.Room{ID: "room-1", Name: "Fishbowl", Location: "3F", Capacity: 8}
	if err := rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	got, err := rooms.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.Name != "Fishbowl" {
		t.Errorf("room name = %q, want Fishbowl", got.Name)
	}
	if _, err := rooms.GetRoom(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRoom(missing) = %v, want ErrNotFound", err)
	}

	user := &store.User{ID: "user-1", Email: "dana@example.com", DisplayName: "Dana"}
	if err := users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := users.GetUser(ctx, "user-1"); err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if _, err := users.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUser(missing) = %v, want ErrNotFound", err)
	}
}

// TestDeviceCRUD tests the equipment store.
func TestDeviceCRUD(t *testing.T, ctx context.Context, devices store.DeviceStore) {
	if err := devices.CreateDevice(ctx, &store.Device{ID: "dev-1", Name: "Projector"}); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	got, err := devices.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.Name != "Projector" {
		t.Errorf("device name = %q, want Projector", got.Name)
	}
	if _, err := devices.GetDevice(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetDevice(missing) = %v, want ErrNotFound", err)
	}
	all, err := devices.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(all) == 0 {
		t.Error("ListDevices returned nothing")
	}
}

func meetingIDs(ms []*store.Meeting) []string {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
