package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/campusops/roomclerk/internal/store"
	_ "github.com/campusops/roomclerk/internal/store/memory"
	"github.com/campusops/roomclerk/internal/store/testutil"
)

func TestMemoryDriver(t *testing.T) {
	cfg := &store.DriverConfig{Driver: "memory"}
	testutil.RunDriverTests(t, "memory", cfg)
}

func TestMemoryDriverClosed(t *testing.T) {
	ctx := context.Background()
	driver, err := store.New(&store.DriverConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := driver.Close(); err != nil {
		t.Fatal(err)
	}

	meetings := driver.(store.MeetingStore)
	if _, err := meetings.GetMeeting(ctx, "any"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("GetMeeting after Close = %v, want ErrClosed", err)
	}
	if err := meetings.CreateMeeting(ctx, testutil.TestMeeting("x", "r")); !errors.Is(err, store.ErrClosed) {
		t.Errorf("CreateMeeting after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryDriverIsolation(t *testing.T) {
	ctx := context.Background()
	driver, err := store.New(&store.DriverConfig{Driver: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	meetings := driver.(store.MeetingStore)
	if err := meetings.CreateMeeting(ctx, testutil.TestMeeting("iso-1", "room-iso")); err != nil {
		t.Fatal(err)
	}

	// Mutating a fetched meeting must not leak into committed state
	// until UpdateMeeting is called.
	got, err := meetings.GetMeeting(ctx, "iso-1")
	if err != nil {
		t.Fatal(err)
	}
	got.Title = "scribbled"
	got.Participants[0].Status = store.ParticipantDeclined

	reread, err := meetings.GetMeeting(ctx, "iso-1")
	if err != nil {
		t.Fatal(err)
	}
	if reread.Title == "scribbled" {
		t.Error("uncommitted title mutation leaked into the store")
	}
	if reread.Participants[0].Status == store.ParticipantDeclined {
		t.Error("uncommitted participant mutation leaked into the store")
	}
}
