package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/campusops/roomclerk/internal/store"
	_ "github.com/campusops/roomclerk/internal/store/sqlite"
	"github.com/campusops/roomclerk/internal/store/testutil"
)

func TestSQLiteDriver(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "roomclerk-test-sqlite-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	cfg := &store.DriverConfig{
		Driver:  "sqlite",
		DataDir: tempDir,
	}

	testutil.RunDriverTests(t, "sqlite", cfg)

	// Verify database file was created
	if _, err := os.Stat(filepath.Join(tempDir, "roomclerk.db")); os.IsNotExist(err) {
		t.Error("roomclerk.db not created")
	}
}

func TestSQLiteDriverSurvivesRestart(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "roomclerk-test-sqlite-restart-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	ctx := context.Background()
	cfg := &store.DriverConfig{
		Driver:  "sqlite",
		DataDir: tempDir,
	}

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}

	meetings := driver.(store.MeetingStore)
	if err := meetings.CreateMeeting(ctx, testutil.TestMeeting("restart-1", "room-r")); err != nil {
		t.Fatal(err)
	}
	if err := driver.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and verify the meeting and its participants survived.
	driver2, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver2.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver2.Close()

	meetings2 := driver2.(store.MeetingStore)
	got, err := meetings2.GetMeeting(ctx, "restart-1")
	if err != nil {
		t.Fatalf("GetMeeting after restart: %v", err)
	}
	if got.Title != "sprint planning" {
		t.Errorf("title = %q, want %q", got.Title, "sprint planning")
	}
	if len(got.Participants) != 2 {
		t.Errorf("participants = %d, want 2", len(got.Participants))
	}
}
