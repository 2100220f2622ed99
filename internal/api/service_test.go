package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/campusops/roomclerk/internal/api"
	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/frameworks/service"
	"github.com/campusops/roomclerk/internal/platform/clock"
	"github.com/campusops/roomclerk/internal/platform/config"
	"github.com/campusops/roomclerk/internal/platform/deps"
	"github.com/campusops/roomclerk/internal/store"
	_ "github.com/campusops/roomclerk/internal/store/memory"
	"github.com/campusops/roomclerk/internal/suggest"
)

var now = time.Date(2026, time.April, 6, 8, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, time.April, 6, hour, min, 0, 0, time.UTC)
}

// Shared deps are installed once per process, so the whole package
// shares one fixture. Tests use disjoint rooms and windows.
var (
	setupOnce sync.Once
	handler   http.Handler
	setupErr  error
)

func apiHandler(t *testing.T) http.Handler {
	t.Helper()
	setupOnce.Do(func() {
		ctx := context.Background()

		driver, err := store.New(&store.DriverConfig{Driver: "memory"})
		if err != nil {
			setupErr = err
			return
		}
		if err := driver.Init(ctx); err != nil {
			setupErr = err
			return
		}

		rooms := driver.(store.RoomStore)
		users := driver.(store.UserStore)
		for i := 1; i <= 6; i++ {
			if err := rooms.CreateRoom(ctx, &store.Room{
				ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Room %d", i),
			}); err != nil {
				setupErr = err
				return
			}
		}
		for _, u := range []*store.User{
			{ID: "alice", Email: "alice@example.com"},
			{ID: "bob", Email: "bob@example.com"},
			{ID: "carol", Email: "carol@example.com"},
			{ID: "root", Email: "root@example.com", IsAdmin: true},
		} {
			if err := users.CreateUser(ctx, u); err != nil {
				setupErr = err
				return
			}
		}

		meetings := driver.(store.MeetingStore)
		svc := booking.NewService(booking.Config{
			Meetings: meetings,
			Rooms:    rooms,
			Users:    users,
			Clock:    clock.NewFake(now),
		})
		deps.SetDeps(&deps.Deps{
			Config:   config.Defaults(),
			Meetings: meetings,
			Rooms:    rooms,
			Users:    users,
			Devices:  driver.(store.DeviceStore),
			Booking:  svc,
			Suggest:  suggest.NewEngine(svc.Availability()),
		})

		apiSvc, err := service.Get("api")(nil, nil)
		if err != nil {
			setupErr = err
			return
		}
		handler = apiSvc.Handler()
	})
	if setupErr != nil {
		t.Fatal(setupErr)
	}
	return handler
}

func do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	apiHandler(t).ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return out
}

func TestCreateAndGetMeeting(t *testing.T) {
	rec := do(t, http.MethodPost, "/meetings", "alice", api.CreateMeetingRequest{
		Title:          "design review",
		Start:          at(10, 0),
		End:            at(11, 0),
		RoomID:         "r1",
		ParticipantIDs: []string{"bob"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[api.MeetingView](t, rec)
	if created.Status != store.MeetingConfirmed || created.OrganizerID != "alice" {
		t.Errorf("created = %+v", created)
	}
	if len(created.Participants) != 2 {
		t.Errorf("participants = %d, want 2", len(created.Participants))
	}
	// Response tokens must never leak through the API.
	if bytes.Contains(rec.Body.Bytes(), []byte("token")) {
		t.Error("response serialized a token field")
	}

	rec = do(t, http.MethodGet, "/meetings/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[api.MeetingView](t, rec)
	if got.ID != created.ID || !got.Start.Equal(at(10, 0)) {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	rec := do(t, http.MethodPost, "/meetings", "", api.CreateMeetingRequest{
		Title: "x", Start: at(10, 0), End: at(11, 0), RoomID: "r1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateConflictEnvelope(t *testing.T) {
	first := do(t, http.MethodPost, "/meetings", "alice", api.CreateMeetingRequest{
		Title: "sync", Start: at(13, 0), End: at(14, 0), RoomID: "r2",
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("first create = %d", first.Code)
	}

	rec := do(t, http.MethodPost, "/meetings", "bob", api.CreateMeetingRequest{
		Title: "clash", Start: at(13, 30), End: at(14, 30), RoomID: "r2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	envelope := decode[api.ErrorEnvelope](t, rec)
	if envelope.Error.ReasonCode != api.ReasonConflict {
		t.Errorf("reason = %q, want conflict", envelope.Error.ReasonCode)
	}
	if envelope.Error.RoomID != "r2" || envelope.Error.Window == "" {
		t.Errorf("conflict context = %+v", envelope.Error)
	}
}

func TestGetUnknownMeeting(t *testing.T) {
	rec := do(t, http.MethodGet, "/meetings/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	envelope := decode[api.ErrorEnvelope](t, rec)
	if envelope.Error.ReasonCode != api.ReasonNotFound {
		t.Errorf("reason = %q, want not_found", envelope.Error.ReasonCode)
	}
}

func TestCancelLifecycle(t *testing.T) {
	created := decode[api.MeetingView](t, do(t, http.MethodPost, "/meetings", "alice", api.CreateMeetingRequest{
		Title: "standup", Start: at(15, 0), End: at(15, 30), RoomID: "r3",
	}))

	// Someone else cannot cancel.
	rec := do(t, http.MethodPost, "/meetings/"+created.ID+"/cancel", "bob", api.ReasonRequest{Reason: "mine now"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel = %d, want 403", rec.Code)
	}

	rec = do(t, http.MethodPost, "/meetings/"+created.ID+"/cancel", "alice", api.ReasonRequest{Reason: "not needed"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	// Cancelling again is an invalid-state conflict.
	rec = do(t, http.MethodPost, "/meetings/"+created.ID+"/cancel", "alice", api.ReasonRequest{Reason: "again"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double cancel = %d, want 409", rec.Code)
	}
	envelope := decode[api.ErrorEnvelope](t, rec)
	if envelope.Error.ReasonCode != api.ReasonInvalidState {
		t.Errorf("reason = %q, want invalid_state", envelope.Error.ReasonCode)
	}
}

func TestRespondEndpoints(t *testing.T) {
	created := decode[api.MeetingView](t, do(t, http.MethodPost, "/meetings", "alice", api.CreateMeetingRequest{
		Title: "planning", Start: at(16, 0), End: at(17, 0), RoomID: "r4",
		ParticipantIDs: []string{"bob"},
	}))

	rec := do(t, http.MethodPost, "/meetings/"+created.ID+"/respond", "bob", api.RespondRequest{Status: store.ParticipantAccepted})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("respond = %d, body %s", rec.Code, rec.Body.String())
	}

	// The token link responds without identity.
	m, err := deps.GetDeps().Meetings.GetMeeting(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	token := m.ParticipantFor("bob").ResponseToken
	rec = do(t, http.MethodPost, "/respond/"+token, "", api.RespondRequest{Status: store.ParticipantDeclined})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("respond by token = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, http.MethodPost, "/respond/bogus", "", api.RespondRequest{Status: store.ParticipantAccepted})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bogus token = %d, want 404", rec.Code)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	created := do(t, http.MethodPost, "/meetings", "carol", api.CreateMeetingRequest{
		Title: "focus", Start: at(9, 0), End: at(10, 0), RoomID: "r5",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("seed create = %d", created.Code)
	}

	rec := do(t, http.MethodPost, "/suggestions", "", api.SuggestRequest{
		ParticipantIDs:  []string{"carol"},
		RangeStart:      at(9, 0),
		RangeEnd:        at(12, 0),
		DurationMinutes: 30,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("suggest = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.SuggestResponse](t, rec)
	if len(resp.Slots) == 0 {
		t.Fatal("no slots returned")
	}
	if !resp.Slots[0].Start.Equal(at(10, 0)) {
		t.Errorf("first slot = %+v, want start 10:00", resp.Slots[0])
	}

	rec = do(t, http.MethodPost, "/suggestions", "", api.SuggestRequest{
		RangeStart: at(9, 0), RangeEnd: at(12, 0), DurationMinutes: 30,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("suggest without users = %d, want 400", rec.Code)
	}
}

func TestListRooms(t *testing.T) {
	rec := do(t, http.MethodGet, "/rooms", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rooms = %d", rec.Code)
	}
	resp := decode[map[string][]store.Room](t, rec)
	if len(resp["rooms"]) < 6 {
		t.Errorf("rooms = %d, want at least 6", len(resp["rooms"]))
	}
}

func TestListRoomsServedFromCache(t *testing.T) {
	rec := do(t, http.MethodGet, "/rooms", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rooms = %d", rec.Code)
	}
	before := len(decode[map[string][]store.Room](t, rec)["rooms"])

	// A room provisioned mid-window is not visible until the cached
	// listing expires.
	err := deps.GetDeps().Rooms.CreateRoom(context.Background(), &store.Room{
		ID: "r-annex", Name: "Annex",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec = do(t, http.MethodGet, "/rooms", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rooms = %d", rec.Code)
	}
	after := len(decode[map[string][]store.Room](t, rec)["rooms"])
	if after != before {
		t.Errorf("listing changed inside the cache window: %d then %d", before, after)
	}
}
