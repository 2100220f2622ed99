package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/schedule"
	"github.com/campusops/roomclerk/internal/store"
)

// requesterHeader identifies the acting user. Authentication itself is
// the perimeter's concern; the engine only needs the identity.
const requesterHeader = "X-User-ID"

// ParticipantView is the public view of a participant. The response
// token is deliberately never serialized.
type ParticipantView struct {
	UserID string                  `json:"userId"`
	Status store.ParticipantStatus `json:"status"`
}

// MeetingView is the public view of a meeting.
type MeetingView struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Status       store.MeetingStatus `json:"status"`
	CheckedIn    bool                `json:"checkedIn"`
	CancelReason string              `json:"cancelReason,omitempty"`
	SeriesID     string              `json:"seriesId,omitempty"`
	GuestEmails  []string            `json:"guestEmails,omitempty"`
	DeviceIDs    []string            `json:"deviceIds,omitempty"`
	RoomID       string              `json:"roomId"`
	OrganizerID  string              `json:"organizerId"`
	Participants []ParticipantView   `json:"participants"`
}

func meetingView(m *store.Meeting) MeetingView {
	v := MeetingView{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Start:        m.StartTime,
		End:          m.EndTime,
		Status:       m.Status,
		CheckedIn:    m.CheckedIn,
		CancelReason: m.CancelReason,
		SeriesID:     m.SeriesID,
		GuestEmails:  m.GuestEmails,
		DeviceIDs:    m.DeviceIDs,
		RoomID:       m.RoomID,
		OrganizerID:  m.OrganizerID,
	}
	for _, p := range m.Participants {
		v.Participants = append(v.Participants, ParticipantView{UserID: p.UserID, Status: p.Status})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(requesterHeader)
	if id == "" {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "missing "+requesterHeader+" header")
		return "", false
	}
	return id, true
}

// CreateMeetingRequest is the body for POST /meetings.
type CreateMeetingRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	RoomID         string    `json:"roomId"`
	ParticipantIDs []string  `json:"participantIds"`
	DeviceIDs      []string  `json:"deviceIds"`
	GuestEmails    []string  `json:"guestEmails"`
	SeriesID       string    `json:"seriesId"`
}

func (s *Svc) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}

	m, err := s.deps.Booking.Create(r.Context(), booking.CreateRequest{
		Title:          req.Title,
		Description:    req.Description,
		Start:          req.Start,
		End:            req.End,
		RoomID:         req.RoomID,
		OrganizerID:    userID,
		CreatorID:      userID,
		ParticipantIDs: req.ParticipantIDs,
		DeviceIDs:      req.DeviceIDs,
		GuestEmails:    req.GuestEmails,
		SeriesID:       req.SeriesID,
	})
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meetingView(m))
}

func (s *Svc) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Meetings.GetMeeting(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingView(m))
}

// UpdateMeetingRequest is the body for PUT /meetings/{meetingID}.
type UpdateMeetingRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	RoomID         string    `json:"roomId"`
	ParticipantIDs []string  `json:"participantIds"`
}

func (s *Svc) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req UpdateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}

	m, err := s.deps.Booking.Update(r.Context(), chi.URLParam(r, "meetingID"), booking.UpdateRequest{
		Title:          req.Title,
		Description:    req.Description,
		Start:          req.Start,
		End:            req.End,
		RoomID:         req.RoomID,
		ParticipantIDs: req.ParticipantIDs,
	}, userID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingView(m))
}

// ReasonRequest carries a cancellation or rejection reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Svc) handleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Booking.Cancel(r.Context(), chi.URLParam(r, "meetingID"), userID, req.Reason); err != nil {
		WriteEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Svc) handleCancelSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	cancelled, err := s.deps.Booking.CancelSeries(r.Context(), chi.URLParam(r, "seriesID"), userID, req.Reason)
	if err != nil && cancelled == 0 {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}

func (s *Svc) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	if err := s.deps.Booking.CheckIn(r.Context(), chi.URLParam(r, "meetingID"), userID); err != nil {
		WriteEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Svc) handleApprove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	m, err := s.deps.Booking.Approve(r.Context(), chi.URLParam(r, "meetingID"), userID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingView(m))
}

func (s *Svc) handleReject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Booking.Reject(r.Context(), chi.URLParam(r, "meetingID"), userID, req.Reason); err != nil {
		WriteEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RespondRequest carries a participant response.
type RespondRequest struct {
	Status store.ParticipantStatus `json:"status"`
}

func (s *Svc) handleRespond(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Booking.RespondToInvitation(r.Context(), chi.URLParam(r, "meetingID"), userID, req.Status); err != nil {
		WriteEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Svc) handleRespondByToken(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Booking.RespondByToken(r.Context(), chi.URLParam(r, "token"), req.Status); err != nil {
		WriteEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestRequest is the body for POST /suggestions.
type SuggestRequest struct {
	ParticipantIDs  []string  `json:"participantIds"`
	RangeStart      time.Time `json:"rangeStart"`
	RangeEnd        time.Time `json:"rangeEnd"`
	DurationMinutes int       `json:"durationMinutes"`
}

// SuggestResponse wraps the free slots for a suggestion query.
type SuggestResponse struct {
	Slots []schedule.TimeSlot `json:"slots"`
}

func (s *Svc) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	slots, err := s.deps.Suggest.Suggest(r.Context(), req.ParticipantIDs,
		req.RangeStart, req.RangeEnd, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	if s.settings.MaxSuggestions > 0 && len(slots) > s.settings.MaxSuggestions {
		slots = slots[:s.settings.MaxSuggestions]
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Slots: slots})
}

func (s *Svc) handleListRooms(w http.ResponseWriter, r *http.Request) {
	s.serveDirectory(w, r, "directory:rooms", func(ctx context.Context) (any, error) {
		rooms, err := s.deps.Rooms.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"rooms": rooms}, nil
	})
}

func (s *Svc) handleListDevices(w http.ResponseWriter, r *http.Request) {
	s.serveDirectory(w, r, "directory:devices", func(ctx context.Context) (any, error) {
		devices, err := s.deps.Devices.ListDevices(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"devices": devices}, nil
	})
}

// serveDirectory answers near-static listing endpoints from the
// directory cache, filling it on a miss.
func (s *Svc) serveDirectory(w http.ResponseWriter, r *http.Request, key string, fetch func(ctx context.Context) (any, error)) {
	if body, err := s.directory.Get(r.Context(), key); err == nil {
		writeRawJSON(w, http.StatusOK, body)
		return
	}
	payload, err := fetch(r.Context())
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ReasonInternalError, "failed to encode response")
		return
	}
	if err := s.directory.Set(r.Context(), key, body, s.dirTTL); err != nil {
		s.log.Warn("directory cache set failed", "key", key, "error", err)
	}
	writeRawJSON(w, http.StatusOK, body)
}
