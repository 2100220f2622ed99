// Package booking implements the meeting lifecycle: creation, update,
// cancellation, check-in, approval, and participant responses.
//
// States: CONFIRMED, CANCELLED, PENDING, PENDING_APPROVAL, REJECTED.
// CANCELLED and REJECTED are terminal; meetings are never deleted.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/roomclerk/internal/availability"
	"github.com/campusops/roomclerk/internal/events"
	"github.com/campusops/roomclerk/internal/platform/clock"
	"github.com/campusops/roomclerk/internal/platform/logutil"
	"github.com/campusops/roomclerk/internal/store"
)

// DefaultCheckinWindow bounds when CheckIn is accepted relative to the
// scheduled start.
const DefaultCheckinWindow = 15 * time.Minute

// SystemCancelReason is attached to cancellations issued by the
// reconciliation sweep.
const SystemCancelReason = "auto-cancelled: no check-in"

// Config holds the service dependencies.
type Config struct {
	Meetings  store.MeetingStore
	Rooms     store.RoomStore
	Users     store.UserStore
	Devices   store.DeviceStore
	Publisher events.Publisher
	Clock     clock.Clock
	Logger    *slog.Logger

	// CheckinWindow is how far from the scheduled start a check-in is
	// accepted, on either side. Zero means DefaultCheckinWindow.
	CheckinWindow time.Duration
}

// Service owns all meeting mutations. Reads go through the availability
// checker it shares with the suggestion engine.
type Service struct {
	meetings      store.MeetingStore
	rooms         store.RoomStore
	users         store.UserStore
	devices       store.DeviceStore
	avail         *availability.Checker
	pub           events.Publisher
	clk           clock.Clock
	logger        *slog.Logger
	checkinWindow time.Duration
}

// NewService creates a Service. Devices, Publisher, Clock, and Logger
// may be nil; a nil Devices store skips equipment validation.
func NewService(cfg Config) *Service {
	pub := cfg.Publisher
	if pub == nil {
		pub = events.Nop{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System()
	}
	window := cfg.CheckinWindow
	if window <= 0 {
		window = DefaultCheckinWindow
	}
	return &Service{
		meetings:      cfg.Meetings,
		rooms:         cfg.Rooms,
		users:         cfg.Users,
		devices:       cfg.Devices,
		avail:         availability.NewChecker(cfg.Meetings),
		pub:           pub,
		clk:           clk,
		logger:        logutil.NoopIfNil(cfg.Logger),
		checkinWindow: window,
	}
}

// Availability exposes the checker the service consults, for read-only
// consumers (the suggestion engine).
func (s *Service) Availability() *availability.Checker {
	return s.avail
}

// CreateRequest carries the attributes of a new booking.
type CreateRequest struct {
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	RoomID         string
	OrganizerID    string
	CreatorID      string
	ParticipantIDs []string
	DeviceIDs      []string
	GuestEmails    []string
	SeriesID       string
}

// Create books a meeting. Both timestamps must be strictly in the
// future. The organizer is auto-added as an ACCEPTED participant with no
// response token; every other distinct participant starts PENDING with a
// fresh token. Rooms flagged as requiring approval yield a
// PENDING_APPROVAL meeting instead of CONFIRMED.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*store.Meeting, error) {
	now := s.clk.Now()

	errs := &ValidationErrors{}
	if req.Title == "" {
		errs.Add("title", "required field missing")
	}
	if req.RoomID == "" {
		errs.Add("roomId", "required field missing")
	}
	if req.OrganizerID == "" {
		errs.Add("organizerId", "required field missing")
	}
	validateWindow(errs, req.Start, req.End, now, true)
	validateGuestEmails(errs, req.GuestEmails)
	if errs.HasErrors() {
		return nil, errs
	}

	room, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("room %q: %w", req.RoomID, store.ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, req.OrganizerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %q: %w", req.OrganizerID, store.ErrNotFound)
		}
		return nil, err
	}
	for _, userID := range req.ParticipantIDs {
		if userID == req.OrganizerID {
			continue
		}
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("user %q: %w", userID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	if s.devices != nil {
		for _, deviceID := range req.DeviceIDs {
			if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("device %q: %w", deviceID, store.ErrNotFound)
				}
				return nil, err
			}
		}
	}

	busy, err := s.avail.IsRoomBusy(ctx, req.RoomID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, &ConflictError{RoomID: req.RoomID, Start: req.Start, End: req.End}
	}

	status := store.MeetingConfirmed
	if room.RequiresApproval {
		status = store.MeetingPendingApproval
	}
	creator := req.CreatorID
	if creator == "" {
		creator = req.OrganizerID
	}

	m := &store.Meeting{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.Start,
		EndTime:     req.End,
		Status:      status,
		SeriesID:    req.SeriesID,
		GuestEmails: req.GuestEmails,
		DeviceIDs:   req.DeviceIDs,
		RoomID:      req.RoomID,
		OrganizerID: req.OrganizerID,
		CreatorID:   creator,
	}
	m.Participants = buildParticipants(m.ID, req.OrganizerID, req.ParticipantIDs, nil)

	if err := s.meetings.CreateMeeting(ctx, m); err != nil {
		if errors.Is(err, store.ErrRoomBusy) {
			// Lost the race between the optimistic check and the write.
			return nil, &ConflictError{RoomID: req.RoomID, Start: req.Start, End: req.End}
		}
		return nil, err
	}

	s.pub.Publish(events.Event{
		Type:        events.MeetingCreated,
		MeetingID:   m.ID,
		RoomID:      m.RoomID,
		OrganizerID: m.OrganizerID,
		OccurredAt:  now,
	})
	s.logger.Info("meeting created",
		"meeting_id", m.ID, "room_id", m.RoomID, "status", m.Status,
		"start", m.StartTime, "end", m.EndTime)
	return m, nil
}

// buildParticipants assembles the participant set for a meeting. The
// organizer is always ACCEPTED with no token. prior, when non-nil, is
// consulted so retained users keep their response state and token; only
// genuinely new users start PENDING with a fresh token.
func buildParticipants(meetingID, organizerID string, userIDs []string, prior []store.Participant) []store.Participant {
	byUser := make(map[string]store.Participant, len(prior))
	for _, p := range prior {
		byUser[p.UserID] = p
	}

	participants := []store.Participant{{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		UserID:    organizerID,
		Status:    store.ParticipantAccepted,
	}}
	if org, ok := byUser[organizerID]; ok {
		participants[0].ID = org.ID
	}

	seen := map[string]bool{organizerID: true}
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		if p, ok := byUser[userID]; ok {
			participants = append(participants, p)
			continue
		}
		participants = append(participants, store.Participant{
			ID:            uuid.New().String(),
			MeetingID:     meetingID,
			UserID:        userID,
			Status:        store.ParticipantPending,
			ResponseToken: uuid.New().String(),
		})
	}
	return participants
}

// UpdateRequest carries the replacement attributes for a meeting.
type UpdateRequest struct {
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	RoomID         string
	ParticipantIDs []string
}

// Update replaces a meeting's title, description, window, room, and
// participant set. Only the organizer may update; cancelled meetings and
// meetings already started are immutable. A move within the meeting's
// own slot is never rejected as self-conflicting. Retained participants
// keep their responses.
func (s *Service) Update(ctx context.Context, meetingID string, req UpdateRequest, requesterID string) (*store.Meeting, error) {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != requesterID {
		return nil, &PolicyError{Reason: "only the organizer may update a meeting"}
	}
	if m.Status.Terminal() {
		return nil, &StateError{MeetingID: m.ID, Status: m.Status, Reason: "already in a terminal state"}
	}
	now := s.clk.Now()
	if !m.StartTime.After(now) {
		return nil, &PolicyError{Reason: "meeting has already started"}
	}

	errs := &ValidationErrors{}
	if req.Title == "" {
		errs.Add("title", "required field missing")
	}
	if req.RoomID == "" {
		errs.Add("roomId", "required field missing")
	}
	validateWindow(errs, req.Start, req.End, now, false)
	if errs.HasErrors() {
		return nil, errs
	}

	if req.RoomID != m.RoomID {
		if _, err := s.rooms.GetRoom(ctx, req.RoomID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("room %q: %w", req.RoomID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	busy, err := s.avail.IsRoomBusyExcluding(ctx, req.RoomID, req.Start, req.End, m.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, &ConflictError{RoomID: req.RoomID, Start: req.Start, End: req.End, MeetingID: m.ID}
	}

	m.Title = req.Title
	m.Description = req.Description
	m.StartTime = req.Start
	m.EndTime = req.End
	m.RoomID = req.RoomID
	m.Participants = buildParticipants(m.ID, m.OrganizerID, req.ParticipantIDs, m.Participants)

	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		if errors.Is(err, store.ErrRoomBusy) {
			return nil, &ConflictError{RoomID: req.RoomID, Start: req.Start, End: req.End, MeetingID: m.ID}
		}
		return nil, err
	}

	s.pub.Publish(events.Event{
		Type:        events.MeetingUpdated,
		MeetingID:   m.ID,
		RoomID:      m.RoomID,
		OrganizerID: m.OrganizerID,
		OccurredAt:  now,
	})
	s.logger.Info("meeting updated", "meeting_id", m.ID, "room_id", m.RoomID)
	return m, nil
}

// Cancel cancels a meeting on behalf of its organizer. The reason must
// be non-blank; a meeting that is already terminal or has already
// started cannot be cancelled by a user.
func (s *Service) Cancel(ctx context.Context, meetingID, requesterID, reason string) error {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.OrganizerID != requesterID {
		return &PolicyError{Reason: "only the organizer may cancel a meeting"}
	}
	if m.Status.Terminal() {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "already in a terminal state"}
	}
	if !m.StartTime.After(s.clk.Now()) {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "meeting has already started"}
	}
	if reason == "" {
		errs := &ValidationErrors{}
		errs.Add("reason", "required field missing")
		return errs
	}
	return s.cancel(ctx, m, reason)
}

// SystemCancel cancels a meeting with system authority, bypassing the
// organizer-only and not-yet-started checks. Used by the reconciliation
// sweep for ghost meetings.
func (s *Service) SystemCancel(ctx context.Context, meetingID, reason string) error {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.Status.Terminal() {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "already in a terminal state"}
	}
	if reason == "" {
		reason = SystemCancelReason
	}
	return s.cancel(ctx, m, reason)
}

func (s *Service) cancel(ctx context.Context, m *store.Meeting, reason string) error {
	now := s.clk.Now()
	m.Status = store.MeetingCancelled
	m.CancelReason = reason
	m.CancelledAt = &now

	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		return err
	}
	s.pub.Publish(events.Event{
		Type:        events.MeetingCancelled,
		MeetingID:   m.ID,
		RoomID:      m.RoomID,
		OrganizerID: m.OrganizerID,
		Reason:      reason,
		OccurredAt:  now,
	})
	s.logger.Info("meeting cancelled", "meeting_id", m.ID, "reason", reason)
	return nil
}

// CancelSeries cancels every future CONFIRMED instance of a recurring
// series. Per-instance failures are logged and skipped so one bad
// record does not block the rest; the aggregate error is returned
// alongside the number of instances actually cancelled.
func (s *Service) CancelSeries(ctx context.Context, seriesID, requesterID, reason string) (int, error) {
	if reason == "" {
		errs := &ValidationErrors{}
		errs.Add("reason", "required field missing")
		return 0, errs
	}
	instances, err := s.meetings.FindBySeriesID(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	if len(instances) == 0 {
		return 0, fmt.Errorf("series %q: %w", seriesID, store.ErrNotFound)
	}

	now := s.clk.Now()
	cancelled := 0
	var failures error
	for _, m := range instances {
		if m.Status != store.MeetingConfirmed || !m.StartTime.After(now) {
			continue
		}
		if m.OrganizerID != requesterID {
			return cancelled, &PolicyError{Reason: "only the organizer may cancel a series"}
		}
		if err := s.cancel(ctx, m, reason); err != nil {
			s.logger.Warn("series instance cancellation failed",
				"series_id", seriesID, "meeting_id", m.ID, "error", err)
			failures = errors.Join(failures, fmt.Errorf("meeting %s: %w", m.ID, err))
			continue
		}
		cancelled++
	}
	return cancelled, failures
}

// CheckIn marks a CONFIRMED meeting as attended. Only the organizer or
// a participant may check in, exactly once, within the configured window
// around the scheduled start.
func (s *Service) CheckIn(ctx context.Context, meetingID, requesterID string) error {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.OrganizerID != requesterID && m.ParticipantFor(requesterID) == nil {
		return &PolicyError{Reason: "requester is not part of this meeting"}
	}
	if m.Status != store.MeetingConfirmed {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "only confirmed meetings accept check-in"}
	}
	if m.CheckedIn {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "already checked in"}
	}
	now := s.clk.Now()
	if now.Before(m.StartTime.Add(-s.checkinWindow)) || !now.Before(m.StartTime.Add(s.checkinWindow)) {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "outside the check-in window"}
	}

	m.CheckedIn = true
	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		return err
	}
	s.logger.Info("meeting checked in", "meeting_id", m.ID, "user_id", requesterID)
	return nil
}

// Approve confirms a PENDING_APPROVAL meeting. Only admins may approve;
// the room-conflict check is re-run because other bookings may have
// landed while approval was pending.
func (s *Service) Approve(ctx context.Context, meetingID, adminID string) (*store.Meeting, error) {
	admin, err := s.users.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, &PolicyError{Reason: "approval requires an admin"}
	}
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MeetingPendingApproval {
		return nil, &StateError{MeetingID: m.ID, Status: m.Status, Reason: "not awaiting approval"}
	}

	busy, err := s.avail.IsRoomBusy(ctx, m.RoomID, m.StartTime, m.EndTime)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, &ConflictError{RoomID: m.RoomID, Start: m.StartTime, End: m.EndTime, MeetingID: m.ID}
	}

	m.Status = store.MeetingConfirmed
	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		if errors.Is(err, store.ErrRoomBusy) {
			return nil, &ConflictError{RoomID: m.RoomID, Start: m.StartTime, End: m.EndTime, MeetingID: m.ID}
		}
		return nil, err
	}
	s.pub.Publish(events.Event{
		Type:        events.MeetingApproved,
		MeetingID:   m.ID,
		RoomID:      m.RoomID,
		OrganizerID: m.OrganizerID,
		OccurredAt:  s.clk.Now(),
	})
	s.logger.Info("meeting approved", "meeting_id", m.ID, "admin_id", adminID)
	return m, nil
}

// Reject declines a PENDING_APPROVAL meeting with an optional reason.
// REJECTED is terminal.
func (s *Service) Reject(ctx context.Context, meetingID, adminID, reason string) error {
	admin, err := s.users.GetUser(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin {
		return &PolicyError{Reason: "rejection requires an admin"}
	}
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.Status != store.MeetingPendingApproval {
		return &StateError{MeetingID: m.ID, Status: m.Status, Reason: "not awaiting approval"}
	}

	m.Status = store.MeetingRejected
	m.RejectReason = reason
	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		return err
	}
	s.pub.Publish(events.Event{
		Type:        events.MeetingRejected,
		MeetingID:   m.ID,
		RoomID:      m.RoomID,
		OrganizerID: m.OrganizerID,
		Reason:      reason,
		OccurredAt:  s.clk.Now(),
	})
	s.logger.Info("meeting rejected", "meeting_id", m.ID, "admin_id", adminID)
	return nil
}

// RespondToInvitation records an authenticated participant's response.
// PENDING cannot be re-entered: responses are forward-only.
func (s *Service) RespondToInvitation(ctx context.Context, meetingID, userID string, newStatus store.ParticipantStatus) error {
	if err := validateResponse(newStatus); err != nil {
		return err
	}
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	p := m.ParticipantFor(userID)
	if p == nil {
		return &PolicyError{Reason: "user is not invited to this meeting"}
	}
	p.Status = newStatus
	if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
		return err
	}
	s.logger.Info("invitation response recorded",
		"meeting_id", m.ID, "user_id", userID, "status", newStatus)
	return nil
}

// RespondByToken records a response resolved via the unguessable
// per-participant token, enabling unauthenticated email-link responses.
func (s *Service) RespondByToken(ctx context.Context, token string, newStatus store.ParticipantStatus) error {
	if err := validateResponse(newStatus); err != nil {
		return err
	}
	// The organizer's row carries no token; an empty one must never match.
	if token == "" {
		return fmt.Errorf("response token: %w", store.ErrNotFound)
	}
	m, err := s.meetings.GetMeetingByResponseToken(ctx, token)
	if err != nil {
		return err
	}
	for i := range m.Participants {
		if m.Participants[i].ResponseToken == token {
			m.Participants[i].Status = newStatus
			if err := s.meetings.UpdateMeeting(ctx, m); err != nil {
				return err
			}
			s.logger.Info("token response recorded",
				"meeting_id", m.ID, "status", newStatus)
			return nil
		}
	}
	return fmt.Errorf("response token: %w", store.ErrNotFound)
}

func validateResponse(newStatus store.ParticipantStatus) error {
	switch newStatus {
	case store.ParticipantAccepted, store.ParticipantDeclined:
		return nil
	}
	errs := &ValidationErrors{}
	errs.Add("status", fmt.Sprintf("must be %s or %s", store.ParticipantAccepted, store.ParticipantDeclined))
	return errs
}
