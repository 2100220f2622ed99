// Package store provides persistence primitives and driver abstractions
// for the scheduling engine.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRoomBusy      = errors.New("room busy")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite).
	Name() string
}

// MeetingStore defines operations for meeting persistence. It is the
// query/write port the engine talks to.
//
// CreateMeeting and UpdateMeeting re-run the room-overlap check inside
// the driver's own transaction boundary and return ErrRoomBusy when a
// CONFIRMED meeting already occupies the window. This is the storage-level
// backstop behind the engine's own conflict check, so two concurrent
// creations in the same room cannot both succeed.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *Meeting) error
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	GetMeetingByResponseToken(ctx context.Context, token string) (*Meeting, error)
	UpdateMeeting(ctx context.Context, m *Meeting) error

	// IsRoomOverlap reports whether a CONFIRMED meeting in the room
	// strictly overlaps [start, end). Touching boundaries do not count.
	// excludeMeetingID, when non-empty, exempts that meeting from the
	// check (used when a meeting is moved within its own slot).
	IsRoomOverlap(ctx context.Context, roomID string, start, end time.Time, excludeMeetingID string) (bool, error)

	// FindByParticipant returns CONFIRMED meetings overlapping
	// [start, end) where any of the given users is organizer or
	// participant.
	FindByParticipant(ctx context.Context, userIDs []string, start, end time.Time) ([]*Meeting, error)

	// FindUnchecked returns CONFIRMED, not-checked-in meetings whose
	// start time is before the cutoff.
	FindUnchecked(ctx context.Context, cutoff time.Time) ([]*Meeting, error)

	FindBySeriesID(ctx context.Context, seriesID string) ([]*Meeting, error)
}

// RoomStore defines operations for room catalog persistence.
type RoomStore interface {
	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context) ([]*Room, error)
}

// UserStore defines operations for user account persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
}

// DeviceStore defines operations for reservable equipment persistence.
type DeviceStore interface {
	CreateDevice(ctx context.Context, d *Device) error
	GetDevice(ctx context.Context, id string) (*Device, error)
	ListDevices(ctx context.Context) ([]*Device, error)
}

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingConfirmed       MeetingStatus = "confirmed"
	MeetingCancelled       MeetingStatus = "cancelled"
	MeetingPending         MeetingStatus = "pending"
	MeetingPendingApproval MeetingStatus = "pending_approval"
	MeetingRejected        MeetingStatus = "rejected"
)

// Terminal reports whether no further status transition is allowed.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingCancelled || s == MeetingRejected
}

// ParticipantStatus is the per-participant response state.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
)

// Meeting is a room booking. Room, user, and device references are weak
// (ids only); cancellation is the terminal non-destructive state, rows
// are never deleted.
type Meeting struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	StartTime    time.Time     `json:"start_time" gorm:"index"`
	EndTime      time.Time     `json:"end_time"`
	Status       MeetingStatus `json:"status" gorm:"index"`
	CheckedIn    bool          `json:"checked_in"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	RejectReason string        `json:"reject_reason,omitempty"`
	SeriesID     string        `json:"series_id,omitempty" gorm:"index"`
	GuestEmails  []string      `json:"guest_emails,omitempty" gorm:"serializer:json"`
	DeviceIDs    []string      `json:"device_ids,omitempty" gorm:"serializer:json"`
	RoomID       string        `json:"room_id" gorm:"index"`
	OrganizerID  string        `json:"organizer_id" gorm:"index"`
	CreatorID    string        `json:"creator_id"`
	Participants []Participant `json:"participants" gorm:"foreignKey:MeetingID"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Participant is one invited user on one meeting. Exactly one record
// exists per (meeting, user) pair. The organizer's record carries no
// response token and is ACCEPTED from creation.
type Participant struct {
	ID            string            `json:"id" gorm:"primaryKey"`
	MeetingID     string            `json:"meeting_id" gorm:"index"`
	UserID        string            `json:"user_id" gorm:"index"`
	Status        ParticipantStatus `json:"status"`
	ResponseToken string            `json:"response_token,omitempty" gorm:"index"`
}

// ParticipantFor returns the participant record for a user, or nil.
func (m *Meeting) ParticipantFor(userID string) *Participant {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i]
		}
	}
	return nil
}

// Room is a meeting room catalog entry.
type Room struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	Capacity         int       `json:"capacity"`
	RequiresApproval bool      `json:"requires_approval"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// User is an account reference for organizers and participants.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Device is reservable equipment (projector, conference phone, ...).
type Device struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
