// Package memory implements an in-memory persistence driver, used in
// tests and for single-process deployments without durability needs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/roomclerk/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// Driver implements the store interfaces with process-local maps.
// Meetings are deep-copied across the boundary so callers can stage
// changes on a fetched meeting without mutating committed state.
type Driver struct {
	mu       sync.RWMutex
	closed   bool
	meetings map[string]*store.Meeting
	byToken  map[string]string // response token -> meeting id
	rooms    map[string]*store.Room
	users    map[string]*store.User
	devices  map[string]*store.Device
}

// NewDriver creates a new in-memory driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	return &Driver{
		meetings: make(map[string]*store.Meeting),
		byToken:  make(map[string]string),
		rooms:    make(map[string]*store.Room),
		users:    make(map[string]*store.User),
		devices:  make(map[string]*store.Device),
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string { return "memory" }

// Init is a no-op for the memory driver.
func (d *Driver) Init(ctx context.Context) error { return nil }

// Close marks the driver closed; subsequent operations fail.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func cloneMeeting(m *store.Meeting) *store.Meeting {
	c := *m
	c.Participants = make([]store.Participant, len(m.Participants))
	copy(c.Participants, m.Participants)
	c.GuestEmails = append([]string(nil), m.GuestEmails...)
	c.DeviceIDs = append([]string(nil), m.DeviceIDs...)
	return &c
}

// overlapLocked reports a strict-overlap CONFIRMED conflict in the room.
// Caller holds at least a read lock.
func (d *Driver) overlapLocked(roomID string, start, end time.Time, excludeID string) bool {
	for _, m := range d.meetings {
		if m.ID == excludeID || m.RoomID != roomID || m.Status != store.MeetingConfirmed {
			continue
		}
		if m.StartTime.Before(end) && m.EndTime.After(start) {
			return true
		}
	}
	return false
}

func (d *Driver) CreateMeeting(ctx context.Context, m *store.Meeting) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if _, ok := d.meetings[m.ID]; ok {
		return store.ErrAlreadyExists
	}
	// Conflict backstop: check and insert under the same lock.
	if m.Status == store.MeetingConfirmed && d.overlapLocked(m.RoomID, m.StartTime, m.EndTime, "") {
		return store.ErrRoomBusy
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	stored := cloneMeeting(m)
	d.meetings[stored.ID] = stored
	for _, p := range stored.Participants {
		if p.ResponseToken != "" {
			d.byToken[p.ResponseToken] = stored.ID
		}
	}
	return nil
}

func (d *Driver) GetMeeting(ctx context.Context, id string) (*store.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	m, ok := d.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (d *Driver) GetMeetingByResponseToken(ctx context.Context, token string) (*store.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	id, ok := d.byToken[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	m, ok := d.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (d *Driver) UpdateMeeting(ctx context.Context, m *store.Meeting) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	prev, ok := d.meetings[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	if m.Status == store.MeetingConfirmed && d.overlapLocked(m.RoomID, m.StartTime, m.EndTime, m.ID) {
		return store.ErrRoomBusy
	}
	m.UpdatedAt = time.Now()

	for _, p := range prev.Participants {
		if p.ResponseToken != "" {
			delete(d.byToken, p.ResponseToken)
		}
	}
	stored := cloneMeeting(m)
	d.meetings[stored.ID] = stored
	for _, p := range stored.Participants {
		if p.ResponseToken != "" {
			d.byToken[p.ResponseToken] = stored.ID
		}
	}
	return nil
}

func (d *Driver) IsRoomOverlap(ctx context.Context, roomID string, start, end time.Time, excludeMeetingID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false, store.ErrClosed
	}
	return d.overlapLocked(roomID, start, end, excludeMeetingID), nil
}

func (d *Driver) FindByParticipant(ctx context.Context, userIDs []string, start, end time.Time) ([]*store.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	var result []*store.Meeting
	for _, m := range d.meetings {
		if m.Status != store.MeetingConfirmed {
			continue
		}
		if !m.StartTime.Before(end) || !m.EndTime.After(start) {
			continue
		}
		involved := wanted[m.OrganizerID]
		if !involved {
			for _, p := range m.Participants {
				if wanted[p.UserID] {
					involved = true
					break
				}
			}
		}
		if involved {
			result = append(result, cloneMeeting(m))
		}
	}
	sortMeetings(result)
	return result, nil
}

func (d *Driver) FindUnchecked(ctx context.Context, cutoff time.Time) ([]*store.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	var result []*store.Meeting
	for _, m := range d.meetings {
		if m.Status == store.MeetingConfirmed && !m.CheckedIn && m.StartTime.Before(cutoff) {
			result = append(result, cloneMeeting(m))
		}
	}
	sortMeetings(result)
	return result, nil
}

func (d *Driver) FindBySeriesID(ctx context.Context, seriesID string) ([]*store.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	var result []*store.Meeting
	for _, m := range d.meetings {
		if m.SeriesID != "" && m.SeriesID == seriesID {
			result = append(result, cloneMeeting(m))
		}
	}
	sortMeetings(result)
	return result, nil
}

// sortMeetings orders by start time for deterministic query results.
func sortMeetings(ms []*store.Meeting) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].StartTime.Equal(ms[j].StartTime) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].StartTime.Before(ms[j].StartTime)
	})
}

func (d *Driver) CreateRoom(ctx context.Context, r *store.Room) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if _, ok := d.rooms[r.ID]; ok {
		return store.ErrAlreadyExists
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	d.rooms[r.ID] = &cp
	return nil
}

func (d *Driver) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	r, ok := d.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (d *Driver) ListRooms(ctx context.Context) ([]*store.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	result := make([]*store.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (d *Driver) CreateUser(ctx context.Context, u *store.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if _, ok := d.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	d.users[u.ID] = &cp
	return nil
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *Driver) CreateDevice(ctx context.Context, dev *store.Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if dev.ID == "" {
		dev.ID = uuid.New().String()
	}
	if _, ok := d.devices[dev.ID]; ok {
		return store.ErrAlreadyExists
	}
	if dev.CreatedAt.IsZero() {
		dev.CreatedAt = time.Now()
	}
	cp := *dev
	d.devices[dev.ID] = &cp
	return nil
}

func (d *Driver) GetDevice(ctx context.Context, id string) (*store.Device, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	dev, ok := d.devices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *dev
	return &cp, nil
}

func (d *Driver) ListDevices(ctx context.Context) ([]*store.Device, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	result := make([]*store.Device, 0, len(d.devices))
	for _, dev := range d.devices {
		cp := *dev
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.MeetingStore = (*Driver)(nil)
var _ store.RoomStore = (*Driver)(nil)
var _ store.UserStore = (*Driver)(nil)
var _ store.DeviceStore = (*Driver)(nil)
