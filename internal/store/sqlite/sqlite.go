// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusops/roomclerk/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store interfaces using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{
		dataDir: cfg.DataDir,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "roomclerk.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.Meeting{},
		&store.Participant{},
		&store.Room{},
		&store.User{},
		&store.Device{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MeetingStore implementation

// overlapTx reports a strict-overlap CONFIRMED conflict inside tx.
func overlapTx(tx *gorm.DB, roomID string, start, end time.Time, excludeID string) (bool, error) {
	var count int64
	q := tx.Model(&store.Meeting{}).
		Where("room_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			roomID, store.MeetingConfirmed, end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateMeeting inserts a meeting and its participants. The conflict
// check and the insert share one transaction, so a concurrent creation
// in the same window fails with ErrRoomBusy instead of double-booking.
func (d *Driver) CreateMeeting(ctx context.Context, m *store.Meeting) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.Status == store.MeetingConfirmed {
			busy, err := overlapTx(tx, m.RoomID, m.StartTime, m.EndTime, "")
			if err != nil {
				return err
			}
			if busy {
				return store.ErrRoomBusy
			}
		}
		return tx.Create(m).Error
	})
}

// GetMeeting retrieves a meeting by id, with participants.
func (d *Driver) GetMeeting(ctx context.Context, id string) (*store.Meeting, error) {
	var m store.Meeting
	result := d.db.WithContext(ctx).Preload("Participants").First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &m, nil
}

// GetMeetingByResponseToken resolves a participant response token to its
// meeting.
func (d *Driver) GetMeetingByResponseToken(ctx context.Context, token string) (*store.Meeting, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	var p store.Participant
	result := d.db.WithContext(ctx).First(&p, "response_token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return d.GetMeeting(ctx, p.MeetingID)
}

// UpdateMeeting saves a meeting and replaces its participant rows. The
// overlap re-check excludes the meeting itself so a no-op move is never
// rejected.
func (d *Driver) UpdateMeeting(ctx context.Context, m *store.Meeting) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing store.Meeting
		if err := tx.First(&existing, "id = ?", m.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		if m.Status == store.MeetingConfirmed {
			busy, err := overlapTx(tx, m.RoomID, m.StartTime, m.EndTime, m.ID)
			if err != nil {
				return err
			}
			if busy {
				return store.ErrRoomBusy
			}
		}
		if err := tx.Omit("Participants").Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("meeting_id = ?", m.ID).Delete(&store.Participant{}).Error; err != nil {
			return err
		}
		if len(m.Participants) == 0 {
			return nil
		}
		return tx.Create(&m.Participants).Error
	})
}

// IsRoomOverlap reports whether a CONFIRMED meeting in the room strictly
// overlaps [start, end).
func (d *Driver) IsRoomOverlap(ctx context.Context, roomID string, start, end time.Time, excludeMeetingID string) (bool, error) {
	return overlapTx(d.db.WithContext(ctx), roomID, start, end, excludeMeetingID)
}

// FindByParticipant returns CONFIRMED meetings overlapping [start, end)
// where any of the users is organizer or participant.
func (d *Driver) FindByParticipant(ctx context.Context, userIDs []string, start, end time.Time) ([]*store.Meeting, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var meetings []*store.Meeting
	result := d.db.WithContext(ctx).
		Preload("Participants").
		Distinct("meetings.*").
		Joins("LEFT JOIN participants ON participants.meeting_id = meetings.id").
		Where("meetings.status = ? AND meetings.start_time < ? AND meetings.end_time > ?",
			store.MeetingConfirmed, end, start).
		Where("meetings.organizer_id IN ? OR participants.user_id IN ?", userIDs, userIDs).
		Order("meetings.start_time").
		Find(&meetings)
	if result.Error != nil {
		return nil, result.Error
	}
	return meetings, nil
}

// FindUnchecked returns CONFIRMED, not-checked-in meetings starting
// before the cutoff. Used by the reconciliation sweep.
func (d *Driver) FindUnchecked(ctx context.Context, cutoff time.Time) ([]*store.Meeting, error) {
	var meetings []*store.Meeting
	result := d.db.WithContext(ctx).
		Preload("Participants").
		Where("status = ? AND checked_in = ? AND start_time < ?",
			store.MeetingConfirmed, false, cutoff).
		Order("start_time").
		Find(&meetings)
	if result.Error != nil {
		return nil, result.Error
	}
	return meetings, nil
}

// FindBySeriesID returns all instances of a recurring series.
func (d *Driver) FindBySeriesID(ctx context.Context, seriesID string) ([]*store.Meeting, error) {
	var meetings []*store.Meeting
	result := d.db.WithContext(ctx).
		Preload("Participants").
		Where("series_id = ?", seriesID).
		Order("start_time").
		Find(&meetings)
	if result.Error != nil {
		return nil, result.Error
	}
	return meetings, nil
}

// RoomStore implementation

func (d *Driver) CreateRoom(ctx context.Context, r *store.Room) error {
	return d.db.WithContext(ctx).Create(r).Error
}

func (d *Driver) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	var r store.Room
	result := d.db.WithContext(ctx).First(&r, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &r, nil
}

func (d *Driver) ListRooms(ctx context.Context) ([]*store.Room, error) {
	var rooms []*store.Room
	result := d.db.WithContext(ctx).Order("id").Find(&rooms)
	if result.Error != nil {
		return nil, result.Error
	}
	return rooms, nil
}

// UserStore implementation

func (d *Driver) CreateUser(ctx context.Context, u *store.User) error {
	return d.db.WithContext(ctx).Create(u).Error
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	var u store.User
	result := d.db.WithContext(ctx).First(&u, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// DeviceStore implementation

func (d *Driver) CreateDevice(ctx context.Context, dev *store.Device) error {
	return d.db.WithContext(ctx).Create(dev).Error
}

func (d *Driver) GetDevice(ctx context.Context, id string) (*store.Device, error) {
	var dev store.Device
	result := d.db.WithContext(ctx).First(&dev, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &dev, nil
}

func (d *Driver) ListDevices(ctx context.Context) ([]*store.Device, error) {
	var devices []*store.Device
	result := d.db.WithContext(ctx).Order("id").Find(&devices)
	if result.Error != nil {
		return nil, result.Error
	}
	return devices, nil
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.MeetingStore = (*Driver)(nil)
var _ store.RoomStore = (*Driver)(nil)
var _ store.UserStore = (*Driver)(nil)
var _ store.DeviceStore = (*Driver)(nil)
