// Package events provides the fire-and-forget notification port and an
// in-process channel-backed bus consumed by a dedicated worker. Email
// and calendar delivery subscribe here; the engine never waits on them.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/campusops/roomclerk/internal/platform/logutil"
)

// Type identifies the kind of meeting event.
type Type string

const (
	MeetingCreated   Type = "meeting.created"
	MeetingUpdated   Type = "meeting.updated"
	MeetingCancelled Type = "meeting.cancelled"
	MeetingApproved  Type = "meeting.approved"
	MeetingRejected  Type = "meeting.rejected"
)

// Event describes a meeting lifecycle change for downstream handlers.
type Event struct {
	Type        Type      `json:"type"`
	MeetingID   string    `json:"meeting_id"`
	RoomID      string    `json:"room_id"`
	OrganizerID string    `json:"organizer_id"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher is the port the engine publishes through. Publish must never
// block the caller.
type Publisher interface {
	Publish(ev Event)
}

// Handler consumes events delivered by the bus worker.
type Handler func(ev Event)

// Bus is a buffered in-process Publisher. Events are drained by a single
// worker goroutine (Run); when the buffer is full, Publish drops the
// event and logs, keeping the request path non-blocking.
type Bus struct {
	ch     chan Event
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		ch:     make(chan Event, buffer),
		logger: logutil.NoopIfNil(logger),
	}
}

// Subscribe registers a handler. Handlers run on the bus worker, in
// subscription order.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	select {
	case b.ch <- ev:
	default:
		b.logger.Warn("event bus full, dropping event",
			"type", ev.Type, "meeting_id", ev.MeetingID)
	}
}

// Run drains the bus until ctx is cancelled. Call in its own goroutine.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.ch:
			b.dispatch(ev)
		}
	}
}

func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	b.logger.Debug("event dispatched", "type", ev.Type, "meeting_id", ev.MeetingID)
}

// Nop is a Publisher that discards everything. Useful in tests.
type Nop struct{}

func (Nop) Publish(Event) {}

var _ Publisher = (*Bus)(nil)
var _ Publisher = Nop{}
