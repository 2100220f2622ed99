// Package deps provides shared dependencies for all HTTP services.
package deps

import (
	"sync"

	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/events"
	"github.com/campusops/roomclerk/internal/platform/config"
	"github.com/campusops/roomclerk/internal/store"
	"github.com/campusops/roomclerk/internal/suggest"
)

var (
	sharedDeps     *Deps
	sharedDepsOnce sync.Once
)

// Deps holds shared dependencies for all services in the monolith.
// Services obtain engine handles from here rather than constructing
// their own.
type Deps struct {
	Config *config.Config

	// Stores
	Meetings store.MeetingStore
	Rooms    store.RoomStore
	Users    store.UserStore
	Devices  store.DeviceStore

	// Engine
	Booking *booking.Service
	Suggest *suggest.Engine

	// Notification bus
	Bus *events.Bus
}

// SetDeps installs the shared dependencies. Subsequent calls are no-ops;
// call once from main before mounting services.
func SetDeps(d *Deps) {
	sharedDepsOnce.Do(func() {
		sharedDeps = d
	})
}

// GetDeps returns the shared dependencies, or nil if SetDeps was never
// called.
func GetDeps() *Deps {
	return sharedDeps
}
