// Package reconcile implements the periodic sweep that cancels ghost
// meetings: CONFIRMED bookings whose organizer never checked in before
// the grace period elapsed.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/platform/clock"
	"github.com/campusops/roomclerk/internal/platform/logutil"
	"github.com/campusops/roomclerk/internal/store"
)

// Settings controls sweep cadence and the check-in grace period.
type Settings struct {
	Interval    time.Duration
	GracePeriod time.Duration
}

// ApplyDefaults fills zero values with the documented defaults.
func (s *Settings) ApplyDefaults() {
	if s.Interval <= 0 {
		s.Interval = 5 * time.Minute
	}
	if s.GracePeriod <= 0 {
		s.GracePeriod = 15 * time.Minute
	}
}

// Reconciler sweeps the meeting set on a fixed interval, independent of
// any request. Each swept meeting is cancelled under system authority;
// a failure on one meeting never aborts the batch or the timer loop.
type Reconciler struct {
	meetings store.MeetingStore
	svc      *booking.Service
	clk      clock.Clock
	logger   *slog.Logger
	settings Settings
}

// New creates a Reconciler. Clock and logger may be nil.
func New(meetings store.MeetingStore, svc *booking.Service, clk clock.Clock, logger *slog.Logger, settings Settings) *Reconciler {
	if clk == nil {
		clk = clock.System()
	}
	settings.ApplyDefaults()
	return &Reconciler{
		meetings: meetings,
		svc:      svc,
		clk:      clk,
		logger:   logutil.NoopIfNil(logger),
		settings: settings,
	}
}

// Run sweeps on a ticker until ctx is cancelled. Call in its own
// goroutine; it never returns an error and never panics out of the loop.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.settings.Interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started",
		"interval", r.settings.Interval, "grace_period", r.settings.GracePeriod)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass and returns how many meetings were
// cancelled. Per-meeting failures are logged and skipped.
func (r *Reconciler) Sweep(ctx context.Context) int {
	cutoff := r.clk.Now().Add(-r.settings.GracePeriod)
	stale, err := r.meetings.FindUnchecked(ctx, cutoff)
	if err != nil {
		r.logger.Error("reconciler query failed", "error", err)
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	cancelled := 0
	for _, m := range stale {
		if err := r.svc.SystemCancel(ctx, m.ID, booking.SystemCancelReason); err != nil {
			r.logger.Warn("ghost meeting cancellation failed",
				"meeting_id", m.ID, "error", err)
			continue
		}
		cancelled++
	}
	r.logger.Info("reconciler sweep finished",
		"cutoff", cutoff, "candidates", len(stale), "cancelled", cancelled)
	return cancelled
}
