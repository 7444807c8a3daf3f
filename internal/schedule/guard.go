package schedule

import (
	"context"
	"time"

	"github.com/slotwise/schedulr/internal/domain"
)

// GuardInput describes a proposed booking interval to validate against live
// data. It reuses the resolver's inputs so the write-time check recomputes
// the same windows and busy set the read path displayed, never trusting what
// the UI showed.
type GuardInput struct {
	EventType *domain.EventType
	Date      domain.Date
	HostLoc   *time.Location
	Rules     []domain.WeeklyRule
	Override  *domain.DateOverride
	Bookings  []BusyBooking
	Proposed  Interval

	// ExcludeBookingID removes the booking's own prior interval from the
	// conflict set when rescheduling.
	ExcludeBookingID int64
}

// CheckProposed is the application half of the conflict guard: it re-runs
// window resolution and busy expansion for the proposed day and rejects the
// proposal if it is blocked, collides with an existing booking, or falls
// outside the host's availability. The storage-level exclusion constraint
// remains the final arbiter under concurrency.
func CheckProposed(ctx context.Context, in GuardInput) error {
	windows, blocked := DayWindows(ctx, in.Date, in.HostLoc, in.Rules, in.Override)
	if blocked {
		return domain.NewConflictError(domain.ConflictDateBlocked)
	}

	busy := BusyIntervals(in.Bookings, in.ExcludeBookingID)
	expanded := in.Proposed.Expand(in.EventType.BufferBefore(), in.EventType.BufferAfter())
	if overlapsAny(expanded, busy) {
		return domain.NewConflictError(domain.ConflictSlotTaken)
	}

	for _, w := range windows {
		if w.Covers(in.Proposed) {
			return nil
		}
	}
	return domain.NewConflictError(domain.ConflictOutsideAvailability)
}
