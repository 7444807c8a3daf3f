package schedule

import (
	"context"
	"time"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/pkg/logger"
)

// Slot is one bookable start time. Start and End are canonical UTC instants;
// Label is the start rendered in the guest's display timezone.
type Slot struct {
	Start time.Time `json:"start_at"`
	End   time.Time `json:"end_at"`
	Label string    `json:"display_label"`
}

// BusyBooking pairs a confirmed booking with the buffers of its own event
// type, so its expanded interval can be computed without another lookup.
type BusyBooking struct {
	Booking      domain.Booking
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// ResolveInput carries everything the resolver needs. The host is identified
// explicitly by the data handed in; nothing is read from ambient state, which
// keeps resolution a pure function.
type ResolveInput struct {
	EventType  *domain.EventType
	Date       domain.Date
	HostLoc    *time.Location
	DisplayLoc *time.Location
	Rules      []domain.WeeklyRule
	Override   *domain.DateOverride
	Bookings   []BusyBooking
	Now        time.Time
	Step       time.Duration
	MinLead    time.Duration

	// ExcludeBookingID removes a booking from the conflict set, used when
	// rescheduling that booking.
	ExcludeBookingID int64
}

// Resolve computes the ordered list of bookable slots for one calendar day.
// An empty result is a valid answer (blocked or fully booked day), never an
// error.
func Resolve(ctx context.Context, in ResolveInput) []Slot {
	if in.EventType == nil || !in.EventType.IsActive {
		return nil
	}

	windows, blocked := DayWindows(ctx, in.Date, in.HostLoc, in.Rules, in.Override)
	if blocked || len(windows) == 0 {
		return nil
	}

	busy := BusyIntervals(in.Bookings, in.ExcludeBookingID)

	free, err := SubtractBusy(windows, busy)
	if err != nil {
		logger.ErrorContext(ctx, "Busy subtraction failed", "error", err, "date", in.Date.String())
		return nil
	}

	duration := in.EventType.Duration()
	earliest := in.Now.Add(in.MinLead)
	displayLoc := in.DisplayLoc
	if displayLoc == nil {
		displayLoc = time.UTC
	}

	var slots []Slot
	for _, window := range free {
		for _, start := range GenerateCandidates(window.Start, window.End, in.Step) {
			end := start.Add(duration)
			if end.After(window.End) {
				break
			}
			if start.Before(earliest) {
				continue
			}
			// The candidate's own buffers must clear every existing
			// booking, mirroring the write-time guard exactly so a
			// displayed slot is always submittable.
			expanded := Interval{
				Start: start.Add(-in.EventType.BufferBefore()),
				End:   end.Add(in.EventType.BufferAfter()),
			}
			if overlapsAny(expanded, busy) {
				continue
			}
			slots = append(slots, Slot{
				Start: start.UTC(),
				End:   end.UTC(),
				Label: start.In(displayLoc).Format("15:04"),
			})
		}
	}
	return slots
}

// DayWindows resolves the base free windows for a date: a blocked override
// yields none, an override with custom hours replaces the weekly rules, and
// otherwise all rules matching the weekday are merged. Malformed rules are
// skipped with a logged anomaly so one bad row never takes out the whole day.
func DayWindows(ctx context.Context, date domain.Date, hostLoc *time.Location, rules []domain.WeeklyRule, override *domain.DateOverride) ([]Interval, bool) {
	if hostLoc == nil {
		hostLoc = time.UTC
	}

	if override != nil {
		if override.IsBlocked {
			return nil, true
		}
		if override.StartMinute != nil && override.EndMinute != nil {
			iv, err := NewInterval(override.StartMinute.At(date, hostLoc), override.EndMinute.At(date, hostLoc))
			if err != nil {
				logger.WarnContext(ctx, "Skipping malformed date override",
					"override_id", override.ID, "date", date.String(), "error", err)
				return nil, false
			}
			return []Interval{iv}, false
		}
	}

	weekday := date.Weekday(hostLoc)
	var windows []Interval
	for _, r := range rules {
		if r.DayOfWeek != weekday {
			continue
		}
		if err := r.Validate(); err != nil {
			logger.WarnContext(ctx, "Skipping malformed weekly rule",
				"rule_id", r.ID, "error", err)
			continue
		}
		iv, err := NewInterval(r.StartMinute.At(date, hostLoc), r.EndMinute.At(date, hostLoc))
		if err != nil {
			// A DST transition can collapse a rule's window.
			logger.WarnContext(ctx, "Skipping weekly rule collapsed by timezone transition",
				"rule_id", r.ID, "date", date.String(), "error", err)
			continue
		}
		windows = append(windows, iv)
	}
	return MergeIntervals(windows), false
}

// BusyIntervals expands each confirmed booking by its buffers. Cancelled
// bookings and the excluded booking (a reschedule's own prior interval) are
// ignored.
func BusyIntervals(bookings []BusyBooking, excludeID int64) []Interval {
	var busy []Interval
	for _, bb := range bookings {
		if bb.Booking.Status != domain.BookingConfirmed {
			continue
		}
		if excludeID != 0 && bb.Booking.ID == excludeID {
			continue
		}
		start, end := bb.Booking.BusyInterval(bb.BufferBefore, bb.BufferAfter)
		iv, err := NewInterval(start, end)
		if err != nil {
			continue
		}
		busy = append(busy, iv)
	}
	return MergeIntervals(busy)
}

func overlapsAny(iv Interval, ivs []Interval) bool {
	for _, other := range ivs {
		if iv.Overlaps(other) {
			return true
		}
	}
	return false
}
