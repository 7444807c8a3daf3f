package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/schedule"
)

func guardInput(t *testing.T, start string) schedule.GuardInput {
	t.Helper()
	s, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+start)
	if err != nil {
		t.Fatal(err)
	}
	et := thirtyMinEvent()
	proposed, err := schedule.NewInterval(s, s.Add(et.Duration()))
	if err != nil {
		t.Fatal(err)
	}
	return schedule.GuardInput{
		EventType: et,
		Date:      monday,
		HostLoc:   time.UTC,
		Rules:     workday(),
		Proposed:  proposed,
	}
}

func conflictKind(t *testing.T, err error) domain.ConflictKind {
	t.Helper()
	ce, ok := domain.AsConflict(err)
	if !ok {
		t.Fatalf("Expected conflict error, got %v", err)
	}
	return ce.Kind
}

func TestCheckProposedAccepts(t *testing.T) {
	if err := schedule.CheckProposed(context.Background(), guardInput(t, "10:00")); err != nil {
		t.Fatalf("Expected acceptance, got %v", err)
	}
}

func TestCheckProposedSlotTaken(t *testing.T) {
	in := guardInput(t, "12:00")
	in.Bookings = []schedule.BusyBooking{busyAt(t, 10, "12:00", "12:30", 0, 0)}

	if kind := conflictKind(t, schedule.CheckProposed(context.Background(), in)); kind != domain.ConflictSlotTaken {
		t.Fatalf("Expected slot_taken, got %s", kind)
	}
}

func TestCheckProposedBufferCollision(t *testing.T) {
	in := guardInput(t, "12:30")
	in.EventType.BufferBeforeMin = 15
	in.Bookings = []schedule.BusyBooking{busyAt(t, 10, "12:00", "12:30", 0, 0)}

	if kind := conflictKind(t, schedule.CheckProposed(context.Background(), in)); kind != domain.ConflictSlotTaken {
		t.Fatalf("Expected slot_taken from buffer collision, got %s", kind)
	}
}

func TestCheckProposedOutsideAvailability(t *testing.T) {
	tests := []struct {
		name  string
		start string
	}{
		{"before hours", "08:00"},
		{"straddles close", "16:45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schedule.CheckProposed(context.Background(), guardInput(t, tt.start))
			if kind := conflictKind(t, err); kind != domain.ConflictOutsideAvailability {
				t.Fatalf("Expected outside_availability, got %s", kind)
			}
		})
	}
}

func TestCheckProposedDateBlocked(t *testing.T) {
	in := guardInput(t, "10:00")
	in.Override = &domain.DateOverride{Date: monday, IsBlocked: true}

	if kind := conflictKind(t, schedule.CheckProposed(context.Background(), in)); kind != domain.ConflictDateBlocked {
		t.Fatalf("Expected date_blocked, got %s", kind)
	}
}

func TestCheckProposedRescheduleExcludesSelf(t *testing.T) {
	in := guardInput(t, "12:00")
	in.Bookings = []schedule.BusyBooking{busyAt(t, 10, "12:00", "12:30", 0, 0)}
	in.ExcludeBookingID = 10

	if err := schedule.CheckProposed(context.Background(), in); err != nil {
		t.Fatalf("Expected reschedule onto own slot to pass, got %v", err)
	}
}

// Every slot the resolver offers must pass the guard against the same data.
func TestResolvedSlotsAlwaysPassGuard(t *testing.T) {
	in := resolveInput()
	in.EventType.BufferBeforeMin = 10
	in.EventType.BufferAfterMin = 10
	in.Bookings = []schedule.BusyBooking{
		busyAt(t, 10, "10:00", "10:30", 10*time.Minute, 10*time.Minute),
		busyAt(t, 11, "14:00", "15:00", 0, 0),
	}

	slots := schedule.Resolve(context.Background(), in)
	if len(slots) == 0 {
		t.Fatal("Expected some slots")
	}
	for _, slot := range slots {
		proposed, err := schedule.NewInterval(slot.Start, slot.End)
		if err != nil {
			t.Fatal(err)
		}
		gi := schedule.GuardInput{
			EventType: in.EventType,
			Date:      in.Date,
			HostLoc:   in.HostLoc,
			Rules:     in.Rules,
			Bookings:  in.Bookings,
			Proposed:  proposed,
		}
		if err := schedule.CheckProposed(context.Background(), gi); err != nil {
			t.Fatalf("Resolved slot %s rejected by guard: %v", slot.Start.Format("15:04"), err)
		}
	}
}
