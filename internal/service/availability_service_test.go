package service

import (
	"context"
	"testing"
	"time"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/pkg/config"
)

func newAvailabilityFixture() (*availabilityService, *fixture) {
	f := newFixture()
	cfg := &config.Config{Booking: config.BookingConfig{SlotStepMinutes: 30, MinLeadTime: 15 * time.Minute}}

	svc := NewAvailabilityService(
		&mockUserRepo{user: &domain.User{ID: 1, Email: "dana@example.com", Name: "Dana", Handle: "dana", Timezone: "UTC"}},
		&mockEventTypeRepo{et: f.et},
		&mockScheduleRepo{rules: []domain.WeeklyRule{
			{ID: 1, HostUserID: 1, DayOfWeek: time.Monday, StartMinute: 9 * 60, EndMinute: 17 * 60},
		}},
		f.store,
		nil,
		cfg,
	).(*availabilityService)
	svc.now = func() time.Time { return testNow }
	return svc, f
}

func TestSlotsForDay(t *testing.T) {
	svc, _ := newAvailabilityFixture()

	slots, err := svc.SlotsForDay(context.Background(), "dana", "intro-call", domain.NewDate(2026, time.September, 7), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 16 {
		t.Fatalf("Expected 16 slots for a free 9-17 Monday, got %d", len(slots))
	}
	if slots[0].Label != "09:00" {
		t.Fatalf("Expected first label 09:00, got %s", slots[0].Label)
	}
}

func TestSlotsForDayBookingHidesSlot(t *testing.T) {
	svc, f := newAvailabilityFixture()
	if _, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("12:00"))); err != nil {
		t.Fatal(err)
	}

	slots, err := svc.SlotsForDay(context.Background(), "dana", "intro-call", domain.NewDate(2026, time.September, 7), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range slots {
		if s.Start.Equal(slotOn("12:00")) {
			t.Fatal("Expected booked slot to be hidden")
		}
	}
	if len(slots) != 15 {
		t.Fatalf("Expected 15 slots, got %d", len(slots))
	}
}

func TestSlotsForDayInactiveEventType(t *testing.T) {
	svc, f := newAvailabilityFixture()
	f.et.IsActive = false

	slots, err := svc.SlotsForDay(context.Background(), "dana", "intro-call", domain.NewDate(2026, time.September, 7), "")
	if err != nil {
		t.Fatalf("Inactive event type must not error, got %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("Expected empty non-nil slice, got %v", slots)
	}
}

func TestSlotsForDayUnknownHost(t *testing.T) {
	svc, _ := newAvailabilityFixture()
	if _, err := svc.SlotsForDay(context.Background(), "nobody", "intro-call", domain.NewDate(2026, time.September, 7), ""); err != domain.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSlotsForDayBadTimezone(t *testing.T) {
	svc, _ := newAvailabilityFixture()
	_, err := svc.SlotsForDay(context.Background(), "dana", "intro-call", domain.NewDate(2026, time.September, 7), "Mars/Olympus")
	if _, ok := domain.AsValidation(err); !ok {
		t.Fatalf("Expected validation error for unknown timezone, got %v", err)
	}
}

func TestSlotsForDayDisplayTimezone(t *testing.T) {
	svc, _ := newAvailabilityFixture()
	slots, err := svc.SlotsForDay(context.Background(), "dana", "intro-call", domain.NewDate(2026, time.September, 7), "Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) == 0 {
		t.Fatal("Expected slots")
	}
	// UTC 09:00 is 11:00 in Berlin during CEST.
	if slots[0].Label != "11:00" {
		t.Fatalf("Expected label 11:00 in Berlin time, got %s", slots[0].Label)
	}
	if !slots[0].Start.Equal(slotOn("09:00")) {
		t.Fatal("Canonical start must remain UTC")
	}
}
