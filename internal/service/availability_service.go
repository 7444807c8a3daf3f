package service

import (
	"context"
	"fmt"
	"time"

	"github.com/slotwise/schedulr/internal/cache"
	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/internal/schedule"
	"github.com/slotwise/schedulr/pkg/config"
	"github.com/slotwise/schedulr/pkg/logger"
)

type AvailabilityService interface {
	// SlotsForDay resolves the bookable slots for a host's event type on one
	// calendar date, labelled in the guest's display timezone. An empty
	// slice is a valid answer.
	SlotsForDay(ctx context.Context, handle, slug string, date domain.Date, displayTZ string) ([]schedule.Slot, error)
}

type availabilityService struct {
	userRepo      postgres.UserRepo
	eventTypeRepo postgres.EventTypeRepo
	scheduleRepo  postgres.ScheduleRepo
	bookingRepo   postgres.BookingRepo
	slotCache     *cache.SlotCache
	cfg           *config.Config
	now           func() time.Time
}

func NewAvailabilityService(
	userRepo postgres.UserRepo,
	eventTypeRepo postgres.EventTypeRepo,
	scheduleRepo postgres.ScheduleRepo,
	bookingRepo postgres.BookingRepo,
	slotCache *cache.SlotCache,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		userRepo:      userRepo,
		eventTypeRepo: eventTypeRepo,
		scheduleRepo:  scheduleRepo,
		bookingRepo:   bookingRepo,
		slotCache:     slotCache,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *availabilityService) SlotsForDay(ctx context.Context, handle, slug string, date domain.Date, displayTZ string) ([]schedule.Slot, error) {
	host, err := s.userRepo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up host: %w", err)
	}
	if host == nil {
		return nil, domain.ErrNotFound
	}

	eventType, err := s.eventTypeRepo.GetBySlug(ctx, host.ID, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up event type: %w", err)
	}
	if eventType == nil {
		return nil, domain.ErrNotFound
	}
	if !eventType.IsActive {
		logger.InfoContext(ctx, "Availability requested for inactive event type",
			"host_id", host.ID, "event_type_id", eventType.ID)
		return []schedule.Slot{}, nil
	}

	displayLoc, err := domain.LoadTimezone(displayTZ)
	if err != nil {
		return nil, domain.NewValidationError("tz", "unknown timezone")
	}

	if s.slotCache != nil {
		if slots, ok := s.slotCache.Get(ctx, host.ID, eventType.ID, date.String(), displayLoc.String()); ok {
			return slots, nil
		}
	}

	slots, err := s.resolve(ctx, host, eventType, date, displayLoc, 0)
	if err != nil {
		return nil, err
	}

	if s.slotCache != nil {
		if err := s.slotCache.Set(ctx, host.ID, eventType.ID, date.String(), displayLoc.String(), slots); err != nil {
			logger.WarnContext(ctx, "Failed to cache resolved slots", "error", err)
		}
	}
	return slots, nil
}

func (s *availabilityService) resolve(ctx context.Context, host *domain.User, eventType *domain.EventType, date domain.Date, displayLoc *time.Location, excludeBookingID int64) ([]schedule.Slot, error) {
	hostLoc, err := domain.LoadTimezone(host.Timezone)
	if err != nil {
		logger.WarnContext(ctx, "Host has unknown timezone, falling back to UTC",
			"host_id", host.ID, "timezone", host.Timezone)
		hostLoc = time.UTC
	}

	rules, err := s.scheduleRepo.ListWeeklyRules(ctx, host.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly rules: %w", err)
	}

	override, err := s.scheduleRepo.GetOverride(ctx, host.ID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load date override: %w", err)
	}

	// Bookings from adjacent days can reach into this one once buffers are
	// applied, so the busy query window spans a day on either side.
	dayStart, dayEnd := date.Bounds(hostLoc)
	busy, err := s.bookingRepo.ListBusyBetween(ctx, host.ID, dayStart.Add(-24*time.Hour), dayEnd.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	slots := schedule.Resolve(ctx, schedule.ResolveInput{
		EventType:        eventType,
		Date:             date,
		HostLoc:          hostLoc,
		DisplayLoc:       displayLoc,
		Rules:            rules,
		Override:         override,
		Bookings:         busy,
		Now:              s.now(),
		Step:             time.Duration(s.cfg.Booking.SlotStepMinutes) * time.Minute,
		MinLead:          s.cfg.Booking.MinLeadTime,
		ExcludeBookingID: excludeBookingID,
	})
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return slots, nil
}
