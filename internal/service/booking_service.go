package service

import (
	"context"
	"fmt"
	"time"

	"github.com/slotwise/schedulr/internal/cache"
	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/platform/mailer"
	"github.com/slotwise/schedulr/internal/platform/payments"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/internal/schedule"
	"github.com/slotwise/schedulr/pkg/config"
	"github.com/slotwise/schedulr/pkg/events"
	"github.com/slotwise/schedulr/pkg/logger"
)

type BookingService interface {
	CreateBooking(ctx context.Context, handle, slug string, req *domain.BookingRequest) (*domain.Booking, error)
	GetByToken(ctx context.Context, id int64, token string) (*domain.Booking, error)
	RescheduleByToken(ctx context.Context, id int64, token string, newStart time.Time) (*domain.Booking, error)
	CancelByToken(ctx context.Context, id int64, token string) (*domain.Booking, error)
	ListHostBookings(ctx context.Context, hostID int64, from, to time.Time, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	CancelByHost(ctx context.Context, hostID, id int64) (*domain.Booking, error)
	SendReminder(ctx context.Context, hostID, id int64) error
}

type bookingService struct {
	userRepo       postgres.UserRepo
	eventTypeRepo  postgres.EventTypeRepo
	scheduleRepo   postgres.ScheduleRepo
	bookingRepo    postgres.BookingRepo
	eventBus       events.Publisher
	bookingMailer  *mailer.BookingMailer
	paymentIntents *payments.StripeIntents
	slotCache      *cache.SlotCache
	cfg            *config.Config
	now            func() time.Time
}

func NewBookingService(
	userRepo postgres.UserRepo,
	eventTypeRepo postgres.EventTypeRepo,
	scheduleRepo postgres.ScheduleRepo,
	bookingRepo postgres.BookingRepo,
	eventBus events.Publisher,
	bookingMailer *mailer.BookingMailer,
	paymentIntents *payments.StripeIntents,
	slotCache *cache.SlotCache,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		userRepo:       userRepo,
		eventTypeRepo:  eventTypeRepo,
		scheduleRepo:   scheduleRepo,
		bookingRepo:    bookingRepo,
		eventBus:       eventBus,
		bookingMailer:  bookingMailer,
		paymentIntents: paymentIntents,
		slotCache:      slotCache,
		cfg:            cfg,
		now:            time.Now,
	}
}

// CreateBooking is the write half of the booking page. The displayed slots
// may be stale by the time the guest submits; the guard re-validates against
// live data inside the insert transaction and the exclusion constraint
// settles any race the transaction still cannot see.
func (s *bookingService) CreateBooking(ctx context.Context, handle, slug string, req *domain.BookingRequest) (*domain.Booking, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.StartAt.Before(s.now().Add(s.cfg.Booking.MinLeadTime)) {
		return nil, domain.NewValidationError("start_at", "must be in the future")
	}

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
	if eventType == nil || !eventType.IsActive {
		return nil, domain.ErrNotFound
	}

	proposed := &domain.Booking{
		HostUserID:    host.ID,
		EventTypeID:   eventType.ID,
		GuestName:     req.GuestName,
		GuestEmail:    req.GuestEmail,
		GuestTimezone: req.GuestTimezone,
		StartAt:       req.StartAt.UTC().Truncate(time.Second),
		EndAt:         req.StartAt.UTC().Truncate(time.Second).Add(eventType.Duration()),
		Notes:         req.Notes,
	}

	booking, err := s.createGuarded(ctx, host, eventType, proposed, 0)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.BookingCreated, mailer.KindConfirmation, host, eventType, booking)

	if intentID, err := s.paymentIntents.CreateIntent(eventType, booking); err != nil {
		logger.ErrorContext(ctx, "Failed to create payment intent", "error", err, "booking_id", booking.ID)
	} else if intentID != "" {
		logger.InfoContext(ctx, "Created payment intent", "intent_id", intentID, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) createGuarded(ctx context.Context, host *domain.User, eventType *domain.EventType, proposed *domain.Booking, excludeID int64) (*domain.Booking, error) {
	hostLoc, err := domain.LoadTimezone(host.Timezone)
	if err != nil {
		hostLoc = time.UTC
	}

	date := domain.DateOf(proposed.StartAt.In(hostLoc))
	rules, err := s.scheduleRepo.ListWeeklyRules(ctx, host.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly rules: %w", err)
	}
	override, err := s.scheduleRepo.GetOverride(ctx, host.ID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load date override: %w", err)
	}

	proposedIv, err := schedule.NewInterval(proposed.StartAt, proposed.EndAt)
	if err != nil {
		return nil, domain.NewValidationError("start_at", "invalid interval")
	}

	check := func(busy []schedule.BusyBooking) error {
		return schedule.CheckProposed(ctx, schedule.GuardInput{
			EventType:        eventType,
			Date:             date,
			HostLoc:          hostLoc,
			Rules:            rules,
			Override:         override,
			Bookings:         busy,
			Proposed:         proposedIv,
			ExcludeBookingID: excludeID,
		})
	}

	busyStart, busyEnd := proposed.StartAt.Add(-eventType.BufferBefore()), proposed.EndAt.Add(eventType.BufferAfter())
	dayStart, dayEnd := date.Bounds(hostLoc)
	windowFrom, windowTo := dayStart.Add(-24*time.Hour), dayEnd.Add(24*time.Hour)

	var booking *domain.Booking
	if excludeID == 0 {
		booking, err = s.bookingRepo.CreateGuarded(ctx, proposed, busyStart, busyEnd, windowFrom, windowTo, check)
	} else {
		booking, err = s.bookingRepo.RescheduleGuarded(ctx, host.ID, excludeID, proposed.StartAt, proposed.EndAt, busyStart, busyEnd, windowFrom, windowTo, check)
	}
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}

	if s.slotCache != nil {
		s.slotCache.Invalidate(ctx, host.ID)
	}
	return booking, nil
}

func (s *bookingService) GetByToken(ctx context.Context, id int64, token string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByToken(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

// RescheduleByToken moves a confirmed booking through the same guard as
// creation, with the booking's own prior interval excluded from the
// conflict set.
func (s *bookingService) RescheduleByToken(ctx context.Context, id int64, token string, newStart time.Time) (*domain.Booking, error) {
	if newStart.Before(s.now().Add(s.cfg.Booking.MinLeadTime)) {
		return nil, domain.NewValidationError("start_at", "must be in the future")
	}

	existing, err := s.GetByToken(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.BookingConfirmed {
		return nil, domain.NewValidationError("status", "cancelled bookings cannot be rescheduled")
	}

	host, err := s.userRepo.FindByID(ctx, existing.HostUserID)
	if err != nil || host == nil {
		return nil, fmt.Errorf("failed to load host: %w", err)
	}
	eventType, err := s.eventTypeRepo.GetByID(ctx, host.ID, existing.EventTypeID)
	if err != nil || eventType == nil {
		return nil, fmt.Errorf("failed to load event type: %w", err)
	}

	proposed := &domain.Booking{
		HostUserID:  host.ID,
		EventTypeID: eventType.ID,
		StartAt:     newStart.UTC().Truncate(time.Second),
		EndAt:       newStart.UTC().Truncate(time.Second).Add(eventType.Duration()),
	}

	booking, err := s.createGuarded(ctx, host, eventType, proposed, existing.ID)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.BookingRescheduled, mailer.KindConfirmation, host, eventType, booking)
	return booking, nil
}

// CancelByToken is idempotent: cancelling an already-cancelled booking
// returns the same terminal state and no error.
func (s *bookingService) CancelByToken(ctx context.Context, id int64, token string) (*domain.Booking, error) {
	booking, changed, err := s.bookingRepo.CancelByToken(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if changed {
		s.afterCancel(ctx, booking)
	}
	return booking, nil
}

func (s *bookingService) ListHostBookings(ctx context.Context, hostID int64, from, to time.Time, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	return s.bookingRepo.ListByHost(ctx, hostID, from, to, status, limit, offset)
}

func (s *bookingService) CancelByHost(ctx context.Context, hostID, id int64) (*domain.Booking, error) {
	booking, changed, err := s.bookingRepo.CancelByHost(ctx, hostID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if changed {
		s.afterCancel(ctx, booking)
	}
	return booking, nil
}

// SendReminder lets an external cron trigger the reminder email for an
// upcoming booking; the core keeps no scheduler of its own.
func (s *bookingService) SendReminder(ctx context.Context, hostID, id int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, hostID, id)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return domain.ErrNotFound
	}
	if booking.Status != domain.BookingConfirmed {
		return domain.NewValidationError("status", "cannot remind a cancelled booking")
	}

	host, err := s.userRepo.FindByID(ctx, hostID)
	if err != nil || host == nil {
		return fmt.Errorf("failed to load host: %w", err)
	}
	eventType, err := s.eventTypeRepo.GetByID(ctx, hostID, booking.EventTypeID)
	if err != nil || eventType == nil {
		return fmt.Errorf("failed to load event type: %w", err)
	}

	ev := snapshot(host, eventType, booking)
	if err := s.eventBus.Publish(ctx, events.BookingReminder, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reminder event", "error", err, "booking_id", booking.ID)
	}
	if err := s.bookingMailer.SendBookingEmail(mailer.KindReminder, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to send reminder email", "error", err, "booking_id", booking.ID)
	}
	return nil
}

func (s *bookingService) afterWrite(ctx context.Context, subject string, kind mailer.Kind, host *domain.User, eventType *domain.EventType, booking *domain.Booking) {
	ev := snapshot(host, eventType, booking)
	if err := s.eventBus.Publish(ctx, subject, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking event", "error", err,
			"subject", subject, "booking_id", booking.ID)
	}
	if err := s.bookingMailer.SendBookingEmail(kind, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to send booking email", "error", err,
			"kind", string(kind), "booking_id", booking.ID)
	}
}

func (s *bookingService) afterCancel(ctx context.Context, booking *domain.Booking) {
	host, err := s.userRepo.FindByID(ctx, booking.HostUserID)
	if err != nil || host == nil {
		logger.ErrorContext(ctx, "Failed to load host for cancellation side effects",
			"error", err, "booking_id", booking.ID)
		return
	}
	eventType, err := s.eventTypeRepo.GetByID(ctx, booking.HostUserID, booking.EventTypeID)
	if err != nil || eventType == nil {
		logger.ErrorContext(ctx, "Failed to load event type for cancellation side effects",
			"error", err, "booking_id", booking.ID)
		return
	}

	if s.slotCache != nil {
		s.slotCache.Invalidate(ctx, host.ID)
	}
	s.afterWrite(ctx, events.BookingCancelled, mailer.KindCancellation, host, eventType, booking)
}

func snapshot(host *domain.User, eventType *domain.EventType, booking *domain.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:     booking.ID,
		HostUserID:    host.ID,
		HostEmail:     host.Email,
		HostName:      host.Name,
		EventTitle:    eventType.Title,
		DurationMin:   eventType.DurationMin,
		LocationType:  string(eventType.LocationType),
		GuestName:     booking.GuestName,
		GuestEmail:    booking.GuestEmail,
		GuestTimezone: booking.GuestTimezone,
		StartAt:       booking.StartAt,
		EndAt:         booking.EndAt,
		OccurredAt:    time.Now(),
	}
}
