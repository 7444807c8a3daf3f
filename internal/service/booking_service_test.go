package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/platform/mailer"
	"github.com/slotwise/schedulr/internal/platform/payments"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/internal/schedule"
	"github.com/slotwise/schedulr/pkg/config"
	"github.com/slotwise/schedulr/pkg/events"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	user *domain.User
}

func (m *mockUserRepo) Create(_ context.Context, _ *domain.RegisterRequest, _ string) (*domain.User, error) {
	return m.user, nil
}
func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, string, error) {
	if m.user != nil && m.user.Email == email {
		return m.user, "", nil
	}
	return nil, "", nil
}
func (m *mockUserRepo) FindByHandle(_ context.Context, handle string) (*domain.User, error) {
	if m.user != nil && m.user.Handle == handle {
		return m.user, nil
	}
	return nil, nil
}
func (m *mockUserRepo) UpdateProfile(_ context.Context, _ int64, _, _, _, _ string) (*domain.User, error) {
	return m.user, nil
}

type mockEventTypeRepo struct {
	et *domain.EventType
}

func (m *mockEventTypeRepo) Create(_ context.Context, _ int64, _ *domain.EventTypeRequest) (*domain.EventType, error) {
	return m.et, nil
}
func (m *mockEventTypeRepo) GetByID(_ context.Context, hostID, id int64) (*domain.EventType, error) {
	if m.et != nil && m.et.HostUserID == hostID && m.et.ID == id {
		return m.et, nil
	}
	return nil, nil
}
func (m *mockEventTypeRepo) GetBySlug(_ context.Context, hostID int64, slug string) (*domain.EventType, error) {
	if m.et != nil && m.et.HostUserID == hostID && m.et.Slug == slug {
		return m.et, nil
	}
	return nil, nil
}
func (m *mockEventTypeRepo) ListByHost(_ context.Context, _ int64, _ bool) ([]domain.EventType, error) {
	if m.et == nil {
		return nil, nil
	}
	return []domain.EventType{*m.et}, nil
}
func (m *mockEventTypeRepo) Update(_ context.Context, _, _ int64, _ *domain.EventTypeRequest) (*domain.EventType, error) {
	return m.et, nil
}
func (m *mockEventTypeRepo) Delete(_ context.Context, _, _ int64) (bool, error) {
	return true, nil
}

type mockScheduleRepo struct {
	rules    []domain.WeeklyRule
	override *domain.DateOverride
}

func (m *mockScheduleRepo) ListWeeklyRules(_ context.Context, _ int64) ([]domain.WeeklyRule, error) {
	return m.rules, nil
}
func (m *mockScheduleRepo) ReplaceWeeklyRules(_ context.Context, _ int64, rules []domain.WeeklyRule) ([]domain.WeeklyRule, error) {
	m.rules = rules
	return rules, nil
}
func (m *mockScheduleRepo) GetOverride(_ context.Context, _ int64, date domain.Date) (*domain.DateOverride, error) {
	if m.override != nil && m.override.Date == date {
		return m.override, nil
	}
	return nil, nil
}
func (m *mockScheduleRepo) ListOverrides(_ context.Context, _ int64, _, _ domain.Date) ([]domain.DateOverride, error) {
	if m.override == nil {
		return nil, nil
	}
	return []domain.DateOverride{*m.override}, nil
}
func (m *mockScheduleRepo) UpsertOverride(_ context.Context, o *domain.DateOverride) (*domain.DateOverride, error) {
	m.override = o
	return o, nil
}
func (m *mockScheduleRepo) DeleteOverride(_ context.Context, _ int64, _ domain.Date) (bool, error) {
	m.override = nil
	return true, nil
}

// mockBookingStore keeps bookings in memory behind a mutex and honors the
// same contract as the postgres repo: the guard check runs against the busy
// set visible inside the critical section, so concurrent creates serialize.
type mockBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	et       *domain.EventType
	bookings map[int64]*domain.Booking
}

func newMockBookingStore(et *domain.EventType) *mockBookingStore {
	return &mockBookingStore{nextID: 1, et: et, bookings: make(map[int64]*domain.Booking)}
}

func (m *mockBookingStore) busyLocked() []schedule.BusyBooking {
	var busy []schedule.BusyBooking
	for _, b := range m.bookings {
		busy = append(busy, schedule.BusyBooking{
			Booking:      *b,
			BufferBefore: m.et.BufferBefore(),
			BufferAfter:  m.et.BufferAfter(),
		})
	}
	return busy
}

func (m *mockBookingStore) CreateGuarded(_ context.Context, in *domain.Booking, _, _, _, _ time.Time, check postgres.GuardCheck) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := check(m.busyLocked()); err != nil {
		return nil, err
	}
	b := *in
	b.ID = m.nextID
	m.nextID++
	b.Status = domain.BookingConfirmed
	b.ManageToken = "token-" + strconv.FormatInt(b.ID, 10)
	m.bookings[b.ID] = &b
	out := b
	return &out, nil
}

func (m *mockBookingStore) RescheduleGuarded(_ context.Context, hostID, id int64, startAt, endAt time.Time, _, _, _, _ time.Time, check postgres.GuardCheck) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.HostUserID != hostID || b.Status != domain.BookingConfirmed {
		return nil, nil
	}
	if err := check(m.busyLocked()); err != nil {
		return nil, err
	}
	b.StartAt, b.EndAt = startAt, endAt
	out := *b
	return &out, nil
}

func (m *mockBookingStore) GetByID(_ context.Context, hostID, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.HostUserID != hostID {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *mockBookingStore) GetByToken(_ context.Context, id int64, token string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.ManageToken != token {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *mockBookingStore) ListByHost(_ context.Context, hostID int64, _, _ time.Time, _ *domain.BookingStatus, _, _ int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.HostUserID == hostID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingStore) ListBusyBetween(_ context.Context, _ int64, _, _ time.Time) ([]schedule.BusyBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busyLocked(), nil
}

func (m *mockBookingStore) cancelLocked(b *domain.Booking) (*domain.Booking, bool) {
	if b.Status == domain.BookingCancelled {
		out := *b
		return &out, false
	}
	now := time.Now()
	b.Status = domain.BookingCancelled
	b.CancelledAt = &now
	out := *b
	return &out, true
}

func (m *mockBookingStore) CancelByHost(_ context.Context, hostID, id int64) (*domain.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.HostUserID != hostID {
		return nil, false, nil
	}
	out, changed := m.cancelLocked(b)
	return out, changed, nil
}

func (m *mockBookingStore) CancelByToken(_ context.Context, id int64, token string) (*domain.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.ManageToken != token {
		return nil, false, nil
	}
	out, changed := m.cancelLocked(b)
	return out, changed, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}
func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) published(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

// ---------- Fixture ----------

var testNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

// 2026-09-07 is a Monday.
func slotOn(hhmm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-09-07 "+hhmm)
	return t
}

type fixture struct {
	svc   *bookingService
	store *mockBookingStore
	bus   *mockPublisher
	et    *domain.EventType
}

func newFixture() *fixture {
	host := &domain.User{ID: 1, Email: "dana@example.com", Name: "Dana", Handle: "dana", Timezone: "UTC"}
	et := &domain.EventType{
		ID: 7, HostUserID: 1, Slug: "intro-call", Title: "Intro Call",
		DurationMin: 30, IsActive: true,
	}
	store := newMockBookingStore(et)
	bus := &mockPublisher{}
	cfg := &config.Config{Booking: config.BookingConfig{SlotStepMinutes: 30, MinLeadTime: 15 * time.Minute}}

	svc := NewBookingService(
		&mockUserRepo{user: host},
		&mockEventTypeRepo{et: et},
		&mockScheduleRepo{rules: []domain.WeeklyRule{
			{ID: 1, HostUserID: 1, DayOfWeek: time.Monday, StartMinute: 9 * 60, EndMinute: 17 * 60},
		}},
		store,
		bus,
		mailer.NewBookingMailer(mailer.NewDevMailer()),
		payments.NewStripeIntents(""),
		nil,
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, store: store, bus: bus, et: et}
}

func bookingReq(start time.Time) *domain.BookingRequest {
	return &domain.BookingRequest{
		StartAt:    start,
		GuestName:  "Guest One",
		GuestEmail: "guest@example.com",
	}
}

// ---------- Tests ----------

func TestCreateBooking(t *testing.T) {
	f := newFixture()

	booking, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatalf("Expected booking to succeed, got %v", err)
	}
	if booking.ID == 0 || booking.ManageToken == "" {
		t.Fatal("Expected booking ID and manage token")
	}
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("Expected confirmed status, got %s", booking.Status)
	}
	if !booking.EndAt.Equal(slotOn("10:30")) {
		t.Fatalf("Expected end at 10:30, got %v", booking.EndAt)
	}
	if f.bus.published(events.BookingCreated) != 1 {
		t.Fatal("Expected one booking.created event")
	}
}

func TestCreateBookingUnknownHost(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.CreateBooking(context.Background(), "nobody", "intro-call", bookingReq(slotOn("10:00"))); err != domain.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateBookingLeadTime(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(testNow.Add(5*time.Minute)))
	if _, ok := domain.AsValidation(err); !ok {
		t.Fatalf("Expected validation error inside lead time, got %v", err)
	}
	if f.bus.published(events.BookingCreated) != 0 {
		t.Fatal("Expected no event for rejected booking")
	}
}

func TestCreateBookingOutsideAvailability(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("20:00")))
	ce, ok := domain.AsConflict(err)
	if !ok || ce.Kind != domain.ConflictOutsideAvailability {
		t.Fatalf("Expected outside_availability conflict, got %v", err)
	}
}

func TestCreateBookingSlotTaken(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00"))); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	ce, ok := domain.AsConflict(err)
	if !ok || ce.Kind != domain.ConflictSlotTaken {
		t.Fatalf("Expected slot_taken conflict, got %v", err)
	}
	if f.bus.published(events.BookingCreated) != 1 {
		t.Fatal("Expected exactly one created event")
	}
}

// Two guests race for the same slot; exactly one may win.
func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	f := newFixture()

	type result struct {
		booking *domain.Booking
		err     error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("11:00")))
			results <- result{b, err}
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for r := range results {
		if r.err == nil {
			wins++
			continue
		}
		if ce, ok := domain.AsConflict(r.err); ok && ce.Kind == domain.ConflictSlotTaken {
			conflicts++
		} else {
			t.Fatalf("Unexpected error: %v", r.err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("Expected exactly one winner and one slot_taken, got %d/%d", wins, conflicts)
	}
}

func TestRescheduleByToken(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("onto own slot", func(t *testing.T) {
		moved, err := f.svc.RescheduleByToken(context.Background(), created.ID, created.ManageToken, slotOn("10:00"))
		if err != nil {
			t.Fatalf("Expected reschedule onto own interval to pass, got %v", err)
		}
		if !moved.StartAt.Equal(slotOn("10:00")) {
			t.Fatalf("Unexpected start %v", moved.StartAt)
		}
	})

	t.Run("to a new slot", func(t *testing.T) {
		moved, err := f.svc.RescheduleByToken(context.Background(), created.ID, created.ManageToken, slotOn("14:00"))
		if err != nil {
			t.Fatal(err)
		}
		if !moved.StartAt.Equal(slotOn("14:00")) || !moved.EndAt.Equal(slotOn("14:30")) {
			t.Fatalf("Unexpected interval %v-%v", moved.StartAt, moved.EndAt)
		}
		if f.bus.published(events.BookingRescheduled) == 0 {
			t.Fatal("Expected booking.rescheduled event")
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		if _, err := f.svc.RescheduleByToken(context.Background(), created.ID, "bogus", slotOn("15:00")); err != domain.ErrNotFound {
			t.Fatalf("Expected ErrNotFound for wrong token, got %v", err)
		}
	})
}

func TestCancelByTokenIdempotent(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatal(err)
	}

	first, err := f.svc.CancelByToken(context.Background(), created.ID, created.ManageToken)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != domain.BookingCancelled || first.CancelledAt == nil {
		t.Fatal("Expected cancelled booking with timestamp")
	}

	second, err := f.svc.CancelByToken(context.Background(), created.ID, created.ManageToken)
	if err != nil {
		t.Fatalf("Second cancel must not error, got %v", err)
	}
	if !second.CancelledAt.Equal(*first.CancelledAt) {
		t.Fatal("Second cancel must return the original cancellation time")
	}
	if f.bus.published(events.BookingCancelled) != 1 {
		t.Fatal("Expected exactly one cancelled event for repeated cancels")
	}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelByHost(context.Background(), 1, created.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00"))); err != nil {
		t.Fatalf("Expected slot to be free after cancellation, got %v", err)
	}
}

func TestRescheduleCancelledRejected(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelByToken(context.Background(), created.ID, created.ManageToken); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.RescheduleByToken(context.Background(), created.ID, created.ManageToken, slotOn("14:00"))
	if _, ok := domain.AsValidation(err); !ok {
		t.Fatalf("Expected validation error rescheduling a cancelled booking, got %v", err)
	}
}

func TestSendReminder(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateBooking(context.Background(), "dana", "intro-call", bookingReq(slotOn("10:00")))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.SendReminder(context.Background(), 1, created.ID); err != nil {
		t.Fatal(err)
	}
	if f.bus.published(events.BookingReminder) != 1 {
		t.Fatal("Expected booking.reminder event")
	}

	if err := f.svc.SendReminder(context.Background(), 1, 999); err != domain.ErrNotFound {
		t.Fatalf("Expected ErrNotFound for unknown booking, got %v", err)
	}
}
