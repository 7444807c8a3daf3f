package service

import (
	"context"
	"fmt"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/repo/postgres"
)

// ScheduleService covers the host's settings surface: weekly rules, date
// overrides and event types. Every operation takes the acting host's ID
// explicitly and the repos scope every query to it.
type ScheduleService interface {
	GetWeeklyRules(ctx context.Context, hostID int64) ([]domain.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, hostID int64, rules []domain.WeeklyRule) ([]domain.WeeklyRule, error)
	GetOverride(ctx context.Context, hostID int64, date domain.Date) (*domain.DateOverride, error)
	ListOverrides(ctx context.Context, hostID int64, from, to domain.Date) ([]domain.DateOverride, error)
	SetOverride(ctx context.Context, hostID int64, o *domain.DateOverride) (*domain.DateOverride, error)
	RemoveOverride(ctx context.Context, hostID int64, date domain.Date) error

	CreateEventType(ctx context.Context, hostID int64, req *domain.EventTypeRequest) (*domain.EventType, error)
	GetEventType(ctx context.Context, hostID, id int64) (*domain.EventType, error)
	ListEventTypes(ctx context.Context, hostID int64) ([]domain.EventType, error)
	UpdateEventType(ctx context.Context, hostID, id int64, req *domain.EventTypeRequest) (*domain.EventType, error)
	DeleteEventType(ctx context.Context, hostID, id int64) error
}

type scheduleService struct {
	scheduleRepo  postgres.ScheduleRepo
	eventTypeRepo postgres.EventTypeRepo
}

func NewScheduleService(scheduleRepo postgres.ScheduleRepo, eventTypeRepo postgres.EventTypeRepo) ScheduleService {
	return &scheduleService{scheduleRepo: scheduleRepo, eventTypeRepo: eventTypeRepo}
}

func (s *scheduleService) GetWeeklyRules(ctx context.Context, hostID int64) ([]domain.WeeklyRule, error) {
	return s.scheduleRepo.ListWeeklyRules(ctx, hostID)
}

func (s *scheduleService) ReplaceWeeklyRules(ctx context.Context, hostID int64, rules []domain.WeeklyRule) ([]domain.WeeklyRule, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	out, err := s.scheduleRepo.ReplaceWeeklyRules(ctx, hostID, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to replace weekly rules: %w", err)
	}
	return out, nil
}

func (s *scheduleService) GetOverride(ctx context.Context, hostID int64, date domain.Date) (*domain.DateOverride, error) {
	o, err := s.scheduleRepo.GetOverride(ctx, hostID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *scheduleService) ListOverrides(ctx context.Context, hostID int64, from, to domain.Date) ([]domain.DateOverride, error) {
	return s.scheduleRepo.ListOverrides(ctx, hostID, from, to)
}

func (s *scheduleService) SetOverride(ctx context.Context, hostID int64, o *domain.DateOverride) (*domain.DateOverride, error) {
	o.HostUserID = hostID
	if err := o.Validate(); err != nil {
		return nil, err
	}
	out, err := s.scheduleRepo.UpsertOverride(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert override: %w", err)
	}
	return out, nil
}

func (s *scheduleService) RemoveOverride(ctx context.Context, hostID int64, date domain.Date) error {
	found, err := s.scheduleRepo.DeleteOverride(ctx, hostID, date)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

func (s *scheduleService) CreateEventType(ctx context.Context, hostID int64, req *domain.EventTypeRequest) (*domain.EventType, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	et, err := s.eventTypeRepo.Create(ctx, hostID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create event type: %w", err)
	}
	return et, nil
}

func (s *scheduleService) GetEventType(ctx context.Context, hostID, id int64) (*domain.EventType, error) {
	et, err := s.eventTypeRepo.GetByID(ctx, hostID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event type: %w", err)
	}
	if et == nil {
		return nil, domain.ErrNotFound
	}
	return et, nil
}

func (s *scheduleService) ListEventTypes(ctx context.Context, hostID int64) ([]domain.EventType, error) {
	return s.eventTypeRepo.ListByHost(ctx, hostID, false)
}

func (s *scheduleService) UpdateEventType(ctx context.Context, hostID, id int64, req *domain.EventTypeRequest) (*domain.EventType, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	et, err := s.eventTypeRepo.Update(ctx, hostID, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update event type: %w", err)
	}
	if et == nil {
		return nil, domain.ErrNotFound
	}
	return et, nil
}

func (s *scheduleService) DeleteEventType(ctx context.Context, hostID, id int64) error {
	found, err := s.eventTypeRepo.Delete(ctx, hostID, id)
	if err != nil {
		return fmt.Errorf("failed to delete event type: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}
