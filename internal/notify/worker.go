package notify

import (
	"context"
	"encoding/json"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/pkg/events"
	"github.com/slotwise/schedulr/pkg/logger"
)

// Worker turns booking lifecycle events into in-app notification rows.
// Delivery is at-least-once: the queue group redelivers on consumer restart
// and a duplicate row is harmless, but a failed insert is only logged, never
// retried.
type Worker struct {
	bus  events.Subscriber
	repo postgres.NotificationRepo
}

func NewWorker(bus events.Subscriber, repo postgres.NotificationRepo) *Worker {
	return &Worker{bus: bus, repo: repo}
}

func (w *Worker) Start() error {
	subjects := map[string]domain.NotificationKind{
		events.BookingCreated:     domain.NotifyBookingCreated,
		events.BookingCancelled:   domain.NotifyBookingCancelled,
		events.BookingRescheduled: domain.NotifyBookingRescheduled,
	}

	for subject, kind := range subjects {
		kind := kind
		if err := w.bus.QueueSubscribe(subject, "notify", func(msg *events.Message) {
			w.handle(kind, msg)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) handle(kind domain.NotificationKind, msg *events.Message) {
	ctx := context.Background()

	var ev events.BookingEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Dropping malformed booking event", "subject", msg.Subject, "error", err)
		return
	}

	if _, err := w.repo.Insert(ctx, ev.HostUserID, kind, msg.Data); err != nil {
		logger.Error("Failed to insert notification", "error", err,
			"kind", string(kind), "booking_id", ev.BookingID)
		return
	}

	logger.Debug("Notification recorded", "kind", string(kind), "booking_id", ev.BookingID)
}
