package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/slotwise/schedulr/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	BookingCreated     = "booking.created"
	BookingRescheduled = "booking.rescheduled"
	BookingCancelled   = "booking.cancelled"
	BookingReminder    = "booking.reminder"
)

// BookingEvent is the snapshot carried by every booking lifecycle event. The
// dispatchers are best-effort consumers; the payload has to be self-contained
// so they never need to read the store.
type BookingEvent struct {
	BookingID     int64     `json:"booking_id"`
	HostUserID    int64     `json:"host_user_id"`
	HostEmail     string    `json:"host_email"`
	HostName      string    `json:"host_name"`
	EventTitle    string    `json:"event_title"`
	DurationMin   int       `json:"duration_min"`
	LocationType  string    `json:"location_type"`
	GuestName     string    `json:"guest_name"`
	GuestEmail    string    `json:"guest_email"`
	GuestTimezone string    `json:"guest_timezone"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	OccurredAt    time.Time `json:"occurred_at"`
}
