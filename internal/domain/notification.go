package domain

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	NotifyBookingCreated     NotificationKind = "booking_created"
	NotifyBookingCancelled   NotificationKind = "booking_cancelled"
	NotifyBookingRescheduled NotificationKind = "booking_rescheduled"
)

// Notification is one row in a host's in-app feed. Delivery is at-least-once:
// duplicates are tolerated, lost rows are not retried.
type Notification struct {
	ID         int64            `json:"id"`
	HostUserID int64            `json:"host_user_id"`
	Kind       NotificationKind `json:"kind"`
	Payload    json.RawMessage  `json:"payload"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
