package domain

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingConfirmed, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// Booking is a confirmed reservation of a host's time. Instants are stored
// in UTC; conversion to wall clock happens only at display boundaries.
// Lifecycle: created confirmed, transitions only to cancelled (terminal).
// A reschedule updates start/end while the booking stays confirmed.
type Booking struct {
	ID            int64         `json:"id"`
	HostUserID    int64         `json:"host_user_id"`
	EventTypeID   int64         `json:"event_type_id"`
	ManageToken   string        `json:"manage_token,omitempty"`
	Status        BookingStatus `json:"status"`
	GuestName     string        `json:"guest_name"`
	GuestEmail    string        `json:"guest_email"`
	GuestTimezone string        `json:"guest_timezone"`
	StartAt       time.Time     `json:"start_at"`
	EndAt         time.Time     `json:"end_at"`
	Notes         string        `json:"notes"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// BusyInterval is the booking's range widened by its event type's buffers,
// the unit the resolver and the conflict guard treat as occupied.
func (b *Booking) BusyInterval(bufferBefore, bufferAfter time.Duration) (time.Time, time.Time) {
	return b.StartAt.Add(-bufferBefore), b.EndAt.Add(bufferAfter)
}

// BookingRequest is a guest's submission from the public booking page.
type BookingRequest struct {
	StartAt       time.Time `json:"start_at"`
	GuestName     string    `json:"guest_name"`
	GuestEmail    string    `json:"guest_email"`
	GuestTimezone string    `json:"guest_timezone"`
	Notes         string    `json:"notes"`
}

func (r *BookingRequest) Normalize() {
	r.GuestName = strings.TrimSpace(r.GuestName)
	r.GuestEmail = strings.ToLower(strings.TrimSpace(r.GuestEmail))
	r.GuestTimezone = strings.TrimSpace(r.GuestTimezone)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *BookingRequest) Validate() error {
	if r.StartAt.IsZero() {
		return NewValidationError("start_at", "is required")
	}
	if r.GuestName == "" {
		return NewValidationError("guest_name", "is required")
	}
	if r.GuestEmail == "" || !strings.Contains(r.GuestEmail, "@") {
		return NewValidationError("guest_email", "valid email is required")
	}
	if r.GuestTimezone != "" {
		if _, err := LoadTimezone(r.GuestTimezone); err != nil {
			return NewValidationError("guest_timezone", "unknown timezone")
		}
	}
	return nil
}

// ReschedulePatch moves an existing booking to a new start time.
type ReschedulePatch struct {
	StartAt time.Time `json:"start_at"`
}
