package mailer

import (
	"fmt"
	"time"

	"github.com/slotwise/schedulr/pkg/events"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindReminder     Kind = "reminder"
)

// BookingMailer renders booking lifecycle emails and hands them to a backend.
// It is a best-effort dispatcher: callers log failures and move on, a lost
// email never rolls back a booking.
type BookingMailer struct {
	backend Service
}

func NewBookingMailer(backend Service) *BookingMailer {
	return &BookingMailer{backend: backend}
}

func (m *BookingMailer) SendBookingEmail(kind Kind, ev events.BookingEvent) error {
	loc, err := time.LoadLocation(ev.GuestTimezone)
	if err != nil {
		loc = time.UTC
	}
	when := ev.StartAt.In(loc).Format("Monday, January 2, 2006 at 15:04 MST")

	var subject, text string
	switch kind {
	case KindConfirmation:
		subject = fmt.Sprintf("Confirmed: %s with %s", ev.EventTitle, ev.HostName)
		text = fmt.Sprintf(
			"Hi %s,\n\nYour booking is confirmed.\n\nEvent: %s\nHost: %s\nWhen: %s\nDuration: %d minutes\nLocation: %s\n",
			ev.GuestName, ev.EventTitle, ev.HostName, when, ev.DurationMin, ev.LocationType)
	case KindCancellation:
		subject = fmt.Sprintf("Cancelled: %s with %s", ev.EventTitle, ev.HostName)
		text = fmt.Sprintf(
			"Hi %s,\n\nYour booking on %s has been cancelled.\n",
			ev.GuestName, when)
	case KindReminder:
		subject = fmt.Sprintf("Reminder: %s with %s", ev.EventTitle, ev.HostName)
		text = fmt.Sprintf(
			"Hi %s,\n\nThis is a reminder of your upcoming booking.\n\nEvent: %s\nWhen: %s\n",
			ev.GuestName, ev.EventTitle, when)
	default:
		return fmt.Errorf("unknown email kind %q", kind)
	}

	html := fmt.Sprintf("<pre>%s</pre>", text)
	if _, err := m.backend.Send(ev.GuestEmail, ev.GuestName, subject, text, html); err != nil {
		return err
	}

	// Hosts get the same note for bookings made against their calendar.
	_, err = m.backend.Send(ev.HostEmail, ev.HostName, subject, text, html)
	return err
}
