package payments

import (
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/slotwise/schedulr/internal/domain"
)

// StripeIntents creates sandbox payment intents for paid event types. Real
// capture and webhooks are out of scope; the intent is created best-effort so
// a payment provider outage never blocks a booking.
type StripeIntents struct {
	Enabled bool
}

func NewStripeIntents(secretKey string) *StripeIntents {
	if secretKey == "" {
		return &StripeIntents{}
	}
	stripe.Key = secretKey
	return &StripeIntents{Enabled: true}
}

// CreateIntent returns the intent ID, or "" when payments are disabled or
// the event type is free.
func (s *StripeIntents) CreateIntent(et *domain.EventType, b *domain.Booking) (string, error) {
	if !s.Enabled || et.PriceCents <= 0 {
		return "", nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(et.PriceCents),
		Currency: stripe.String(et.Currency),
		Metadata: map[string]string{
			"booking_id":  strconv.FormatInt(b.ID, 10),
			"event_type":  et.Slug,
			"guest_email": b.GuestEmail,
		},
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}
