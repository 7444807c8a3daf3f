package domain

import (
	"regexp"
	"strings"
	"time"
)

type LocationType string

const (
	LocationVideo    LocationType = "video"
	LocationPhone    LocationType = "phone"
	LocationInPerson LocationType = "in_person"
)

func ParseLocationType(s string) (LocationType, bool) {
	switch LocationType(s) {
	case LocationVideo, LocationPhone, LocationInPerson:
		return LocationType(s), true
	default:
		return "", false
	}
}

// EventType is a bookable meeting template owned by exactly one host.
// Duration and buffers size and space the slots the resolver produces.
type EventType struct {
	ID              int64        `json:"id"`
	HostUserID      int64        `json:"host_user_id"`
	Slug            string       `json:"slug"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	DurationMin     int          `json:"duration_min"`
	BufferBeforeMin int          `json:"buffer_before_min"`
	BufferAfterMin  int          `json:"buffer_after_min"`
	LocationType    LocationType `json:"location_type"`
	PriceCents      int64        `json:"price_cents"`
	Currency        string       `json:"currency"`
	IsActive        bool         `json:"is_active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (e *EventType) Duration() time.Duration {
	return time.Duration(e.DurationMin) * time.Minute
}

func (e *EventType) BufferBefore() time.Duration {
	return time.Duration(e.BufferBeforeMin) * time.Minute
}

func (e *EventType) BufferAfter() time.Duration {
	return time.Duration(e.BufferAfterMin) * time.Minute
}

var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,62}[a-z0-9])?$`)

type EventTypeRequest struct {
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMin     int    `json:"duration_min"`
	BufferBeforeMin int    `json:"buffer_before_min"`
	BufferAfterMin  int    `json:"buffer_after_min"`
	LocationType    string `json:"location_type"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	IsActive        *bool  `json:"is_active"`
}

func (r *EventTypeRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.LocationType == "" {
		r.LocationType = string(LocationVideo)
	}
	if r.Currency == "" {
		r.Currency = "usd"
	}
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
}

func (r *EventTypeRequest) Validate() error {
	if !slugRe.MatchString(r.Slug) {
		return NewValidationError("slug", "must be 1-64 lowercase letters, digits or hyphens")
	}
	if r.Title == "" {
		return NewValidationError("title", "is required")
	}
	if r.DurationMin < 5 || r.DurationMin > 24*60 {
		return NewValidationError("duration_min", "must be between 5 and 1440")
	}
	if r.BufferBeforeMin < 0 || r.BufferAfterMin < 0 {
		return NewValidationError("buffer", "must not be negative")
	}
	if _, ok := ParseLocationType(r.LocationType); !ok {
		return NewValidationError("location_type", "must be video, phone or in_person")
	}
	if r.PriceCents < 0 {
		return NewValidationError("price_cents", "must not be negative")
	}
	return nil
}
