package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// User is a host: the owner of event types, schedule rules and bookings.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Handle         string    `json:"handle"`
	Timezone       string    `json:"timezone"`
	Bio            string    `json:"bio"`
	WelcomeMessage string    `json:"welcome_message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PublicProfile is the subset of User exposed on the unauthenticated
// booking page.
type PublicProfile struct {
	Name           string `json:"name"`
	Handle         string `json:"handle"`
	Timezone       string `json:"timezone"`
	Bio            string `json:"bio"`
	WelcomeMessage string `json:"welcome_message"`
}

func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		Name:           u.Name,
		Handle:         u.Handle,
		Timezone:       u.Timezone,
		Bio:            u.Bio,
		WelcomeMessage: u.WelcomeMessage,
	}
}

var handleRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,38}[a-z0-9])?$`)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Timezone string `json:"timezone"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Handle = strings.ToLower(strings.TrimSpace(r.Handle))
	r.Timezone = strings.TrimSpace(r.Timezone)
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return NewValidationError("email", "valid email is required")
	}
	if len(r.Password) < 8 {
		return NewValidationError("password", "must be at least 8 characters")
	}
	if r.Name == "" {
		return NewValidationError("name", "is required")
	}
	if !handleRe.MatchString(r.Handle) {
		return NewValidationError("handle", "must be 1-40 lowercase letters, digits or hyphens")
	}
	if _, err := LoadTimezone(r.Timezone); err != nil {
		return NewValidationError("timezone", fmt.Sprintf("unknown timezone %q", r.Timezone))
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return NewValidationError("email", "is required")
	}
	if r.Password == "" {
		return NewValidationError("password", "is required")
	}
	return nil
}
