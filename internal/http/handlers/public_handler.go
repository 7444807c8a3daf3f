package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/http/response"
	"github.com/slotwise/schedulr/internal/schedule"
	"github.com/slotwise/schedulr/internal/service"
)

// PublicHandler serves the unauthenticated booking page: profile, event
// types, resolved availability, and booking submission.
type PublicHandler struct {
	hosts        service.HostService
	availability service.AvailabilityService
	bookings     service.BookingService
}

func NewPublicHandler(hosts service.HostService, availability service.AvailabilityService, bookings service.BookingService) *PublicHandler {
	return &PublicHandler{hosts: hosts, availability: availability, bookings: bookings}
}

type publicProfileResponse struct {
	Profile    domain.PublicProfile `json:"profile"`
	EventTypes []domain.EventType   `json:"event_types"`
}

func (h *PublicHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	host, eventTypes, err := h.hosts.PublicProfile(r.Context(), handle)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, publicProfileResponse{
		Profile:    host.PublicProfile(),
		EventTypes: eventTypes,
	})
}

func (h *PublicHandler) GetEventType(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	slug := chi.URLParam(r, "slug")

	host, eventTypes, err := h.hosts.PublicProfile(r.Context(), handle)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	for _, et := range eventTypes {
		if et.Slug == slug {
			response.WriteJSON(w, http.StatusOK, map[string]any{
				"profile":    host.PublicProfile(),
				"event_type": et,
			})
			return
		}
	}
	response.NotFound(w, "event type not found")
}

type slotsResponse struct {
	Date  string          `json:"date"`
	TZ    string          `json:"tz"`
	Slots []schedule.Slot `json:"slots"`
}

func (h *PublicHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	slug := chi.URLParam(r, "slug")

	date, err := domain.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}
	tz := r.URL.Query().Get("tz")

	slots, err := h.availability.SlotsForDay(r.Context(), handle, slug, date, tz)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, slotsResponse{Date: date.String(), TZ: tz, Slots: slots})
}

func (h *PublicHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	slug := chi.URLParam(r, "slug")

	var req domain.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), handle, slug, &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, booking)
}
