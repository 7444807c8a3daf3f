package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotwise/schedulr/internal/http/response"
	"github.com/slotwise/schedulr/internal/service"
)

// GuestBookingHandler is the guest's self-service surface, authorized by the
// per-booking manage token instead of an account.
type GuestBookingHandler struct {
	bookings service.BookingService
}

func NewGuestBookingHandler(bookings service.BookingService) *GuestBookingHandler {
	return &GuestBookingHandler{bookings: bookings}
}

func bookingParams(r *http.Request) (int64, string, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, "", false
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		return 0, "", false
	}
	return id, token, true
}

func (h *GuestBookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, token, ok := bookingParams(r)
	if !ok {
		response.BadRequest(w, "booking id and token are required")
		return
	}

	booking, err := h.bookings.GetByToken(r.Context(), id, token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, booking)
}

func (h *GuestBookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, token, ok := bookingParams(r)
	if !ok {
		response.BadRequest(w, "booking id and token are required")
		return
	}

	var patch struct {
		StartAt time.Time `json:"start_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.StartAt.IsZero() {
		response.BadRequest(w, "start_at is required")
		return
	}

	booking, err := h.bookings.RescheduleByToken(r.Context(), id, token, patch.StartAt)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, booking)
}

func (h *GuestBookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, token, ok := bookingParams(r)
	if !ok {
		response.BadRequest(w, "booking id and token are required")
		return
	}

	booking, err := h.bookings.CancelByToken(r.Context(), id, token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       booking.Status,
		"cancelled_at": booking.CancelledAt,
	})
}
