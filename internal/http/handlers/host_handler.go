package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slotwise/schedulr/internal/domain"
	mw "github.com/slotwise/schedulr/internal/http/middleware"
	"github.com/slotwise/schedulr/internal/http/response"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/internal/service"
)

// HostHandler is the authenticated settings and dashboard surface. The host
// ID always comes from the verified claims, never from the request body.
type HostHandler struct {
	hosts         service.HostService
	schedules     service.ScheduleService
	bookings      service.BookingService
	notifications postgres.NotificationRepo
}

func NewHostHandler(hosts service.HostService, schedules service.ScheduleService, bookings service.BookingService, notifications postgres.NotificationRepo) *HostHandler {
	return &HostHandler{hosts: hosts, schedules: schedules, bookings: bookings, notifications: notifications}
}

func hostID(r *http.Request) int64 {
	if claims := mw.Claims(r); claims != nil {
		return claims.Sub
	}
	return 0
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// --- profile ---

func (h *HostHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.hosts.GetHost(r.Context(), hostID(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, user)
}

func (h *HostHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		Timezone       string `json:"timezone"`
		Bio            string `json:"bio"`
		WelcomeMessage string `json:"welcome_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.hosts.UpdateProfile(r.Context(), hostID(r), req.Name, req.Timezone, req.Bio, req.WelcomeMessage)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, user)
}

// --- weekly schedule ---

type weeklyRuleDTO struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *HostHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rules, err := h.schedules.GetWeeklyRules(r.Context(), hostID(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *HostHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rules []weeklyRuleDTO `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	rules := make([]domain.WeeklyRule, 0, len(req.Rules))
	for _, dto := range req.Rules {
		start, err := domain.ParseMinuteOfDay(dto.StartTime)
		if err != nil {
			response.BadRequest(w, "start_time must be HH:MM")
			return
		}
		end, err := domain.ParseMinuteOfDay(dto.EndTime)
		if err != nil {
			response.BadRequest(w, "end_time must be HH:MM")
			return
		}
		rules = append(rules, domain.WeeklyRule{
			DayOfWeek:   time.Weekday(dto.DayOfWeek),
			StartMinute: start,
			EndMinute:   end,
		})
	}

	saved, err := h.schedules.ReplaceWeeklyRules(r.Context(), hostID(r), rules)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"rules": saved})
}

// --- date overrides ---

func overrideDate(r *http.Request) (domain.Date, bool) {
	d, err := domain.ParseDate(chi.URLParam(r, "date"))
	return d, err == nil
}

func (h *HostHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := domain.DateOf(now)
	to := from.AddDays(90)
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			response.BadRequest(w, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			response.BadRequest(w, "to must be YYYY-MM-DD")
			return
		}
		to = d
	}

	overrides, err := h.schedules.ListOverrides(r.Context(), hostID(r), from, to)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"overrides": overrides})
}

func (h *HostHandler) GetOverride(w http.ResponseWriter, r *http.Request) {
	date, ok := overrideDate(r)
	if !ok {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	o, err := h.schedules.GetOverride(r.Context(), hostID(r), date)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, o)
}

func (h *HostHandler) PutOverride(w http.ResponseWriter, r *http.Request) {
	date, ok := overrideDate(r)
	if !ok {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	var req struct {
		IsBlocked bool   `json:"is_blocked"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	o := &domain.DateOverride{Date: date, IsBlocked: req.IsBlocked, Reason: req.Reason}
	if !req.IsBlocked {
		start, err := domain.ParseMinuteOfDay(req.StartTime)
		if err != nil {
			response.BadRequest(w, "start_time must be HH:MM")
			return
		}
		end, err := domain.ParseMinuteOfDay(req.EndTime)
		if err != nil {
			response.BadRequest(w, "end_time must be HH:MM")
			return
		}
		o.StartMinute, o.EndMinute = &start, &end
	}

	saved, err := h.schedules.SetOverride(r.Context(), hostID(r), o)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, saved)
}

func (h *HostHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	date, ok := overrideDate(r)
	if !ok {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	if err := h.schedules.RemoveOverride(r.Context(), hostID(r), date); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- event types ---

func (h *HostHandler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	eventTypes, err := h.schedules.ListEventTypes(r.Context(), hostID(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"event_types": eventTypes})
}

func (h *HostHandler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	var req domain.EventTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	et, err := h.schedules.CreateEventType(r.Context(), hostID(r), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, et)
}

func (h *HostHandler) GetEventType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid event type id")
		return
	}

	et, err := h.schedules.GetEventType(r.Context(), hostID(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, et)
}

func (h *HostHandler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid event type id")
		return
	}

	var req domain.EventTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	et, err := h.schedules.UpdateEventType(r.Context(), hostID(r), id, &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, et)
}

func (h *HostHandler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid event type id")
		return
	}

	if err := h.schedules.DeleteEventType(r.Context(), hostID(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- bookings ---

func (h *HostHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(0, 3, 0)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "to must be RFC3339")
			return
		}
		to = t
	}

	var status *domain.BookingStatus
	if v := q.Get("status"); v != "" {
		st, ok := domain.ParseBookingStatus(v)
		if !ok {
			response.BadRequest(w, "status must be confirmed or cancelled")
			return
		}
		status = &st
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	bookings, err := h.bookings.ListHostBookings(r.Context(), hostID(r), from, to, status, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *HostHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid booking id")
		return
	}

	booking, err := h.bookings.CancelByHost(r.Context(), hostID(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       booking.Status,
		"cancelled_at": booking.CancelledAt,
	})
}

func (h *HostHandler) RemindBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid booking id")
		return
	}

	if err := h.bookings.SendReminder(r.Context(), hostID(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"status": "sent"})
}

// --- notifications ---

func (h *HostHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unreadOnly := q.Get("unread") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notifications, err := h.notifications.ListByHost(r.Context(), hostID(r), unreadOnly, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *HostHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.BadRequest(w, "invalid notification id")
		return
	}

	found, err := h.notifications.MarkRead(r.Context(), hostID(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if !found {
		response.NotFound(w, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
