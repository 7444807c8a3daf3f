package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/pkg/logger"
)

// ErrorResponse is the JSON error envelope every endpoint uses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeSlotTaken           = "SLOT_TAKEN"
	CodeOutsideAvailability = "OUTSIDE_AVAILABILITY"
	CodeDateBlocked         = "DATE_BLOCKED"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	CodeInternalError       = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// WriteDomainError maps the domain error taxonomy onto HTTP statuses. A
// conflict comes back 409 with its kind, so the client knows to re-fetch
// fresh availability.
func WriteDomainError(w http.ResponseWriter, err error) {
	if ve, ok := domain.AsValidation(err); ok {
		WriteError(w, http.StatusBadRequest, ve.Error(), CodeInvalidInput)
		return
	}
	if ce, ok := domain.AsConflict(err); ok {
		code := CodeSlotTaken
		switch ce.Kind {
		case domain.ConflictOutsideAvailability:
			code = CodeOutsideAvailability
		case domain.ConflictDateBlocked:
			code = CodeDateBlocked
		}
		WriteError(w, http.StatusConflict, ce.Error(), code)
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found", CodeNotFound)
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "invalid credentials", CodeUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", CodeForbidden)
	default:
		logger.Error("Unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
