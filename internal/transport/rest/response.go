package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hms/backend/internal/service/appointments"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/service/outcomes"
	"hms/backend/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func isValidation(err error) bool {
	var a *appointments.ValidationError
	var b *availability.ValidationError
	var c *outcomes.ValidationError
	return errors.As(err, &a) || errors.As(err, &b) || errors.As(err, &c)
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected
// errors are logged and masked.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case isValidation(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("request failed", slog.Any("err", err), slog.String("request_id", GetRequestID(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
