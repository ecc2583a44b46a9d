package appointments

import (
	"fmt"

	"hms/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrDoctorNotFound      = fmt.Errorf("doctor %w", store.ErrNotFound)
	ErrPatientNotFound     = fmt.Errorf("patient %w", store.ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", store.ErrNotFound)
	ErrSlotBooked          = fmt.Errorf("slot already booked: %w", store.ErrConflict)
	ErrNotOpen             = fmt.Errorf("appointment is not requested or booked: %w", store.ErrInvalidState)
	ErrNotRequested        = fmt.Errorf("appointment is not awaiting a decision: %w", store.ErrInvalidState)
	ErrNoAvailability      = fmt.Errorf("doctor has no availability configured: %w", store.ErrInvalidState)
)
