package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
)

// AppointmentTx is the set of appointment operations that may run inside a transaction.
type AppointmentTx interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	// Overlapping returns non-cancelled appointments of doctorID intersecting [start, end).
	Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error)
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	// TransitionStatus moves id to `to` only if its current status is one of `from`.
	// It returns ErrNotFound for unknown ids and ErrInvalidState when the guard fails.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error)
	// Delete removes id. When statuses is non-empty the row must be in one of them.
	Delete(ctx context.Context, id uuid.UUID, statuses ...domain.AppointmentStatus) error
}

type AppointmentRepository interface {
	AppointmentTx

	InTx(ctx context.Context, fn func(ctx context.Context, tx AppointmentTx) error) error

	ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	ListByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error)
	// ListEndedBefore returns rows in statuses whose end is strictly before the given instant.
	ListEndedBefore(ctx context.Context, before time.Time, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error)
}
