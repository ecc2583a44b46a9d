package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
)

type AvailabilityRepository interface {
	// Get returns ErrNotFound when the doctor never configured availability.
	Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error)
	Exists(ctx context.Context, doctorID uuid.UUID) (bool, error)
	// Save replaces the weekly schedule and unavailable slots of a.DoctorID.
	Save(ctx context.Context, a domain.Availability) error
	// AddUnavailable is idempotent and returns ErrNotFound without a configured availability.
	AddUnavailable(ctx context.Context, doctorID uuid.UUID, slot time.Time) error
	// PruneExpired removes unavailable slots at or before now.
	PruneExpired(ctx context.Context, doctorID uuid.UUID, now time.Time) (int, error)
	PruneAllExpired(ctx context.Context, now time.Time) (int, error)
}
