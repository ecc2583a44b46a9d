package store

import (
	"context"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
)

type OutcomeRepository interface {
	Create(ctx context.Context, rec domain.OutcomeRecord) (domain.OutcomeRecord, error)
	Get(ctx context.Context, id uuid.UUID) (domain.OutcomeRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.OutcomeRecord, error)
	// ListPending returns records whose prescription is still PENDING.
	ListPending(ctx context.Context) ([]domain.OutcomeRecord, error)
	UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, status domain.PrescriptionStatus) (domain.OutcomeRecord, error)
}
