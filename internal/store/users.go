package store

import (
	"context"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
)

type UserDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type UserRepository interface {
	UserDirectory

	Create(ctx context.Context, u domain.User) (domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (domain.User, error)
	ListByKind(ctx context.Context, kind domain.UserKind) ([]domain.User, error)
}
