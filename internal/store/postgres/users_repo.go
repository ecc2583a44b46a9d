package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ store.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if _, err := r.db.NewInsert().Model(&u).Exec(ctx); err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepo) ListByKind(ctx context.Context, kind domain.UserKind) ([]domain.User, error) {
	var rows []domain.User
	err := r.db.NewSelect().
		Model(&rows).
		Where("kind = ?", kind).
		OrderExpr("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *UserRepo) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, id, domain.UserKindDoctor)
}

func (r *UserRepo) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, id, domain.UserKindPatient)
}

func (r *UserRepo) exists(ctx context.Context, id uuid.UUID, kind domain.UserKind) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*domain.User)(nil)).
		Where("id = ?", id).
		Where("kind = ?", kind).
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}
