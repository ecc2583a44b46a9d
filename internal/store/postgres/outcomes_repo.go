package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type OutcomeRepo struct {
	db *bun.DB
}

func NewOutcomeRepo(db *bun.DB) *OutcomeRepo {
	return &OutcomeRepo{db: db}
}

var _ store.OutcomeRepository = (*OutcomeRepo)(nil)

func (r *OutcomeRepo) Create(ctx context.Context, rec domain.OutcomeRecord) (domain.OutcomeRecord, error) {
	if _, err := r.db.NewInsert().Model(&rec).Exec(ctx); err != nil {
		return domain.OutcomeRecord{}, mapError(err)
	}
	return rec, nil
}

func (r *OutcomeRepo) Get(ctx context.Context, id uuid.UUID) (domain.OutcomeRecord, error) {
	var rec domain.OutcomeRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.OutcomeRecord{}, mapError(err)
	}
	return rec, nil
}

func (r *OutcomeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.OutcomeRecord, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("patient_id = ?", patientID)
	})
}

func (r *OutcomeRepo) ListPending(ctx context.Context) ([]domain.OutcomeRecord, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("prescription_status = ?", domain.PrescriptionStatusPending)
	})
}

func (r *OutcomeRepo) UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, status domain.PrescriptionStatus) (domain.OutcomeRecord, error) {
	rec := domain.OutcomeRecord{ID: id, PrescriptionStatus: status}
	err := r.db.NewUpdate().
		Model(&rec).
		Column("prescription_status", "updated_at").
		WherePK().
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.OutcomeRecord{}, mapError(err)
	}
	return rec, nil
}

func (r *OutcomeRepo) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.OutcomeRecord, error) {
	var rows []domain.OutcomeRecord
	q := filter(r.db.NewSelect().Model(&rows))
	if err := q.OrderExpr("created_at ASC, id ASC").Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}
