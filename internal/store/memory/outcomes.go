package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type OutcomeRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.OutcomeRecord
}

func NewOutcomeRepo() *OutcomeRepo {
	return &OutcomeRepo{rows: make(map[uuid.UUID]domain.OutcomeRecord)}
}

func (r *OutcomeRepo) Create(ctx context.Context, rec domain.OutcomeRecord) (domain.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.OutcomeRecord{}, err
		}
		rec.ID = id
	}
	if _, ok := r.rows[rec.ID]; ok {
		return domain.OutcomeRecord{}, store.ErrConflict
	}
	if rec.PrescriptionStatus == "" {
		rec.PrescriptionStatus = domain.PrescriptionStatusPending
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.rows[rec.ID] = rec
	return rec, nil
}

func (r *OutcomeRepo) Get(ctx context.Context, id uuid.UUID) (domain.OutcomeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rows[id]
	if !ok {
		return domain.OutcomeRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *OutcomeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.OutcomeRecord, error) {
	return r.filter(func(rec domain.OutcomeRecord) bool { return rec.PatientID == patientID }), nil
}

func (r *OutcomeRepo) ListPending(ctx context.Context) ([]domain.OutcomeRecord, error) {
	return r.filter(func(rec domain.OutcomeRecord) bool {
		return rec.PrescriptionStatus == domain.PrescriptionStatusPending
	}), nil
}

func (r *OutcomeRepo) UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, status domain.PrescriptionStatus) (domain.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[id]
	if !ok {
		return domain.OutcomeRecord{}, store.ErrNotFound
	}
	rec.PrescriptionStatus = status
	rec.UpdatedAt = time.Now().UTC()
	r.rows[id] = rec
	return rec, nil
}

func (r *OutcomeRepo) filter(keep func(domain.OutcomeRecord) bool) []domain.OutcomeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.OutcomeRecord, 0)
	for _, rec := range r.rows {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
