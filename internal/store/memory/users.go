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

type UserRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{rows: make(map[uuid.UUID]domain.User)}
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.User{}, err
		}
		u.ID = id
	}
	for _, existing := range r.rows {
		if existing.ID == u.ID || existing.Username == u.Username {
			return domain.User{}, store.ErrConflict
		}
	}
	if u.Status == "" {
		u.Status = domain.UserStatusActive
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.rows[u.ID] = u
	return u, nil
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) ListByKind(ctx context.Context, kind domain.UserKind) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0)
	for _, u := range r.rows {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *UserRepo) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(id, domain.UserKindDoctor), nil
}

func (r *UserRepo) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(id, domain.UserKindPatient), nil
}

func (r *UserRepo) exists(id uuid.UUID, kind domain.UserKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	return ok && u.Kind == kind
}
