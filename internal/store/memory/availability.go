package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type AvailabilityRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Availability
}

func NewAvailabilityRepo() *AvailabilityRepo {
	return &AvailabilityRepo{rows: make(map[uuid.UUID]domain.Availability)}
}

func (r *AvailabilityRepo) Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.rows[doctorID]
	if !ok {
		return domain.Availability{}, store.ErrNotFound
	}
	return clone(a), nil
}

func (r *AvailabilityRepo) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rows[doctorID]
	return ok, nil
}

func (r *AvailabilityRepo) Save(ctx context.Context, a domain.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a = clone(a)
	a.UnavailableSlots = domain.NormalizeSlots(a.UnavailableSlots)
	r.rows[a.DoctorID] = a
	return nil
}

func (r *AvailabilityRepo) AddUnavailable(ctx context.Context, doctorID uuid.UUID, slot time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[doctorID]
	if !ok {
		return store.ErrNotFound
	}
	a.UnavailableSlots = domain.NormalizeSlots(append(a.UnavailableSlots, slot))
	r.rows[doctorID] = a
	return nil
}

func (r *AvailabilityRepo) PruneExpired(ctx context.Context, doctorID uuid.UUID, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[doctorID]
	if !ok {
		return 0, nil
	}
	n := prune(&a, now)
	r.rows[doctorID] = a
	return n, nil
}

func (r *AvailabilityRepo) PruneAllExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for id, a := range r.rows {
		total += prune(&a, now)
		r.rows[id] = a
	}
	return total, nil
}

func prune(a *domain.Availability, now time.Time) int {
	kept := a.UnavailableSlots[:0:0]
	for _, t := range a.UnavailableSlots {
		if t.After(now) {
			kept = append(kept, t)
		}
	}
	removed := len(a.UnavailableSlots) - len(kept)
	a.UnavailableSlots = kept
	return removed
}

func clone(a domain.Availability) domain.Availability {
	a.Weekly = maps.Clone(a.Weekly)
	if a.Weekly == nil {
		a.Weekly = domain.WeeklySchedule{}
	}
	a.UnavailableSlots = append([]time.Time(nil), a.UnavailableSlots...)
	return a
}
