// Package memory keeps every repository in process memory. It backs the
// test suites and the memory store driver.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type AppointmentRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Appointment
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{rows: make(map[uuid.UUID]domain.Appointment)}
}

// InTx holds the write lock for the whole callback and restores the
// previous rows if fn fails.
func (r *AppointmentRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := maps.Clone(r.rows)
	if err := fn(ctx, appointmentTx{rows: r.rows}); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return appointmentTx{rows: r.rows}.Get(ctx, id)
}

func (r *AppointmentRepo) Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return appointmentTx{rows: r.rows}.Overlapping(ctx, doctorID, start, end)
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return appointmentTx{rows: r.rows}.Create(ctx, appt)
}

func (r *AppointmentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return appointmentTx{rows: r.rows}.TransitionStatus(ctx, id, from, to)
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID, statuses ...domain.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return appointmentTx{rows: r.rows}.Delete(ctx, id, statuses...)
}

func (r *AppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool {
		return a.DoctorID == doctorID && (len(statuses) == 0 || slices.Contains(statuses, a.Status))
	}), nil
}

func (r *AppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool {
		return a.PatientID != nil && *a.PatientID == patientID
	}), nil
}

func (r *AppointmentRepo) ListByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool {
		return a.Status == status
	}), nil
}

func (r *AppointmentRepo) ListEndedBefore(ctx context.Context, before time.Time, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool {
		return a.EndTime.Before(before) && (len(statuses) == 0 || slices.Contains(statuses, a.Status))
	}), nil
}

func (r *AppointmentRepo) filter(keep func(domain.Appointment) bool) []domain.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Appointment, 0)
	for _, a := range r.rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out
}

type appointmentTx struct {
	rows map[uuid.UUID]domain.Appointment
}

func (t appointmentTx) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := t.rows[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (t appointmentTx) Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error) {
	out := make([]domain.Appointment, 0)
	for _, a := range t.rows {
		if a.DoctorID != doctorID || !a.Status.Active() {
			continue
		}
		if a.Overlaps(start, end) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (t appointmentTx) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if _, ok := t.rows[appt.ID]; ok {
		return domain.Appointment{}, store.ErrConflict
	}
	// Mirrors the partial unique index on (doctor_id, start_time).
	if appt.Status.Active() {
		for _, a := range t.rows {
			if a.DoctorID == appt.DoctorID && a.Status.Active() && a.StartTime.Equal(appt.StartTime) {
				return domain.Appointment{}, store.ErrConflict
			}
		}
	}

	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}
	t.rows[appt.ID] = appt
	return appt, nil
}

func (t appointmentTx) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	a, ok := t.rows[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	if !slices.Contains(from, a.Status) {
		return domain.Appointment{}, store.ErrInvalidState
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	t.rows[id] = a
	return a, nil
}

func (t appointmentTx) Delete(ctx context.Context, id uuid.UUID, statuses ...domain.AppointmentStatus) error {
	a, ok := t.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if len(statuses) > 0 && !slices.Contains(statuses, a.Status) {
		return store.ErrInvalidState
	}
	delete(t.rows, id)
	return nil
}

func sortAppointments(rows []domain.Appointment) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StartTime.Equal(rows[j].StartTime) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].StartTime.Before(rows[j].StartTime)
	})
}
