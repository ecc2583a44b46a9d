package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
	"hms/backend/internal/store/memory"
)

func TestSweep_CompletesBookedAndDeletesStale(t *testing.T) {
	f := newFixture(t, WithSweepOnRead(false))
	ctx := context.Background()

	booked := f.book(t, 9, 0, 30)
	requested := f.request(t, 10, 0, 30)
	cancelled := f.request(t, 11, 0, 30)
	_, err := f.svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	future := f.book(t, 15, 0, 30)

	f.clock.Set(monday.Add(12 * time.Hour))

	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Completed: 1, Deleted: 2}, res)

	got, err := f.repo.Get(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, got.Status)

	_, err = f.repo.Get(ctx, requested.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.repo.Get(ctx, cancelled.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err = f.repo.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusBooked, got.Status)
}

func TestSweep_EndEqualToNowIsNotSwept(t *testing.T) {
	f := newFixture(t, WithSweepOnRead(false))
	ctx := context.Background()
	a := f.request(t, 9, 0, 30)

	f.clock.Set(a.EndTime)
	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)

	f.clock.Advance(time.Nanosecond)
	res, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
}

func TestSweep_IsIdempotent(t *testing.T) {
	f := newFixture(t, WithSweepOnRead(false))
	ctx := context.Background()
	f.book(t, 9, 0, 30)
	f.request(t, 10, 0, 30)
	f.clock.Set(monday.Add(12 * time.Hour))

	_, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	first, err := f.repo.ListByDoctor(ctx, f.doctor)
	require.NoError(t, err)

	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	second, err := f.repo.ListByDoctor(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReads_SweepBeforeReturning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := f.book(t, 9, 0, 30)
	requested := f.request(t, 10, 0, 30)
	f.clock.Set(monday.Add(12 * time.Hour))

	got, err := f.svc.Get(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, got.Status)

	_, err = f.svc.Get(ctx, requested.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	byPatient, err := f.svc.ListByPatient(ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, booked.ID, byPatient[0].ID)

	completed, err := f.svc.ListByDoctor(ctx, f.doctor, domain.AppointmentStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

// flakyRepo fails status transitions for one id.
type flakyRepo struct {
	*memory.AppointmentRepo
	failID uuid.UUID
}

var errWrite = errors.New("write failed")

func (r *flakyRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	if id == r.failID {
		return domain.Appointment{}, errWrite
	}
	return r.AppointmentRepo.TransitionStatus(ctx, id, from, to)
}

func TestSweep_RowFailureDoesNotAbortOthers(t *testing.T) {
	f := newFixture(t, WithSweepOnRead(false))
	ctx := context.Background()

	bad := f.book(t, 9, 0, 30)
	good := f.book(t, 10, 0, 30)
	stale := f.request(t, 11, 0, 30)

	repo := &flakyRepo{AppointmentRepo: f.repo, failID: bad.ID}
	svc := NewService(repo, memory.NewUserRepo(), f.avail, f.clock)
	f.clock.Set(monday.Add(12 * time.Hour))

	res, err := svc.Sweep(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, SweepResult{Completed: 1, Deleted: 1}, res)

	got, err := f.repo.Get(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, got.Status)

	got, err = f.repo.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusBooked, got.Status)

	_, err = f.repo.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
