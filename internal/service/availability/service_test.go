package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms/backend/internal/clock"
	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/store"
	"hms/backend/internal/store/memory"
)

// 2026-03-02 is a Monday.
const mondayDate = "2026-03-02"

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	appts   *appointments.Service
	avail   *memory.AvailabilityRepo
	apptDB  *memory.AppointmentRepo
	clock   *clock.Fixed
	doctor  uuid.UUID
	patient uuid.UUID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	users := memory.NewUserRepo()
	doc, err := users.Create(ctx, domain.User{Kind: domain.UserKindDoctor, Username: "doc", Name: "Doc"})
	require.NoError(t, err)
	pat, err := users.Create(ctx, domain.User{Kind: domain.UserKindPatient, Username: "pat", Name: "Pat"})
	require.NoError(t, err)

	apptDB := memory.NewAppointmentRepo()
	avail := memory.NewAvailabilityRepo()
	clk := clock.NewFixed(monday.Add(-48 * time.Hour))
	appts := appointments.NewService(apptDB, users, avail, clk)

	opts = append([]Option{WithSweeper(appts)}, opts...)
	return &fixture{
		svc:     NewService(avail, apptDB, users, clk, opts...),
		appts:   appts,
		avail:   avail,
		apptDB:  apptDB,
		clock:   clk,
		doctor:  doc.ID,
		patient: pat.ID,
	}
}

func (f *fixture) openMondayMorning(t *testing.T, unavailable ...time.Time) {
	t.Helper()
	_, err := f.svc.Save(context.Background(), SaveInput{
		DoctorID:         f.doctor,
		Weekly:           domain.WeeklySchedule{time.Monday: {Start: 9 * 60, End: 12 * 60}},
		UnavailableSlots: unavailable,
	})
	require.NoError(t, err)
}

func (f *fixture) appointment(t *testing.T, start time.Time, d time.Duration, status domain.AppointmentStatus) domain.Appointment {
	t.Helper()
	a, err := f.appts.Create(context.Background(), appointments.CreateInput{
		DoctorID:  f.doctor,
		PatientID: f.patient,
		StartTime: start,
		EndTime:   start.Add(d),
	})
	require.NoError(t, err)
	switch status {
	case domain.AppointmentStatusRequested:
	case domain.AppointmentStatusCancelled:
		a, err = f.appts.Cancel(context.Background(), a.ID)
	default:
		a, err = f.appts.UpdateStatus(context.Background(), a.ID, status)
	}
	require.NoError(t, err)
	return a
}

func states(slots []domain.Slot) map[string]domain.SlotState {
	out := make(map[string]domain.SlotState, len(slots))
	for _, s := range slots {
		out[s.Start.String()] = s.State
	}
	return out
}

func TestComputeSlots_OpenMorningAllAvailable(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)

	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	require.Len(t, slots, len(want))
	for i, s := range slots {
		assert.Equal(t, want[i], s.Start.String())
		assert.Equal(t, domain.SlotStateAvailable, s.State)
		assert.True(t, s.Instant.Equal(monday.Add(time.Duration(s.Start)*time.Minute)))
	}
}

func TestComputeSlots_BookedAppointmentOccupiesItsSlots(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)
	f.appointment(t, monday.Add(10*time.Hour), time.Hour, domain.AppointmentStatusBooked)

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.SlotState{
		"09:00": domain.SlotStateAvailable,
		"09:30": domain.SlotStateAvailable,
		"10:00": domain.SlotStateBooked,
		"10:30": domain.SlotStateBooked,
		"11:00": domain.SlotStateAvailable,
		"11:30": domain.SlotStateAvailable,
	}, states(slots))
}

func TestComputeSlots_StatusesThatOccupy(t *testing.T) {
	tests := []struct {
		status domain.AppointmentStatus
		booked bool
	}{
		{domain.AppointmentStatusRequested, true},
		{domain.AppointmentStatusBooked, true},
		{domain.AppointmentStatusCompleted, true},
		{domain.AppointmentStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			f.openMondayMorning(t)
			f.appointment(t, monday.Add(9*time.Hour), 30*time.Minute, tt.status)

			slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
			require.NoError(t, err)
			want := domain.SlotStateAvailable
			if tt.booked {
				want = domain.SlotStateBooked
			}
			assert.Equal(t, want, states(slots)["09:00"])
		})
	}
}

func TestComputeSlots_UnalignedAppointmentBooksContainedSlotsOnly(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)
	f.appointment(t, monday.Add(10*time.Hour+15*time.Minute), 30*time.Minute, domain.AppointmentStatusBooked)

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	got := states(slots)
	assert.Equal(t, domain.SlotStateAvailable, got["10:00"])
	assert.Equal(t, domain.SlotStateBooked, got["10:30"])
}

func TestComputeSlots_EmptyWithoutSchedule(t *testing.T) {
	f := newFixture(t)

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)

	f.openMondayMorning(t)
	slots, err = f.svc.ComputeSlots(context.Background(), f.doctor, "2026-03-03")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestComputeSlots_MalformedDate(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)

	for _, in := range []string{"", "02/03/2026", "2026-13-01", "tomorrow"} {
		_, err := f.svc.ComputeSlots(context.Background(), f.doctor, in)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), "input %q: error type = %T, want *ValidationError", in, err)
	}
}

func TestComputeSlots_UnavailableSlotIsBooked(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t, monday.Add(11*time.Hour))

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	got := states(slots)
	assert.Equal(t, domain.SlotStateBooked, got["11:00"])
	assert.Equal(t, domain.SlotStateAvailable, got["11:30"])
}

func TestComputeSlots_ExpiredUnavailableSlotsArePruned(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t, monday.Add(9*time.Hour), monday.Add(11*time.Hour))
	f.clock.Set(monday.Add(10 * time.Hour))

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	got := states(slots)
	assert.Equal(t, domain.SlotStateAvailable, got["09:00"])
	assert.Equal(t, domain.SlotStateBooked, got["11:00"])

	av, err := f.avail.Get(context.Background(), f.doctor)
	require.NoError(t, err)
	require.Len(t, av.UnavailableSlots, 1)
	assert.True(t, av.UnavailableSlots[0].Equal(monday.Add(11*time.Hour)))
}

func TestComputeSlots_DeclinedAppointmentBlocksSlot(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)
	a := f.appointment(t, monday.Add(9*time.Hour+30*time.Minute), time.Hour, domain.AppointmentStatusRequested)

	_, err := f.appts.UpdateStatus(context.Background(), a.ID, domain.AppointmentStatusDeclined)
	require.NoError(t, err)
	require.NoError(t, f.appts.Delete(context.Background(), a.ID))

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	got := states(slots)
	assert.Equal(t, domain.SlotStateBooked, got["09:30"])
	assert.Equal(t, domain.SlotStateAvailable, got["10:00"])
}

func TestComputeSlots_SweepsBeforeReading(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)
	f.appointment(t, monday.Add(9*time.Hour), 30*time.Minute, domain.AppointmentStatusRequested)
	f.clock.Set(monday.Add(10 * time.Hour))

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStateAvailable, states(slots)["09:00"])

	rows, err := f.apptDB.ListByDoctor(context.Background(), f.doctor)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestComputeSlots_UsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	f := newFixture(t, WithLocation(loc))
	f.openMondayMorning(t)
	f.appointment(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), 30*time.Minute, domain.AppointmentStatusBooked)

	slots, err := f.svc.ComputeSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.True(t, slots[0].Instant.Equal(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.SlotStateBooked, states(slots)["10:00"])
}

func TestAvailableSlots_ReturnsFreeTimes(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t, monday.Add(9*time.Hour))
	f.appointment(t, monday.Add(10*time.Hour), time.Hour, domain.AppointmentStatusBooked)

	got, err := f.svc.AvailableSlots(context.Background(), f.doctor, mondayDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30", "11:00", "11:30"}, got)

	got, err = f.svc.AvailableSlots(context.Background(), uuid.New(), mondayDate)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeSlotsRange(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t)

	days, err := f.svc.ComputeSlotsRange(context.Background(), f.doctor, "2026-03-02", "2026-03-09")
	require.NoError(t, err)
	require.Len(t, days, 8)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Len(t, days[0].Slots, 6)
	assert.Empty(t, days[1].Slots)
	assert.Equal(t, "2026-03-09", days[7].Date)
	assert.Len(t, days[7].Slots, 6)

	_, err = f.svc.ComputeSlotsRange(context.Background(), f.doctor, "2026-03-09", "2026-03-02")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = f.svc.ComputeSlotsRange(context.Background(), f.doctor, "2026-03-01", "2026-04-15")
	assert.True(t, errors.As(err, &vErr))
}

func TestSaveAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.doctor)
	assert.ErrorIs(t, err, ErrAvailabilityNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	ok, err := f.svc.Exists(ctx, f.doctor)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Save(ctx, SaveInput{DoctorID: uuid.New(), Weekly: domain.WeeklySchedule{}})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.svc.Save(ctx, SaveInput{DoctorID: f.patient})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.svc.Save(ctx, SaveInput{
		DoctorID: f.doctor,
		Weekly:   domain.WeeklySchedule{time.Friday: {Start: 600, End: 540}},
	})
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	f.openMondayMorning(t, monday.Add(11*time.Hour), monday.Add(11*time.Hour))
	av, err := f.svc.Get(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, domain.TimeRange{Start: 540, End: 720}, av.Weekly[time.Monday])
	assert.Len(t, av.UnavailableSlots, 1)

	ok, err = f.svc.Exists(ctx, f.doctor)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPruneAllExpired(t *testing.T) {
	f := newFixture(t)
	f.openMondayMorning(t, monday.Add(9*time.Hour), monday.Add(11*time.Hour))
	f.clock.Set(monday.Add(12 * time.Hour))

	n, err := f.svc.PruneAllExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
