package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms/backend/internal/clock"
	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/service/outcomes"
	"hms/backend/internal/store/memory"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	doctor  uuid.UUID
	patient uuid.UUID
}

func newTestServer(t *testing.T, checks map[string]PingFunc) *testServer {
	t.Helper()
	ctx := context.Background()

	users := memory.NewUserRepo()
	doc, err := users.Create(ctx, domain.User{Kind: domain.UserKindDoctor, Username: "doc", Name: "Doc"})
	require.NoError(t, err)
	pat, err := users.Create(ctx, domain.User{Kind: domain.UserKindPatient, Username: "pat", Name: "Pat"})
	require.NoError(t, err)

	apptDB := memory.NewAppointmentRepo()
	availDB := memory.NewAvailabilityRepo()
	clk := clock.NewFixed(monday.Add(-48 * time.Hour))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	appts := appointments.NewService(apptDB, users, availDB, clk, appointments.WithLogger(log))
	avail := availability.NewService(availDB, apptDB, users, clk, availability.WithSweeper(appts), availability.WithLogger(log))

	return &testServer{
		handler: NewRouter(RouterConfig{
			Availability: avail,
			Appointments: appts,
			Outcomes:     outcomes.NewService(memory.NewOutcomeRepo(), users),
			Checks:       checks,
			Env:          "test",
			Version:      "v0",
			Logger:       log,
		}),
		doctor:  doc.ID,
		patient: pat.ID,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) saveMondayMorning(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/availability", SaveAvailabilityRequest{
		DoctorID:       s.doctor.String(),
		WeeklySchedule: map[string]TimeRangeBody{"MONDAY": {Start: "09:00", End: "12:00"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]PingFunc{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("down") },
	})

	rec := s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "down"}, ready.Dependencies)
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	base := "/api/availability"

	rec := s.do(t, http.MethodGet, base+"/doctor/"+s.doctor.String()+"/exists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"exists": false}, decode[map[string]bool](t, rec))

	rec = s.do(t, http.MethodGet, base+"/doctor/"+s.doctor.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.saveMondayMorning(t)

	rec = s.do(t, http.MethodGet, base+"/doctor/"+s.doctor.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[AvailabilityResponse](t, rec)
	assert.Equal(t, TimeRangeBody{Start: "09:00", End: "12:00"}, got.WeeklySchedule["MONDAY"])

	rec = s.do(t, http.MethodGet, base+"/slots?doctorId="+s.doctor.String()+"&date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[AvailableSlotsResponse](t, rec)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, slots.Available)

	rec = s.do(t, http.MethodGet, base+"/slots?doctorId="+s.doctor.String()+"&date=03/02/2026", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, base+"/slots?doctorId=nope&date=2026-03-02", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/range?doctorId="+s.doctor.String()+"&from=2026-03-02&to=2026-03-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rng := decode[RangeResponse](t, rec)
	require.Len(t, rng.Days, 2)
	assert.Len(t, rng.Days[0].Slots, 6)
	assert.Empty(t, rng.Days[1].Slots)

	rec = s.do(t, http.MethodPost, base, SaveAvailabilityRequest{
		DoctorID:       s.doctor.String(),
		WeeklySchedule: map[string]TimeRangeBody{"FUNDAY": {Start: "09:00", End: "12:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base, "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decode[ErrorResponse](t, rec).Error)
}

func TestAppointmentLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.saveMondayMorning(t)

	request := RequestAppointmentRequest{
		DoctorID:  s.doctor.String(),
		PatientID: s.patient.String(),
		StartTime: "2026-03-02T09:00:00Z",
		EndTime:   "2026-03-02T10:00:00Z",
	}
	rec := s.do(t, http.MethodPost, "/api/appointments/request", request)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "REQUESTED", appt.Status)

	request.StartTime, request.EndTime = "2026-03-02T09:30:00", "2026-03-02T10:30:00"
	rec = s.do(t, http.MethodPost, "/api/appointments/request", request)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/availability/full?doctorId="+s.doctor.String()+"&date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[SlotsResponse](t, rec)
	require.Len(t, full.Slots, 6)
	assert.Equal(t, "BOOKED", full.Slots[0].State)
	assert.Equal(t, "BOOKED", full.Slots[1].State)
	assert.Equal(t, "AVAILABLE", full.Slots[2].State)

	rec = s.do(t, http.MethodPut, "/api/appointments/"+appt.ID.String()+"/status?status=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/appointments/"+appt.ID.String()+"/status?status=BOOKED", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BOOKED", decode[AppointmentResponse](t, rec).Status)

	rec = s.do(t, http.MethodPut, "/api/appointments/"+appt.ID.String()+"/status?status=DECLINED", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/appointments/doctors/"+s.doctor.String()+"?status=booked,requested", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/appointments/doctors/"+s.doctor.String()+"?status=PENDING", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/appointments/reschedule", RescheduleRequest{
		AppointmentID: appt.ID.String(),
		StartTime:     "2026-03-02T11:00:00Z",
		EndTime:       "2026-03-02T11:30:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	moved := decode[AppointmentResponse](t, rec)
	assert.NotEqual(t, appt.ID, moved.ID)

	rec = s.do(t, http.MethodGet, "/api/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode[AppointmentResponse](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/appointments/"+appt.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/appointments/patients/"+s.patient.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 2)

	rec = s.do(t, http.MethodDelete, "/api/appointments/"+moved.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/appointments/"+moved.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/appointments/"+moved.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/appointments/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]AppointmentResponse](t, rec))
}

func TestOutcomeEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/outcomes", CreateOutcomeRequest{
		DoctorID:     s.doctor.String(),
		PatientID:    s.patient.String(),
		Diagnosis:    "flu",
		Prescription: "rest",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[OutcomeResponse](t, rec)
	assert.Equal(t, "PENDING", created.PrescriptionStatus)

	rec = s.do(t, http.MethodGet, "/api/outcomes/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OutcomeResponse](t, rec), 1)

	rec = s.do(t, http.MethodPut, "/api/outcomes/"+created.ID.String()+"/prescription-status?status=dispensed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DISPENSED", decode[OutcomeResponse](t, rec).PrescriptionStatus)

	rec = s.do(t, http.MethodGet, "/api/outcomes/patients/"+s.patient.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OutcomeResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/outcomes/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/outcomes", CreateOutcomeRequest{
		DoctorID:  s.patient.String(),
		PatientID: s.patient.String(),
		Diagnosis: "flu",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
