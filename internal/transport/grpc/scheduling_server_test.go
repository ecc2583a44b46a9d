package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/store"
)

type fakeSlotsService struct {
	computeFn   func(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error)
	availableFn func(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
}

func (f *fakeSlotsService) ComputeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error) {
	if f.computeFn == nil {
		panic("ComputeSlots not configured")
	}
	return f.computeFn(ctx, doctorID, date)
}

func (f *fakeSlotsService) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	if f.availableFn == nil {
		panic("AvailableSlots not configured")
	}
	return f.availableFn(ctx, doctorID, date)
}

func (f *fakeSlotsService) Location() *time.Location {
	return time.UTC
}

type fakeAppointmentsService struct {
	createFn     func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	cancelFn     func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	rescheduleFn func(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	updateFn     func(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) error
	getFn        func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
}

func (f *fakeAppointmentsService) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointmentsService) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, id)
}

func (f *fakeAppointmentsService) Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, in)
}

func (f *fakeAppointmentsService) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error) {
	if f.updateFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateFn(ctx, id, target)
}

func (f *fakeAppointmentsService) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeAppointmentsService) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: appointments.ErrDoctorNotFound, want: codes.NotFound},
		{err: appointments.ErrSlotBooked, want: codes.AlreadyExists},
		{err: appointments.ErrNotRequested, want: codes.FailedPrecondition},
		{err: fmt.Errorf("wrapped: %w", store.ErrInvalidState), want: codes.FailedPrecondition},
		{err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{err: errors.New("boom"), want: codes.Internal},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Fatalf("Code(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRequestAppointment_RejectsBadInput(t *testing.T) {
	srv := NewSchedulingServer(&fakeSlotsService{}, &fakeAppointmentsService{}, quietLogger())
	ctx := context.Background()

	cases := []map[string]any{
		{"patient_id": uuid.NewString(), "start_time": "2026-03-02T09:00:00Z", "end_time": "2026-03-02T09:30:00Z"},
		{"doctor_id": "nope", "patient_id": uuid.NewString(), "start_time": "2026-03-02T09:00:00Z", "end_time": "2026-03-02T09:30:00Z"},
		{"doctor_id": uuid.NewString(), "patient_id": uuid.NewString(), "end_time": "2026-03-02T09:30:00Z"},
		{"doctor_id": uuid.NewString(), "patient_id": uuid.NewString(), "start_time": "monday", "end_time": "2026-03-02T09:30:00Z"},
	}
	for i, c := range cases {
		_, err := srv.RequestAppointment(ctx, mustStruct(t, c))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("case %d: code = %v, want %v", i, status.Code(err), codes.InvalidArgument)
		}
	}
}

func TestRequestAppointment_MapsSlotBooked(t *testing.T) {
	srv := NewSchedulingServer(&fakeSlotsService{}, &fakeAppointmentsService{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			return domain.Appointment{}, appointments.ErrSlotBooked
		},
	}, quietLogger())

	_, err := srv.RequestAppointment(context.Background(), mustStruct(t, map[string]any{
		"doctor_id":  uuid.NewString(),
		"patient_id": uuid.NewString(),
		"start_time": "2026-03-02T09:00:00Z",
		"end_time":   "2026-03-02T09:30:00Z",
	}))
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.AlreadyExists)
	}
}

func TestInternalErrorsAreMasked(t *testing.T) {
	srv := NewSchedulingServer(&fakeSlotsService{}, &fakeAppointmentsService{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
			return domain.Appointment{}, errors.New("connection reset by peer")
		},
	}, quietLogger())

	_, err := srv.GetAppointment(context.Background(), mustStruct(t, map[string]any{"appointment_id": uuid.NewString()}))
	st, _ := status.FromError(err)
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("status = %v %q, want Internal %q", st.Code(), st.Message(), "internal error")
	}
}

func TestUpdateAppointmentStatus_ParsesStatus(t *testing.T) {
	var got domain.AppointmentStatus
	srv := NewSchedulingServer(&fakeSlotsService{}, &fakeAppointmentsService{
		updateFn: func(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error) {
			got = target
			return domain.Appointment{ID: id, Status: target}, nil
		},
	}, quietLogger())
	ctx := context.Background()
	id := uuid.NewString()

	_, err := srv.UpdateAppointmentStatus(ctx, mustStruct(t, map[string]any{"appointment_id": id, "status": "maybe"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}

	out, err := srv.UpdateAppointmentStatus(ctx, mustStruct(t, map[string]any{"appointment_id": id, "status": "booked"}))
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus error: %v", err)
	}
	if got != domain.AppointmentStatusBooked {
		t.Fatalf("target = %s, want BOOKED", got)
	}
	appt := out.GetFields()["appointment"].GetStructValue()
	if appt.GetFields()["status"].GetStringValue() != "BOOKED" {
		t.Fatalf("response status = %v", appt.GetFields()["status"])
	}
}

func TestDefaultTimeoutInterceptor(t *testing.T) {
	icpt := DefaultTimeoutInterceptor(time.Second)

	_, err := icpt(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatal("expected deadline to be added")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, _ = icpt(parent, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		if got, _ := ctx.Deadline(); !got.Equal(want) {
			t.Fatalf("deadline = %v, want caller's %v", got, want)
		}
		return nil, nil
	})
}

func TestBufconnRoundTrip(t *testing.T) {
	doctor := uuid.New()
	lis := bufconn.Listen(1 << 20)

	server := grpc.NewServer(grpc.UnaryInterceptor(DefaultTimeoutInterceptor(time.Second)))
	RegisterSchedulingServiceServer(server, NewSchedulingServer(&fakeSlotsService{
		computeFn: func(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error) {
			if doctorID != doctor {
				return nil, errors.New("unexpected doctor")
			}
			day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
			return []domain.Slot{
				{Start: 9 * 60, Instant: day.Add(9 * time.Hour), State: domain.SlotStateAvailable},
				{Start: 9*60 + 30, Instant: day.Add(9*time.Hour + 30*time.Minute), State: domain.SlotStateBooked},
			}, nil
		},
	}, &fakeAppointmentsService{}, quietLogger()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := NewClient(conn).Call(ctx, "ComputeSlots", mustStruct(t, map[string]any{
		"doctor_id": doctor.String(),
		"date":      "2026-03-02",
	}))
	if err != nil {
		t.Fatalf("ComputeSlots error: %v", err)
	}
	slots := out.GetFields()["slots"].GetListValue().GetValues()
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	second := slots[1].GetStructValue().GetFields()
	if second["start"].GetStringValue() != "09:30" || second["state"].GetStringValue() != "BOOKED" {
		t.Fatalf("second slot = %v", second)
	}

	_, err = NewClient(conn).Call(ctx, "ComputeSlots", mustStruct(t, map[string]any{"doctor_id": "x"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}

	_, err = NewClient(conn).Call(ctx, "Nope", &structpb.Struct{})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("unknown method code = %v, want %v", status.Code(err), codes.Unimplemented)
	}
}
