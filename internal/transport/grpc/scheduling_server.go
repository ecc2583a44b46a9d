package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/store"
)

type slotsService interface {
	ComputeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
	Location() *time.Location
}

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
}

type SchedulingServer struct {
	slots slotsService
	appts appointmentsService
	log   *slog.Logger
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

func NewSchedulingServer(slots slotsService, appts appointmentsService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		slots: slots,
		appts: appts,
		log:   log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) ComputeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ComputeSlots"))

	doctorID, err := uuidField(req, "doctor_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	date := stringField(req, "date")

	slots, err := s.slots.ComputeSlots(ctx, doctorID, date)
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("doctor_id", doctorID.String()))
	}
	log.Debug("slots computed", slog.String("doctor_id", doctorID.String()), slog.String("date", date), slog.Int("count", len(slots)))
	return encoded(slotsStruct(date, slots))
}

func (s *SchedulingServer) AvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "AvailableSlots"))

	doctorID, err := uuidField(req, "doctor_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	date := stringField(req, "date")

	starts, err := s.slots.AvailableSlots(ctx, doctorID, date)
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("doctor_id", doctorID.String()))
	}
	return encoded(availableStruct(date, starts))
}

func (s *SchedulingServer) RequestAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "RequestAppointment"))

	doctorID, err := uuidField(req, "doctor_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	patientID, err := uuidField(req, "patient_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	start, end, err := s.window(req)
	if err != nil {
		return nil, invalid(log, err)
	}

	appt, err := s.appts.Create(ctx, appointments.CreateInput{
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("doctor_id", doctorID.String()), slog.Time("start_time", start))
	}

	log.Info(
		"appointment requested",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("doctor_id", doctorID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime),
	)
	return encoded(appointmentStruct(appt))
}

func (s *SchedulingServer) CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	id, err := uuidField(req, "appointment_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	appt, err := s.appts.Cancel(ctx, id)
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("appointment_id", id.String()))
	}
	log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	return encoded(appointmentStruct(appt))
}

func (s *SchedulingServer) RescheduleAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	id, err := uuidField(req, "appointment_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	start, end, err := s.window(req)
	if err != nil {
		return nil, invalid(log, err)
	}

	appt, err := s.appts.Reschedule(ctx, appointments.RescheduleInput{AppointmentID: id, StartTime: start, EndTime: end})
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("appointment_id", id.String()))
	}
	log.Info("appointment rescheduled", slog.String("appointment_id", id.String()), slog.String("replacement_id", appt.ID.String()))
	return encoded(appointmentStruct(appt))
}

func (s *SchedulingServer) UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "UpdateAppointmentStatus"))

	id, err := uuidField(req, "appointment_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	target, ok := domain.ParseAppointmentStatus(stringField(req, "status"))
	if !ok {
		return nil, invalid(log, errors.New("status is not a known appointment status"))
	}

	appt, err := s.appts.UpdateStatus(ctx, id, target)
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("appointment_id", id.String()), slog.String("status", string(target)))
	}
	log.Info("appointment status updated", slog.String("appointment_id", id.String()), slog.String("status", string(appt.Status)))
	return encoded(appointmentStruct(appt))
}

func (s *SchedulingServer) DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteAppointment"))

	id, err := uuidField(req, "appointment_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	if err := s.appts.Delete(ctx, id); err != nil {
		return nil, s.toStatus(log, err, slog.String("appointment_id", id.String()))
	}
	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	return &structpb.Struct{}, nil
}

func (s *SchedulingServer) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetAppointment"))

	id, err := uuidField(req, "appointment_id")
	if err != nil {
		return nil, invalid(log, err)
	}
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return nil, s.toStatus(log, err, slog.String("appointment_id", id.String()))
	}
	return encoded(appointmentStruct(appt))
}

func (s *SchedulingServer) window(req *structpb.Struct) (time.Time, time.Time, error) {
	loc := s.slots.Location()
	start, err := instantField(req, "start_time", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := instantField(req, "end_time", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func invalid(log *slog.Logger, err error) error {
	log.Warn("invalid request", slog.Any("err", err))
	return status.Error(codes.InvalidArgument, err.Error())
}

func encoded(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus logs err at a level matching its kind and converts it to a gRPC status.
func (s *SchedulingServer) toStatus(log *slog.Logger, err error, attrs ...any) error {
	code := Code(err)
	args := append([]any{slog.Any("err", err)}, attrs...)
	switch code {
	case codes.Internal:
		log.Error("request failed", args...)
		return status.Error(codes.Internal, "internal error")
	case codes.InvalidArgument:
		log.Warn("invalid request", args...)
	default:
		log.Info("request rejected", args...)
	}
	return status.Error(code, err.Error())
}

// Code maps service and store errors onto gRPC codes.
func Code(err error) codes.Code {
	var apptVErr *appointments.ValidationError
	var availVErr *availability.ValidationError
	switch {
	case err == nil:
		return codes.OK
	case errors.As(err, &apptVErr), errors.As(err, &availVErr):
		return codes.InvalidArgument
	case errors.Is(err, store.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, store.ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, store.ErrInvalidState):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
