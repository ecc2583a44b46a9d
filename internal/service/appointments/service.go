package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/clock"
	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

// availabilityBlocker is the part of the availability store a decline touches.
type availabilityBlocker interface {
	Exists(ctx context.Context, doctorID uuid.UUID) (bool, error)
	AddUnavailable(ctx context.Context, doctorID uuid.UUID, slot time.Time) error
}

type Service struct {
	repo         store.AppointmentRepository
	users        store.UserDirectory
	availability availabilityBlocker
	clock        clock.Clock
	log          *slog.Logger
	sweepOnRead  bool
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSweepOnRead toggles the sweep that runs ahead of every read.
func WithSweepOnRead(enabled bool) Option {
	return func(s *Service) {
		s.sweepOnRead = enabled
	}
}

func NewService(repo store.AppointmentRepository, users store.UserDirectory, availability availabilityBlocker, clk clock.Clock, opts ...Option) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Service{
		repo:         repo,
		users:        users,
		availability: availability,
		clock:        clk,
		log:          slog.Default(),
		sweepOnRead:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.appointments"))
	return s
}

type CreateInput struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// Create records a patient's request. The new appointment starts in REQUESTED.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.DoctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if in.PatientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	start, end, err := normalizeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return domain.Appointment{}, err
	}

	if err := s.requireDoctor(ctx, in.DoctorID); err != nil {
		return domain.Appointment{}, err
	}
	if err := s.requirePatient(ctx, in.PatientID); err != nil {
		return domain.Appointment{}, err
	}

	patientID := in.PatientID
	var out domain.Appointment
	err = s.repo.InTx(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		if err := ensureFree(ctx, tx, in.DoctorID, start, end, uuid.Nil); err != nil {
			return err
		}
		a, err := tx.Create(ctx, domain.Appointment{
			DoctorID:  in.DoctorID,
			PatientID: &patientID,
			Status:    domain.AppointmentStatusRequested,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			return conflictAsSlotBooked(err)
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Cancel moves a REQUESTED or BOOKED appointment to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	a, err := s.repo.TransitionStatus(ctx, id, openStatuses, domain.AppointmentStatusCancelled)
	if err != nil {
		return domain.Appointment{}, mapTransitionErr(err, ErrNotOpen)
	}
	return a, nil
}

type RescheduleInput struct {
	AppointmentID uuid.UUID
	StartTime     time.Time
	EndTime       time.Time
}

// Reschedule cancels the original and requests a new window for the same
// doctor and patient. Both writes commit together or not at all.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	start, end, err := normalizeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = s.repo.InTx(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		orig, err := tx.Get(ctx, in.AppointmentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if !orig.Status.Open() {
			return ErrNotOpen
		}
		if err := ensureFree(ctx, tx, orig.DoctorID, start, end, orig.ID); err != nil {
			return err
		}
		if _, err := tx.TransitionStatus(ctx, orig.ID, openStatuses, domain.AppointmentStatusCancelled); err != nil {
			return mapTransitionErr(err, ErrNotOpen)
		}
		a, err := tx.Create(ctx, domain.Appointment{
			DoctorID:  orig.DoctorID,
			PatientID: orig.PatientID,
			Status:    domain.AppointmentStatusRequested,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			return conflictAsSlotBooked(err)
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

var decisionTargets = map[domain.AppointmentStatus]struct{}{
	domain.AppointmentStatusBooked:    {},
	domain.AppointmentStatusDeclined:  {},
	domain.AppointmentStatusCancelled: {},
	domain.AppointmentStatusCompleted: {},
}

// UpdateStatus applies a doctor's decision to a REQUESTED appointment.
// Declining blocks the appointment's start slot in the doctor's availability.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if _, ok := decisionTargets[target]; !ok {
		return domain.Appointment{}, validationError(fmt.Sprintf("status %q is not a valid decision", target))
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrAppointmentNotFound
		}
		return domain.Appointment{}, err
	}
	if current.Status != domain.AppointmentStatusRequested {
		return domain.Appointment{}, ErrNotRequested
	}

	if target == domain.AppointmentStatusDeclined {
		ok, err := s.availability.Exists(ctx, current.DoctorID)
		if err != nil {
			return domain.Appointment{}, err
		}
		if !ok {
			return domain.Appointment{}, ErrNoAvailability
		}
	}

	updated, err := s.repo.TransitionStatus(ctx, id, []domain.AppointmentStatus{domain.AppointmentStatusRequested}, target)
	if err != nil {
		return domain.Appointment{}, mapTransitionErr(err, ErrNotRequested)
	}

	if target == domain.AppointmentStatusDeclined {
		if err := s.availability.AddUnavailable(ctx, updated.DoctorID, updated.StartTime); err != nil {
			s.revertDecision(ctx, updated)
			if errors.Is(err, store.ErrNotFound) {
				return domain.Appointment{}, ErrNoAvailability
			}
			return domain.Appointment{}, fmt.Errorf("block declined slot: %w", err)
		}
		s.log.Info(
			"declined slot blocked",
			slog.String("appointment_id", updated.ID.String()),
			slog.String("doctor_id", updated.DoctorID.String()),
			slog.Time("slot", updated.StartTime),
		)
	}

	return updated, nil
}

func (s *Service) revertDecision(ctx context.Context, a domain.Appointment) {
	_, err := s.repo.TransitionStatus(ctx, a.ID, []domain.AppointmentStatus{a.Status}, domain.AppointmentStatusRequested)
	if err != nil {
		s.log.Error(
			"decision revert failed",
			slog.Any("err", err),
			slog.String("appointment_id", a.ID.String()),
			slog.String("status", string(a.Status)),
		)
	}
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("appointment_id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return err
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	s.SweepOnRead(ctx)

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrAppointmentNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	if patientID == uuid.Nil {
		return nil, validationError("patient_id is required")
	}
	s.SweepOnRead(ctx)
	return s.repo.ListByPatient(ctx, patientID)
}

// ListByDoctor lists every appointment of the doctor when no status is given.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	s.SweepOnRead(ctx)
	return s.repo.ListByDoctor(ctx, doctorID, statuses...)
}

func (s *Service) ListAvailable(ctx context.Context) ([]domain.Appointment, error) {
	s.SweepOnRead(ctx)
	return s.repo.ListByStatus(ctx, domain.AppointmentStatusAvailable)
}

func (s *Service) requireDoctor(ctx context.Context, id uuid.UUID) error {
	ok, err := s.users.DoctorExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDoctorNotFound
	}
	return nil
}

func (s *Service) requirePatient(ctx context.Context, id uuid.UUID) error {
	ok, err := s.users.PatientExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPatientNotFound
	}
	return nil
}

var openStatuses = []domain.AppointmentStatus{
	domain.AppointmentStatusRequested,
	domain.AppointmentStatusBooked,
}

func normalizeWindow(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, validationError("start_time and end_time are required")
	}
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return time.Time{}, time.Time{}, validationError("end_time must be after start_time")
	}
	if end.Sub(start) > 24*time.Hour {
		return time.Time{}, time.Time{}, validationError("duration too long")
	}
	return start, end, nil
}

// ensureFree fails with ErrSlotBooked if any active appointment of the doctor
// other than ignore intersects [start, end).
func ensureFree(ctx context.Context, tx store.AppointmentTx, doctorID uuid.UUID, start, end time.Time, ignore uuid.UUID) error {
	existing, err := tx.Overlapping(ctx, doctorID, start, end)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.ID != ignore {
			return ErrSlotBooked
		}
	}
	return nil
}

func conflictAsSlotBooked(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return ErrSlotBooked
	}
	return err
}

func mapTransitionErr(err, invalid error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrAppointmentNotFound
	case errors.Is(err, store.ErrInvalidState):
		return invalid
	default:
		return err
	}
}
