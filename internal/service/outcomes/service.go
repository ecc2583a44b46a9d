package outcomes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrDoctorNotFound  = fmt.Errorf("doctor %w", store.ErrNotFound)
	ErrPatientNotFound = fmt.Errorf("patient %w", store.ErrNotFound)
	ErrRecordNotFound  = fmt.Errorf("outcome record %w", store.ErrNotFound)
)

type Service struct {
	repo  store.OutcomeRepository
	users store.UserDirectory
}

func NewService(repo store.OutcomeRepository, users store.UserDirectory) *Service {
	return &Service{repo: repo, users: users}
}

type CreateInput struct {
	AppointmentID *uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Diagnosis     string
	Prescription  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.OutcomeRecord, error) {
	diagnosis := strings.TrimSpace(in.Diagnosis)
	if diagnosis == "" {
		return domain.OutcomeRecord{}, validationError("diagnosis is required")
	}
	if in.DoctorID == uuid.Nil {
		return domain.OutcomeRecord{}, validationError("doctor_id is required")
	}
	if in.PatientID == uuid.Nil {
		return domain.OutcomeRecord{}, validationError("patient_id is required")
	}

	ok, err := s.users.DoctorExists(ctx, in.DoctorID)
	if err != nil {
		return domain.OutcomeRecord{}, err
	}
	if !ok {
		return domain.OutcomeRecord{}, ErrDoctorNotFound
	}
	ok, err = s.users.PatientExists(ctx, in.PatientID)
	if err != nil {
		return domain.OutcomeRecord{}, err
	}
	if !ok {
		return domain.OutcomeRecord{}, ErrPatientNotFound
	}

	return s.repo.Create(ctx, domain.OutcomeRecord{
		AppointmentID:      in.AppointmentID,
		DoctorID:           in.DoctorID,
		PatientID:          in.PatientID,
		Diagnosis:          diagnosis,
		Prescription:       strings.TrimSpace(in.Prescription),
		PrescriptionStatus: domain.PrescriptionStatusPending,
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.OutcomeRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OutcomeRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.OutcomeRecord, error) {
	if patientID == uuid.Nil {
		return nil, validationError("patient_id is required")
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// ListPending is the pharmacist's queue.
func (s *Service) ListPending(ctx context.Context) ([]domain.OutcomeRecord, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, status string) (domain.OutcomeRecord, error) {
	st, ok := domain.ParsePrescriptionStatus(status)
	if !ok {
		return domain.OutcomeRecord{}, validationError(fmt.Sprintf("invalid prescription status %q", status))
	}
	rec, err := s.repo.UpdatePrescriptionStatus(ctx, id, st)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OutcomeRecord{}, ErrRecordNotFound
	}
	return rec, err
}
