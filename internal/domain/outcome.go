package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PrescriptionStatus string

const (
	PrescriptionStatusPending   PrescriptionStatus = "PENDING"
	PrescriptionStatusDispensed PrescriptionStatus = "DISPENSED"
	PrescriptionStatusCancelled PrescriptionStatus = "CANCELLED"
)

func ParsePrescriptionStatus(s string) (PrescriptionStatus, bool) {
	st := PrescriptionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case PrescriptionStatusPending, PrescriptionStatusDispensed, PrescriptionStatusCancelled:
		return st, true
	}
	return "", false
}

// OutcomeRecord is what a doctor writes after a visit and a pharmacist acts on.
type OutcomeRecord struct {
	bun.BaseModel `bun:"table:outcome_records"`

	ID                 uuid.UUID          `bun:"id,pk,type:uuid"`
	AppointmentID      *uuid.UUID         `bun:"appointment_id,type:uuid"`
	DoctorID           uuid.UUID          `bun:"doctor_id,notnull,type:uuid"`
	PatientID          uuid.UUID          `bun:"patient_id,notnull,type:uuid"`
	Diagnosis          string             `bun:"diagnosis,notnull"`
	Prescription       string             `bun:"prescription"`
	PrescriptionStatus PrescriptionStatus `bun:"prescription_status,notnull"`
	CreatedAt          time.Time          `bun:"created_at,notnull"`
	UpdatedAt          time.Time          `bun:"updated_at,notnull"`
}

func (o *OutcomeRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if o.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			o.ID = id
		}
		if o.PrescriptionStatus == "" {
			o.PrescriptionStatus = PrescriptionStatusPending
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		o.UpdatedAt = now
	}
	return nil
}
