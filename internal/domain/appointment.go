package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusRequested AppointmentStatus = "REQUESTED"
	AppointmentStatusBooked    AppointmentStatus = "BOOKED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusDeclined  AppointmentStatus = "DECLINED"
	// AppointmentStatusAvailable is a legacy placeholder; no lifecycle transition produces it.
	AppointmentStatusAvailable AppointmentStatus = "AVAILABLE"
)

var appointmentStatuses = map[AppointmentStatus]struct{}{
	AppointmentStatusRequested: {},
	AppointmentStatusBooked:    {},
	AppointmentStatusCancelled: {},
	AppointmentStatusCompleted: {},
	AppointmentStatusDeclined:  {},
	AppointmentStatusAvailable: {},
}

// ParseAppointmentStatus accepts any casing and surrounding whitespace.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := appointmentStatuses[st]
	return st, ok
}

// Active reports whether the status occupies the doctor's time.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentStatusCancelled
}

// Open reports whether the appointment can still be cancelled or rescheduled.
func (s AppointmentStatus) Open() bool {
	return s == AppointmentStatusRequested || s == AppointmentStatusBooked
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        uuid.UUID         `bun:"id,pk,type:uuid"`
	DoctorID  uuid.UUID         `bun:"doctor_id,notnull,type:uuid"`
	PatientID *uuid.UUID        `bun:"patient_id,type:uuid"`
	Status    AppointmentStatus `bun:"status,notnull"`
	StartTime time.Time         `bun:"start_time,notnull"`
	EndTime   time.Time         `bun:"end_time,notnull"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// Overlaps uses half-open intervals: touching endpoints do not overlap.
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

// Contains reports whether t falls in [StartTime, EndTime).
func (a Appointment) Contains(t time.Time) bool {
	return !t.Before(a.StartTime) && t.Before(a.EndTime)
}
