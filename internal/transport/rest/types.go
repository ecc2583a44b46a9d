package rest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
)

type TimeRangeBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SaveAvailabilityRequest struct {
	DoctorID         string                   `json:"doctor_id"`
	WeeklySchedule   map[string]TimeRangeBody `json:"weekly_schedule"`
	UnavailableSlots []string                 `json:"unavailable_slots"`
}

type AvailabilityResponse struct {
	DoctorID         uuid.UUID                `json:"doctor_id"`
	WeeklySchedule   map[string]TimeRangeBody `json:"weekly_schedule"`
	UnavailableSlots []time.Time              `json:"unavailable_slots"`
}

type SlotResponse struct {
	Start   string    `json:"start"`
	Instant time.Time `json:"instant"`
	State   string    `json:"state"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type AvailableSlotsResponse struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Available []string  `json:"available"`
}

type RangeResponse struct {
	DoctorID uuid.UUID       `json:"doctor_id"`
	Days     []SlotsResponse `json:"days"`
}

type RequestAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type RescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type AppointmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	PatientID *uuid.UUID `json:"patient_id"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateOutcomeRequest struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	DoctorID      string `json:"doctor_id"`
	PatientID     string `json:"patient_id"`
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
}

type OutcomeResponse struct {
	ID                 uuid.UUID  `json:"id"`
	AppointmentID      *uuid.UUID `json:"appointment_id,omitempty"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	Diagnosis          string     `json:"diagnosis"`
	Prescription       string     `json:"prescription,omitempty"`
	PrescriptionStatus string     `json:"prescription_status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toAvailabilityResponse(a domain.Availability) AvailabilityResponse {
	weekly := make(map[string]TimeRangeBody, len(a.Weekly))
	for day, r := range a.Weekly {
		weekly[strings.ToUpper(day.String())] = TimeRangeBody{Start: r.Start.String(), End: r.End.String()}
	}
	slots := a.UnavailableSlots
	if slots == nil {
		slots = []time.Time{}
	}
	return AvailabilityResponse{DoctorID: a.DoctorID, WeeklySchedule: weekly, UnavailableSlots: slots}
}

func toSlotsResponse(doctorID uuid.UUID, date string, slots []domain.Slot) SlotsResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{Start: s.Start.String(), Instant: s.Instant.UTC(), State: string(s.State)})
	}
	return SlotsResponse{DoctorID: doctorID, Date: date, Slots: out}
}

func toAppointmentResponse(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Status:    string(a.Status),
		StartTime: a.StartTime.UTC(),
		EndTime:   a.EndTime.UTC(),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func toAppointmentsResponse(in []domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toOutcomeResponse(o domain.OutcomeRecord) OutcomeResponse {
	return OutcomeResponse{
		ID:                 o.ID,
		AppointmentID:      o.AppointmentID,
		DoctorID:           o.DoctorID,
		PatientID:          o.PatientID,
		Diagnosis:          o.Diagnosis,
		Prescription:       o.Prescription,
		PrescriptionStatus: string(o.PrescriptionStatus),
		CreatedAt:          o.CreatedAt.UTC(),
		UpdatedAt:          o.UpdatedAt.UTC(),
	}
}

func toOutcomesResponse(in []domain.OutcomeRecord) []OutcomeResponse {
	out := make([]OutcomeResponse, 0, len(in))
	for _, o := range in {
		out = append(out, toOutcomeResponse(o))
	}
	return out
}
