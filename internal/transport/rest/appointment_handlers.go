package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
)

func (h *handlers) window(w http.ResponseWriter, start, end string) (time.Time, time.Time, bool) {
	loc := h.availability.Location()
	s, err := domain.ParseInstant(start, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
		return time.Time{}, time.Time{}, false
	}
	e, err := domain.ParseInstant(end, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

func (h *handlers) requestAppointment(w http.ResponseWriter, r *http.Request) {
	var req RequestAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	start, end, ok := h.window(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	appt, err := h.appointments.Create(r.Context(), appointments.CreateInput{
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.log.Info("appointment requested", slog.String("appointment_id", appt.ID.String()), slog.String("doctor_id", doctorID.String()))
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
		return
	}
	start, end, ok := h.window(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	appt, err := h.appointments.Reschedule(r.Context(), appointments.RescheduleInput{AppointmentID: id, StartTime: start, EndTime: end})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) updateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	target, valid := domain.ParseAppointmentStatus(r.URL.Query().Get("status"))
	if !valid {
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be a known appointment status")
		return
	}
	appt, err := h.appointments.UpdateStatus(r.Context(), id, target)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.appointments.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientId")
	if !ok {
		return
	}
	appts, err := h.appointments.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentsResponse(appts))
}

// listDoctorAppointments accepts ?status=BOOKED,REQUESTED to filter.
func (h *handlers) listDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorId")
	if !ok {
		return
	}

	var statuses []domain.AppointmentStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, valid := domain.ParseAppointmentStatus(part)
			if !valid {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown status "+strings.TrimSpace(part))
				return
			}
			statuses = append(statuses, st)
		}
	}

	appts, err := h.appointments.ListByDoctor(r.Context(), doctorID, statuses...)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentsResponse(appts))
}

func (h *handlers) listAvailableAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAvailable(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentsResponse(appts))
}
