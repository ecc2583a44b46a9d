package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"hms/backend/internal/service/outcomes"
)

func (h *handlers) createOutcome(w http.ResponseWriter, r *http.Request) {
	var req CreateOutcomeRequest
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
	var apptID *uuid.UUID
	if req.AppointmentID != "" {
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}
		apptID = &id
	}

	rec, err := h.outcomes.Create(r.Context(), outcomes.CreateInput{
		AppointmentID: apptID,
		DoctorID:      doctorID,
		PatientID:     patientID,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeResponse(rec))
}

func (h *handlers) getOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.outcomes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(rec))
}

func (h *handlers) listPatientOutcomes(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientId")
	if !ok {
		return
	}
	recs, err := h.outcomes.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomesResponse(recs))
}

func (h *handlers) listPendingOutcomes(w http.ResponseWriter, r *http.Request) {
	recs, err := h.outcomes.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomesResponse(recs))
}

func (h *handlers) updatePrescriptionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.outcomes.UpdatePrescriptionStatus(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(rec))
}
