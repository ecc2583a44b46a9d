package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/availability"
)

func (h *handlers) saveAvailability(w http.ResponseWriter, r *http.Request) {
	var req SaveAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	weekly := make(domain.WeeklySchedule, len(req.WeeklySchedule))
	for name, body := range req.WeeklySchedule {
		day, err := domain.ParseWeekday(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_weekly_schedule", err.Error())
			return
		}
		if _, dup := weekly[day]; dup {
			writeError(w, http.StatusBadRequest, "invalid_weekly_schedule", "weekday "+name+" given more than once")
			return
		}
		start, err := domain.ParseTimeOfDay(body.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_weekly_schedule", err.Error())
			return
		}
		end, err := domain.ParseTimeOfDay(body.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_weekly_schedule", err.Error())
			return
		}
		weekly[day] = domain.TimeRange{Start: start, End: end}
	}

	slots := make([]time.Time, 0, len(req.UnavailableSlots))
	for _, raw := range req.UnavailableSlots {
		t, err := domain.ParseInstant(raw, h.availability.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_unavailable_slots", err.Error())
			return
		}
		slots = append(slots, t)
	}

	a, err := h.availability.Save(r.Context(), availability.SaveInput{
		DoctorID:         doctorID,
		Weekly:           weekly,
		UnavailableSlots: slots,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(a))
}

func (h *handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorId")
	if !ok {
		return
	}
	a, err := h.availability.Get(r.Context(), doctorID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(a))
}

func (h *handlers) availabilityExists(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(w, r, "doctorId")
	if !ok {
		return
	}
	exists, err := h.availability.Exists(r.Context(), doctorID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *handlers) availableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidQuery(w, r, "doctorId")
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	starts, err := h.availability.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailableSlotsResponse{DoctorID: doctorID, Date: date, Available: starts})
}

func (h *handlers) fullSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidQuery(w, r, "doctorId")
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	slots, err := h.availability.ComputeSlots(r.Context(), doctorID, date)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotsResponse(doctorID, date, slots))
}

func (h *handlers) slotsRange(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidQuery(w, r, "doctorId")
	if !ok {
		return
	}
	q := r.URL.Query()
	days, err := h.availability.ComputeSlotsRange(r.Context(), doctorID, q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	out := RangeResponse{DoctorID: doctorID, Days: make([]SlotsResponse, 0, len(days))}
	for _, d := range days {
		out.Days = append(out.Days, toSlotsResponse(doctorID, d.Date, d.Slots))
	}
	writeJSON(w, http.StatusOK, out)
}
