package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/service/appointments"
	"hms/backend/internal/service/availability"
	"hms/backend/internal/service/outcomes"
)

type AvailabilityService interface {
	Location() *time.Location
	Exists(ctx context.Context, doctorID uuid.UUID) (bool, error)
	Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error)
	Save(ctx context.Context, in availability.SaveInput) (domain.Availability, error)
	ComputeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
	ComputeSlotsRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]availability.DaySlots, error)
}

type AppointmentService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.AppointmentStatus) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error)
	ListAvailable(ctx context.Context) ([]domain.Appointment, error)
}

type OutcomeService interface {
	Create(ctx context.Context, in outcomes.CreateInput) (domain.OutcomeRecord, error)
	Get(ctx context.Context, id uuid.UUID) (domain.OutcomeRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.OutcomeRecord, error)
	ListPending(ctx context.Context) ([]domain.OutcomeRecord, error)
	UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, status string) (domain.OutcomeRecord, error)
}

type RouterConfig struct {
	Availability AvailabilityService
	Appointments AppointmentService
	Outcomes     OutcomeService
	Checks       map[string]PingFunc
	Env          string
	Version      string
	Logger       *slog.Logger
}

type handlers struct {
	availability AvailabilityService
	appointments AppointmentService
	outcomes     OutcomeService
	log          *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	h := &handlers{
		availability: cfg.Availability,
		appointments: cfg.Appointments,
		outcomes:     cfg.Outcomes,
		log:          log,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/availability", func(r chi.Router) {
			r.Post("/", h.saveAvailability)
			r.Get("/doctor/{doctorId}", h.getAvailability)
			r.Get("/doctor/{doctorId}/exists", h.availabilityExists)
			r.Get("/slots", h.availableSlots)
			r.Get("/full", h.fullSlots)
			r.Get("/range", h.slotsRange)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/available", h.listAvailableAppointments)
			r.Post("/request", h.requestAppointment)
			r.Post("/reschedule", h.rescheduleAppointment)
			r.Get("/patients/{patientId}", h.listPatientAppointments)
			r.Get("/doctors/{doctorId}", h.listDoctorAppointments)
			r.Get("/{id}", h.getAppointment)
			r.Post("/{id}/cancel", h.cancelAppointment)
			r.Put("/{id}/status", h.updateAppointmentStatus)
			r.Delete("/{id}", h.deleteAppointment)
		})

		r.Route("/outcomes", func(r chi.Router) {
			r.Post("/", h.createOutcome)
			r.Get("/pending", h.listPendingOutcomes)
			r.Get("/patients/{patientId}", h.listPatientOutcomes)
			r.Get("/{id}", h.getOutcome)
			r.Put("/{id}/prescription-status", h.updatePrescriptionStatus)
		})
	})

	return r
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func uuidQuery(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
