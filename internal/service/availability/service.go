package availability

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
	ErrDoctorNotFound       = fmt.Errorf("doctor %w", store.ErrNotFound)
	ErrAvailabilityNotFound = fmt.Errorf("availability %w", store.ErrNotFound)
)

// MaxRangeDays bounds ComputeSlotsRange.
const MaxRangeDays = 31

const dateLayout = "2006-01-02"

// appointmentLookup is how the calculator sees booked time.
type appointmentLookup interface {
	Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error)
}

// readSweeper applies pending time-driven appointment transitions.
type readSweeper interface {
	SweepOnRead(ctx context.Context)
}

type Service struct {
	repo    store.AvailabilityRepository
	appts   appointmentLookup
	users   store.UserDirectory
	clock   clock.Clock
	loc     *time.Location
	sweeper readSweeper
	log     *slog.Logger
}

type Option func(*Service)

// WithLocation sets the zone in which dates and times of day are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithSweeper(sw readSweeper) Option {
	return func(s *Service) {
		s.sweeper = sw
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(repo store.AvailabilityRepository, appts appointmentLookup, users store.UserDirectory, clk clock.Clock, opts ...Option) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Service{
		repo:  repo,
		appts: appts,
		users: users,
		clock: clk,
		loc:   time.UTC,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.availability"))
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	if doctorID == uuid.Nil {
		return false, validationError("doctor_id is required")
	}
	return s.repo.Exists(ctx, doctorID)
}

// Get prunes expired unavailable slots before returning the doctor's availability.
func (s *Service) Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error) {
	if doctorID == uuid.Nil {
		return domain.Availability{}, validationError("doctor_id is required")
	}
	if _, err := s.PruneExpired(ctx, doctorID); err != nil {
		return domain.Availability{}, err
	}
	a, err := s.repo.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Availability{}, ErrAvailabilityNotFound
		}
		return domain.Availability{}, err
	}
	return a, nil
}

type SaveInput struct {
	DoctorID         uuid.UUID
	Weekly           domain.WeeklySchedule
	UnavailableSlots []time.Time
}

// Save replaces the doctor's weekly schedule and unavailable slots.
func (s *Service) Save(ctx context.Context, in SaveInput) (domain.Availability, error) {
	if in.DoctorID == uuid.Nil {
		return domain.Availability{}, validationError("doctor_id is required")
	}
	if err := in.Weekly.Validate(); err != nil {
		return domain.Availability{}, validationError("weekly_schedule: " + err.Error())
	}

	ok, err := s.users.DoctorExists(ctx, in.DoctorID)
	if err != nil {
		return domain.Availability{}, err
	}
	if !ok {
		return domain.Availability{}, ErrDoctorNotFound
	}

	weekly := in.Weekly
	if weekly == nil {
		weekly = domain.WeeklySchedule{}
	}
	a := domain.Availability{
		DoctorID:         in.DoctorID,
		Weekly:           weekly,
		UnavailableSlots: domain.NormalizeSlots(in.UnavailableSlots),
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return domain.Availability{}, err
	}

	s.log.Info(
		"availability saved",
		slog.String("doctor_id", in.DoctorID.String()),
		slog.Int("days", len(weekly)),
		slog.Int("unavailable_slots", len(a.UnavailableSlots)),
	)
	return a, nil
}

func (s *Service) PruneExpired(ctx context.Context, doctorID uuid.UUID) (int, error) {
	n, err := s.repo.PruneExpired(ctx, doctorID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("prune unavailable slots: %w", err)
	}
	if n > 0 {
		s.log.Debug("expired unavailable slots pruned", slog.String("doctor_id", doctorID.String()), slog.Int("count", n))
	}
	return n, nil
}

func (s *Service) PruneAllExpired(ctx context.Context) (int, error) {
	n, err := s.repo.PruneAllExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("prune unavailable slots: %w", err)
	}
	return n, nil
}

func (s *Service) parseDate(field, value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, validationError(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return d, nil
}
