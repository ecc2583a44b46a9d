package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

// ComputeSlots lists every slot of the doctor's open hours on date, tagged
// BOOKED or AVAILABLE. An unconfigured doctor or a closed weekday yields an
// empty list.
func (s *Service) ComputeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]domain.Slot, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	day, err := s.parseDate("date", date)
	if err != nil {
		return nil, err
	}

	av, ok, err := s.load(ctx, doctorID)
	if err != nil || !ok {
		return []domain.Slot{}, err
	}
	return s.slotsFor(ctx, av, day)
}

// AvailableSlots returns the free slot starts on date as "HH:MM".
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	slots, err := s.ComputeSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(slots))
	for _, sl := range slots {
		if sl.State == domain.SlotStateAvailable {
			out = append(out, sl.Start.String())
		}
	}
	return out, nil
}

type DaySlots struct {
	Date  string
	Slots []domain.Slot
}

// ComputeSlotsRange computes slots for each date in [from, to].
func (s *Service) ComputeSlotsRange(ctx context.Context, doctorID uuid.UUID, from, to string) ([]DaySlots, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	first, err := s.parseDate("from", from)
	if err != nil {
		return nil, err
	}
	last, err := s.parseDate("to", to)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, validationError("to must not be before from")
	}
	days := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days > MaxRangeDays {
		return nil, validationError(fmt.Sprintf("range must not exceed %d days", MaxRangeDays))
	}

	av, ok, err := s.load(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	out := make([]DaySlots, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		slots := []domain.Slot{}
		if ok {
			slots, err = s.slotsFor(ctx, av, d)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, DaySlots{Date: d.Format(dateLayout), Slots: slots})
	}
	return out, nil
}

// load brings appointment state and unavailable slots up to date before
// returning the doctor's availability.
func (s *Service) load(ctx context.Context, doctorID uuid.UUID) (domain.Availability, bool, error) {
	if s.sweeper != nil {
		s.sweeper.SweepOnRead(ctx)
	}
	if _, err := s.PruneExpired(ctx, doctorID); err != nil {
		return domain.Availability{}, false, err
	}
	av, err := s.repo.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Availability{}, false, nil
		}
		return domain.Availability{}, false, err
	}
	return av, true, nil
}

func (s *Service) slotsFor(ctx context.Context, av domain.Availability, day time.Time) ([]domain.Slot, error) {
	rng, ok := av.Weekly[day.Weekday()]
	if !ok {
		return []domain.Slot{}, nil
	}
	starts := rng.SlotStarts()
	if len(starts) == 0 {
		return []domain.Slot{}, nil
	}

	windowStart := starts[0].On(day, s.loc)
	windowEnd := starts[len(starts)-1].On(day, s.loc).Add(domain.SlotDuration)
	appts, err := s.appts.Overlapping(ctx, av.DoctorID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	blocked := make(map[int64]struct{}, len(av.UnavailableSlots))
	for _, u := range av.UnavailableSlots {
		blocked[u.UnixNano()] = struct{}{}
	}

	out := make([]domain.Slot, 0, len(starts))
	for _, start := range starts {
		instant := start.On(day, s.loc)
		state := domain.SlotStateAvailable
		if _, ok := blocked[instant.UnixNano()]; ok {
			state = domain.SlotStateBooked
		} else {
			for _, a := range appts {
				if a.Contains(instant) {
					state = domain.SlotStateBooked
					break
				}
			}
		}
		out = append(out, domain.Slot{Start: start, Instant: instant, State: state})
	}
	return out, nil
}
