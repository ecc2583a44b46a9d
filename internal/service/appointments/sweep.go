package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type SweepResult struct {
	Completed int
	Deleted   int
}

// Sweep applies the time-driven transitions: BOOKED appointments that have
// ended become COMPLETED, REQUESTED and CANCELLED ones that have ended are
// removed. A failure on one row is logged and the sweep moves on.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	var res SweepResult
	var errs []error

	ended, err := s.repo.ListEndedBefore(ctx, now, domain.AppointmentStatusBooked)
	if err != nil {
		errs = append(errs, fmt.Errorf("list ended booked appointments: %w", err))
	}
	for _, a := range ended {
		_, err := s.repo.TransitionStatus(ctx, a.ID, []domain.AppointmentStatus{domain.AppointmentStatusBooked}, domain.AppointmentStatusCompleted)
		if err != nil {
			if raced(err) {
				continue
			}
			s.log.Warn("sweep complete failed", slog.Any("err", err), slog.String("appointment_id", a.ID.String()))
			errs = append(errs, fmt.Errorf("complete %s: %w", a.ID, err))
			continue
		}
		res.Completed++
	}

	stale, err := s.repo.ListEndedBefore(ctx, now, domain.AppointmentStatusRequested, domain.AppointmentStatusCancelled)
	if err != nil {
		errs = append(errs, fmt.Errorf("list ended open appointments: %w", err))
	}
	for _, a := range stale {
		err := s.repo.Delete(ctx, a.ID, domain.AppointmentStatusRequested, domain.AppointmentStatusCancelled)
		if err != nil {
			if raced(err) {
				continue
			}
			s.log.Warn("sweep delete failed", slog.Any("err", err), slog.String("appointment_id", a.ID.String()))
			errs = append(errs, fmt.Errorf("delete %s: %w", a.ID, err))
			continue
		}
		res.Deleted++
	}

	if res.Completed > 0 || res.Deleted > 0 {
		s.log.Debug("sweep applied", slog.Int("completed", res.Completed), slog.Int("deleted", res.Deleted))
	}
	return res, errors.Join(errs...)
}

// SweepOnRead runs Sweep when enabled. Failures never block the read.
func (s *Service) SweepOnRead(ctx context.Context) {
	if !s.sweepOnRead {
		return
	}
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn("sweep before read failed", slog.Any("err", err))
	}
}

// raced reports a row that changed between listing and writing.
func raced(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidState)
}
