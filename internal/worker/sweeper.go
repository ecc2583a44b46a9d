// Package worker runs the periodic maintenance loop: appointment sweep and
// expired unavailable-slot pruning.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hms/backend/internal/service/appointments"
)

type appointmentSweeper interface {
	Sweep(ctx context.Context) (appointments.SweepResult, error)
}

type slotPruner interface {
	PruneAllExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	appts    appointmentSweeper
	slots    slotPruner
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

type Result struct {
	Sweep  appointments.SweepResult
	Pruned int
}

func NewSweeper(appts appointmentSweeper, slots slotPruner, interval, timeout time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sweeper{
		appts:    appts,
		slots:    slots,
		interval: interval,
		timeout:  timeout,
		log:      log.With(slog.String("component", "worker.sweeper")),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
// A non-positive interval disables the loop after the first run.
func (w *Sweeper) Run(ctx context.Context) {
	w.runLogged(ctx)
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

// RunOnce performs a single sweep and prune under the per-run timeout.
func (w *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var res Result
	var errs []error

	sw, err := w.appts.Sweep(runCtx)
	res.Sweep = sw
	if err != nil {
		errs = append(errs, err)
	}

	n, err := w.slots.PruneAllExpired(runCtx)
	res.Pruned = n
	if err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

func (w *Sweeper) runLogged(ctx context.Context) {
	start := time.Now()
	res, err := w.RunOnce(ctx)
	attrs := []any{
		slog.Int("completed", res.Sweep.Completed),
		slog.Int("deleted", res.Sweep.Deleted),
		slog.Int("pruned", res.Pruned),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		w.log.Warn("sweep run finished with errors", append(attrs, slog.Any("err", err))...)
		return
	}
	w.log.Debug("sweep run finished", attrs...)
}
