package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type availabilityRow struct {
	bun.BaseModel `bun:"table:availabilities"`

	DoctorID  uuid.UUID `bun:"doctor_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type weeklyHoursRow struct {
	bun.BaseModel `bun:"table:weekly_hours"`

	DoctorID    uuid.UUID `bun:"doctor_id,pk,type:uuid"`
	DayOfWeek   int16     `bun:"day_of_week,pk"`
	StartMinute int16     `bun:"start_minute,notnull"`
	EndMinute   int16     `bun:"end_minute,notnull"`
}

type unavailableSlotRow struct {
	bun.BaseModel `bun:"table:unavailable_slots"`

	DoctorID  uuid.UUID `bun:"doctor_id,pk,type:uuid"`
	SlotStart time.Time `bun:"slot_start,pk"`
}

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

var _ store.AvailabilityRepository = (*AvailabilityRepo)(nil)

func (r *AvailabilityRepo) Get(ctx context.Context, doctorID uuid.UUID) (domain.Availability, error) {
	ok, err := r.Exists(ctx, doctorID)
	if err != nil {
		return domain.Availability{}, err
	}
	if !ok {
		return domain.Availability{}, store.ErrNotFound
	}

	var hours []weeklyHoursRow
	if err := r.db.NewSelect().
		Model(&hours).
		Where("doctor_id = ?", doctorID).
		OrderExpr("day_of_week ASC").
		Scan(ctx); err != nil {
		return domain.Availability{}, mapError(err)
	}

	var slots []unavailableSlotRow
	if err := r.db.NewSelect().
		Model(&slots).
		Where("doctor_id = ?", doctorID).
		OrderExpr("slot_start ASC").
		Scan(ctx); err != nil {
		return domain.Availability{}, mapError(err)
	}

	weekly, err := weeklyFromRows(hours)
	if err != nil {
		return domain.Availability{}, err
	}
	out := domain.Availability{
		DoctorID:         doctorID,
		Weekly:           weekly,
		UnavailableSlots: make([]time.Time, 0, len(slots)),
	}
	for _, s := range slots {
		out.UnavailableSlots = append(out.UnavailableSlots, s.SlotStart.UTC())
	}
	return out, nil
}

func (r *AvailabilityRepo) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*availabilityRow)(nil)).
		Where("doctor_id = ?", doctorID).
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r *AvailabilityRepo) Save(ctx context.Context, a domain.Availability) error {
	now := time.Now().UTC()
	head := availabilityRow{DoctorID: a.DoctorID, CreatedAt: now, UpdatedAt: now}
	hours := weeklyToRows(a.DoctorID, a.Weekly)
	slots := slotRows(a.DoctorID, domain.NormalizeSlots(a.UnavailableSlots))

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(&head).
			On("CONFLICT (doctor_id) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*weeklyHoursRow)(nil)).
			Where("doctor_id = ?", a.DoctorID).
			Exec(ctx); err != nil {
			return err
		}
		if len(hours) > 0 {
			if _, err := tx.NewInsert().Model(&hours).Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().
			Model((*unavailableSlotRow)(nil)).
			Where("doctor_id = ?", a.DoctorID).
			Exec(ctx); err != nil {
			return err
		}
		if len(slots) > 0 {
			if _, err := tx.NewInsert().Model(&slots).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err)
}

func (r *AvailabilityRepo) AddUnavailable(ctx context.Context, doctorID uuid.UUID, slot time.Time) error {
	ok, err := r.Exists(ctx, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}

	row := unavailableSlotRow{DoctorID: doctorID, SlotStart: slot.UTC()}
	_, err = r.db.NewInsert().
		Model(&row).
		On("CONFLICT (doctor_id, slot_start) DO NOTHING").
		Exec(ctx)
	return mapError(err)
}

func (r *AvailabilityRepo) PruneExpired(ctx context.Context, doctorID uuid.UUID, now time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*unavailableSlotRow)(nil)).
		Where("doctor_id = ?", doctorID).
		Where("slot_start <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *AvailabilityRepo) PruneAllExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*unavailableSlotRow)(nil)).
		Where("slot_start <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func weeklyToRows(doctorID uuid.UUID, w domain.WeeklySchedule) []weeklyHoursRow {
	out := make([]weeklyHoursRow, 0, len(w))
	for _, day := range w.Days() {
		rng := w[day]
		out = append(out, weeklyHoursRow{
			DoctorID:    doctorID,
			DayOfWeek:   domain.ISOWeekday(day),
			StartMinute: int16(rng.Start),
			EndMinute:   int16(rng.End),
		})
	}
	return out
}

func weeklyFromRows(rows []weeklyHoursRow) (domain.WeeklySchedule, error) {
	out := make(domain.WeeklySchedule, len(rows))
	for _, row := range rows {
		day, err := domain.WeekdayFromISO(row.DayOfWeek)
		if err != nil {
			return nil, err
		}
		out[day] = domain.TimeRange{
			Start: domain.TimeOfDay(row.StartMinute),
			End:   domain.TimeOfDay(row.EndMinute),
		}
	}
	return out, nil
}

func slotRows(doctorID uuid.UUID, slots []time.Time) []unavailableSlotRow {
	out := make([]unavailableSlotRow, 0, len(slots))
	for _, s := range slots {
		out = append(out, unavailableSlotRow{DoctorID: doctorID, SlotStart: s})
	}
	return out
}
