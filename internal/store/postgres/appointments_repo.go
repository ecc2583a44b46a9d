package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"hms/backend/internal/domain"
	"hms/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

var _ store.AppointmentRepository = (*AppointmentRepo)(nil)

type appointmentTx struct {
	db bun.IDB
	// lock is set inside transactions so overlap checks serialize per doctor.
	lock bool
}

func (r *AppointmentRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, appointmentTx{db: tx, lock: true})
	})
}

func (r *AppointmentRepo) plain() appointmentTx {
	return appointmentTx{db: r.db}
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return r.plain().Get(ctx, id)
}

func (r *AppointmentRepo) Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error) {
	return r.plain().Overlapping(ctx, doctorID, start, end)
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	return r.plain().Create(ctx, appt)
}

func (r *AppointmentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	return r.plain().TransitionStatus(ctx, id, from, to)
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID, statuses ...domain.AppointmentStatus) error {
	return r.plain().Delete(ctx, id, statuses...)
}

func (r *AppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if err := q.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", status).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) ListEndedBefore(ctx context.Context, before time.Time, statuses ...domain.AppointmentStatus) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("end_time < ?", before.UTC())
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if err := q.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func lockDoctorSchedule(ctx context.Context, db bun.IDB, doctorID uuid.UUID) error {
	_, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID.String()).Exec(ctx)
	return err
}

func (t appointmentTx) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := t.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return a, nil
}

func (t appointmentTx) Overlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]domain.Appointment, error) {
	if t.lock {
		if err := lockDoctorSchedule(ctx, t.db, doctorID); err != nil {
			return nil, err
		}
	}

	var rows []domain.Appointment
	err := t.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("status <> ?", domain.AppointmentStatusCancelled).
		Where("start_time < ?", end.UTC()).
		Where("end_time > ?", start.UTC()).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (t appointmentTx) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:        appt.ID,
		DoctorID:  appt.DoctorID,
		PatientID: appt.PatientID,
		Status:    appt.Status,
		StartTime: appt.StartTime.UTC(),
		EndTime:   appt.EndTime.UTC(),
		CreatedAt: appt.CreatedAt,
		UpdatedAt: appt.UpdatedAt,
	}

	if _, err := t.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func (t appointmentTx) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	row := domain.Appointment{ID: id, Status: to}
	q := t.db.NewUpdate().
		Model(&row).
		Column("status", "updated_at").
		WherePK()
	if len(from) > 0 {
		q = q.Where("status IN (?)", bun.In(from))
	}
	err := q.Returning("*").Scan(ctx)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, mapError(err)
	}

	// Zero rows: either the id is unknown or the guard rejected the current status.
	if _, getErr := t.Get(ctx, id); getErr != nil {
		return domain.Appointment{}, getErr
	}
	return domain.Appointment{}, store.ErrInvalidState
}

func (t appointmentTx) Delete(ctx context.Context, id uuid.UUID, statuses ...domain.AppointmentStatus) error {
	q := t.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if len(statuses) == 0 {
		return store.ErrNotFound
	}
	if _, getErr := t.Get(ctx, id); getErr != nil {
		return getErr
	}
	return store.ErrInvalidState
}
