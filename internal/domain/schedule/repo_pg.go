package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cmd/doctor/internal/platform/db"
)

// SQLSTATE exclusion_violation, raised by the no-overlap constraint.
const pgExclusionViolation = "23P01"

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (r *storePG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const entryCols = `id, doctor_id, clinic_id, weekday, start_time, end_time, active,
	created_at, created_by, modified_at, modified_by`

func (r *storePG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var weekday int16
	var start, end pgtype.Time
	err := row.Scan(&e.ID, &e.DoctorID, &e.ClinicID, &weekday, &start, &end, &e.Active,
		&e.CreatedAt, &e.CreatedBy, &e.ModifiedAt, &e.ModifiedBy)
	if err != nil {
		return nil, err
	}
	e.Slot = TimeSlot{Weekday: Weekday(weekday), Start: fromPGTime(start), End: fromPGTime(end)}
	return &e, nil
}

func toPGTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}
}

func fromPGTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / 1_000_000)
}

func lockKey(doctorID uuid.UUID, weekday Weekday) string {
	return fmt.Sprintf("%s:%d", doctorID, int(weekday))
}

func (r *storePG) InDoctorDay(ctx context.Context, doctorID uuid.UUID, weekday Weekday, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := db.AdvisoryXactLock(ctx, r.conn(ctx), lockKey(doctorID, weekday)); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (r *storePG) ListActiveSlots(ctx context.Context, doctorID uuid.UUID, weekday Weekday) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM doctor_schedule
		WHERE doctor_id = $1 AND weekday = $2 AND active ORDER BY start_time`, doctorID, int16(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *storePG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM doctor_schedule WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

func (r *storePG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_schedule (id, doctor_id, clinic_id, weekday, start_time, end_time, active,
			created_at, created_by, modified_at, modified_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.DoctorID, e.ClinicID, int16(e.Slot.Weekday), toPGTime(e.Slot.Start), toPGTime(e.Slot.End),
		e.Active, e.CreatedAt, e.CreatedBy, e.ModifiedAt, e.ModifiedBy)
	return mapPGError(err)
}

func (r *storePG) Update(ctx context.Context, e *Entry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_schedule SET clinic_id=$2, weekday=$3, start_time=$4, end_time=$5, active=$6,
			modified_at=$7, modified_by=$8
		WHERE id = $1`,
		e.ID, e.ClinicID, int16(e.Slot.Weekday), toPGTime(e.Slot.Start), toPGTime(e.Slot.End),
		e.Active, e.ModifiedAt, e.ModifiedBy)
	if err != nil {
		return mapPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *storePG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if f.Weekday != 0 {
		where += fmt.Sprintf(` AND weekday = $%d`, idx)
		args = append(args, int16(f.Weekday))
		idx++
	}
	if f.ActiveOnly {
		where += ` AND active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_schedule`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + entryCols + ` FROM doctor_schedule` + where +
		fmt.Sprintf(` ORDER BY weekday, start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return fmt.Errorf("%w: %s", ErrPersistenceConflict, pgErr.ConstraintName)
	}
	return err
}
