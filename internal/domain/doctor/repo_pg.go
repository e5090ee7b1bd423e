package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cmd/doctor/internal/platform/db"
)

// SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `d.id, d.first_name, d.last_name, d.email, d.phone_no, d.specialization,
	d.profile_picture, d.biography, d.experience_in_years, d.date_of_birth, d.gender,
	d.qualification, d.active, d.department_id, d.clinic_id,
	d.created_at, d.created_by, d.modified_at, d.modified_by,
	a.street, a.city, a.state, a.country, a.zip_code,
	a.created_at, a.created_by, a.modified_at, a.modified_by`

const doctorFrom = ` FROM doctor d JOIN doctor_address a ON a.doctor_id = d.id`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var dob pgtype.Date
	var gender string
	a := &d.Address
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.PhoneNo, &d.Specialization,
		&d.ProfilePicture, &d.Biography, &d.ExperienceInYears, &dob, &gender,
		&d.Qualification, &d.Active, &d.DepartmentID, &d.ClinicID,
		&d.CreatedAt, &d.CreatedBy, &d.ModifiedAt, &d.ModifiedBy,
		&a.Street, &a.City, &a.State, &a.Country, &a.ZipCode,
		&a.CreatedAt, &a.CreatedBy, &a.ModifiedAt, &a.ModifiedBy)
	if err != nil {
		return nil, err
	}
	d.DateOfBirth = dob.Time
	d.Gender = Gender(gender)
	return &d, nil
}

// Create inserts the doctor and its address in one transaction.
func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO doctor (id, first_name, last_name, email, phone_no, specialization,
				profile_picture, biography, experience_in_years, date_of_birth, gender,
				qualification, active, department_id, clinic_id,
				created_at, created_by, modified_at, modified_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			d.ID, d.FirstName, d.LastName, d.Email, d.PhoneNo, d.Specialization,
			d.ProfilePicture, d.Biography, d.ExperienceInYears, toPGDate(d), string(d.Gender),
			d.Qualification, d.Active, d.DepartmentID, d.ClinicID,
			d.CreatedAt, d.CreatedBy, d.ModifiedAt, d.ModifiedBy)
		if err != nil {
			return mapPGError(err)
		}
		a := d.Address
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO doctor_address (doctor_id, street, city, state, country, zip_code,
				created_at, created_by, modified_at, modified_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			d.ID, a.Street, a.City, a.State, a.Country, a.ZipCode,
			a.CreatedAt, a.CreatedBy, a.ModifiedAt, a.ModifiedBy)
		return err
	})
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE doctor SET first_name=$2, last_name=$3, email=$4, phone_no=$5, specialization=$6,
				profile_picture=$7, biography=$8, experience_in_years=$9, date_of_birth=$10, gender=$11,
				qualification=$12, active=$13, department_id=$14, clinic_id=$15,
				modified_at=$16, modified_by=$17
			WHERE id = $1`,
			d.ID, d.FirstName, d.LastName, d.Email, d.PhoneNo, d.Specialization,
			d.ProfilePicture, d.Biography, d.ExperienceInYears, toPGDate(d), string(d.Gender),
			d.Qualification, d.Active, d.DepartmentID, d.ClinicID,
			d.ModifiedAt, d.ModifiedBy)
		if err != nil {
			return mapPGError(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		a := d.Address
		_, err = r.conn(ctx).Exec(ctx, `
			UPDATE doctor_address SET street=$2, city=$3, state=$4, country=$5, zip_code=$6,
				modified_at=$7, modified_by=$8
			WHERE doctor_id = $1`,
			d.ID, a.Street, a.City, a.State, a.Country, a.ZipCode, a.ModifiedAt, a.ModifiedBy)
		return err
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+doctorFrom+` WHERE d.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+doctorFrom+`
		ORDER BY d.last_name, d.first_name, d.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctor WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func toPGDate(d *Doctor) pgtype.Date {
	return pgtype.Date{Time: d.DateOfBirth, Valid: !d.DateOfBirth.IsZero()}
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "doctor_email_key" {
		return ErrDuplicateEmail
	}
	return err
}
