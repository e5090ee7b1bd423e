package doctor

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Address maps to the doctor_address table. Each doctor has exactly one.
type Address struct {
	Street     string    `db:"street" json:"street"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	Country    string    `db:"country" json:"country"`
	ZipCode    string    `db:"zip_code" json:"zip_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}

// Doctor maps to the doctor table.
type Doctor struct {
	ID                uuid.UUID `db:"id" json:"id"`
	FirstName         string    `db:"first_name" json:"first_name"`
	LastName          string    `db:"last_name" json:"last_name"`
	Email             string    `db:"email" json:"email"`
	PhoneNo           string    `db:"phone_no" json:"phone_no"`
	Specialization    string    `db:"specialization" json:"specialization"`
	ProfilePicture    []byte    `db:"profile_picture" json:"profile_picture,omitempty"`
	Biography         string    `db:"biography" json:"biography,omitempty"`
	ExperienceInYears int       `db:"experience_in_years" json:"experience_in_years"`
	DateOfBirth       time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender            Gender    `db:"gender" json:"gender"`
	Qualification     string    `db:"qualification" json:"qualification,omitempty"`
	Active            bool      `db:"active" json:"active"`
	DepartmentID      uuid.UUID `db:"department_id" json:"department_id"`
	ClinicID          uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Address           Address   `json:"address"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	CreatedBy         string    `db:"created_by" json:"created_by"`
	ModifiedAt        time.Time `db:"modified_at" json:"modified_at"`
	ModifiedBy        string    `db:"modified_by" json:"modified_by"`
}

type AddressRequest struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Country string `json:"country" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
}

// Request is the payload for creating or replacing a doctor. DateOfBirth
// uses the YYYY-MM-DD form. ProfilePicture is base64 in JSON.
type Request struct {
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	DateOfBirth       string         `json:"date_of_birth"`
	Email             string         `json:"email"`
	Gender            string         `json:"gender"`
	PhoneNo           string         `json:"phone_no"`
	ProfilePicture    []byte         `json:"profile_picture,omitempty"`
	Specialization    string         `json:"specialization" validate:"required,max=100"`
	Biography         string         `json:"biography" validate:"max=500"`
	Qualification     string         `json:"qualification" validate:"max=100"`
	ExperienceInYears int            `json:"experience_in_years" validate:"min=0,max=100"`
	Active            *bool          `json:"active,omitempty"`
	DepartmentID      uuid.UUID      `json:"department_id"`
	ClinicID          uuid.UUID      `json:"clinic_id"`
	Address           AddressRequest `json:"address"`
}

// IsActive defaults to true when the field is omitted.
func (r *Request) IsActive() bool {
	return r.Active == nil || *r.Active
}
