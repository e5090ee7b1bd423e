package doctor

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("doctor not found")
	ErrDuplicateEmail = errors.New("email already registered to another doctor")
	ErrMissingActor   = errors.New("acting user is required")

	ErrInvalidName       = errors.New("name must be 2 to 50 letters with single spaces between words")
	ErrInvalidDOB        = errors.New("date of birth must be in the past and at least 18 years ago")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidGender     = errors.New("gender must be MALE, FEMALE or OTHER")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidImageType  = errors.New("profile picture must be a JPEG or PNG image")
	ErrImageTooLarge     = errors.New("profile picture exceeds the size limit")
	ErrInvalidDepartment = errors.New("department does not exist")
	ErrInvalidClinic     = errors.New("clinic does not exist")
	ErrInvalidAddress    = errors.New("address country does not match the clinic")
	ErrInvalidField      = errors.New("invalid field")

	// ErrDirectoryUnavailable is returned when the clinic or department
	// service cannot be reached.
	ErrDirectoryUnavailable = errors.New("directory service unavailable")
)

// ValidationError names the field that failed and unwraps to one of the
// ErrInvalid* sentinels.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
