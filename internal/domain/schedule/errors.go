package schedule

import (
	"errors"
	"fmt"
)

// Admission errors. All are deterministic request failures and are never
// retried by this package.
var (
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrInvalidTimeRange = errors.New("start time must be before end time")
	ErrScheduleConflict = errors.New("schedule overlaps an existing active slot")
	ErrEntryNotFound    = errors.New("schedule entry not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrMissingActor     = errors.New("acting user is required")

	// ErrPersistenceConflict is returned when the store rejects a write
	// because it would break the no-overlap invariant.
	ErrPersistenceConflict = errors.New("schedule write rejected by store constraint")
)

var domainErrors = []error{
	ErrInvalidWeekday, ErrInvalidTimeRange, ErrScheduleConflict, ErrEntryNotFound,
	ErrDoctorNotFound, ErrMissingActor, ErrPersistenceConflict,
}

// ConflictError names the active entry a candidate slot collides with.
type ConflictError struct {
	Candidate TimeSlot
	Existing  *Entry
}

func (e *ConflictError) Error() string {
	if e.Existing == nil {
		return ErrScheduleConflict.Error()
	}
	return fmt.Sprintf("%s: %s conflicts with %s (entry %s)",
		ErrScheduleConflict, e.Candidate, e.Existing.Slot, e.Existing.ID)
}

func (e *ConflictError) Unwrap() error { return ErrScheduleConflict }

// PersistenceError wraps a store failure that is not a validation outcome.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("schedule store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
