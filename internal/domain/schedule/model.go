package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recurring weekly working window of a doctor at a clinic.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	ClinicID   uuid.UUID `json:"clinic_id"`
	Slot       TimeSlot  `json:"slot"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by"`
}

// Request is the client payload for creating or editing an entry. Weekday
// and times arrive as text so their validation errors can be reported in a
// fixed order.
type Request struct {
	ClinicID  uuid.UUID `json:"clinic_id"`
	Weekday   string    `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Active    *bool     `json:"active,omitempty"`
}

// Slot validates the weekday and then the time range.
func (r *Request) Slot() (TimeSlot, error) {
	day, err := ParseWeekday(r.Weekday)
	if err != nil {
		return TimeSlot{}, err
	}
	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("%w: start: %v", ErrInvalidTimeRange, err)
	}
	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("%w: end: %v", ErrInvalidTimeRange, err)
	}
	if !IsTimeRangeValid(start, end) {
		return TimeSlot{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	return TimeSlot{Weekday: day, Start: start, End: end}, nil
}

// IsActive defaults to true when the client omits the field.
func (r *Request) IsActive() bool {
	return r.Active == nil || *r.Active
}
