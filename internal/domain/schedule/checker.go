package schedule

import (
	"context"

	"github.com/google/uuid"
)

// SlotLister returns the active entries of one doctor on one weekday.
type SlotLister interface {
	ListActiveSlots(ctx context.Context, doctorID uuid.UUID, weekday Weekday) ([]*Entry, error)
}

// Checker decides whether a candidate slot may be admitted. It holds no
// state of its own and never writes.
type Checker struct {
	slots SlotLister
}

func NewChecker(slots SlotLister) *Checker {
	return &Checker{slots: slots}
}

// FindConflict returns the first active entry overlapping candidate, or nil.
// The entry with id exclude, when given, is ignored so an edit does not
// collide with its own previous state.
func (c *Checker) FindConflict(ctx context.Context, doctorID uuid.UUID, candidate TimeSlot, exclude *uuid.UUID) (*Entry, error) {
	existing, err := c.slots.ListActiveSlots(ctx, doctorID, candidate.Weekday)
	if err != nil {
		return nil, persistenceErr("list active slots", err)
	}
	for _, e := range existing {
		if !e.Active {
			continue
		}
		if exclude != nil && e.ID == *exclude {
			continue
		}
		if Overlaps(candidate, e.Slot) {
			return e, nil
		}
	}
	return nil, nil
}

// IsAvailable reports whether candidate overlaps none of the doctor's active
// entries on the same weekday.
func (c *Checker) IsAvailable(ctx context.Context, doctorID uuid.UUID, candidate TimeSlot, exclude *uuid.UUID) (bool, error) {
	conflict, err := c.FindConflict(ctx, doctorID, candidate, exclude)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}
