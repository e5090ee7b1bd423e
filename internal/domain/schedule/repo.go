package schedule

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows ListByDoctor. A zero Weekday matches every day.
type ListFilter struct {
	Weekday    Weekday
	ActiveOnly bool
}

type Store interface {
	SlotLister
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, f ListFilter, limit, offset int) ([]*Entry, int, error)

	// InDoctorDay runs fn with exclusive access to the (doctor, weekday)
	// row set. Reads and writes made through the ctx passed to fn see a
	// consistent view and commit together.
	InDoctorDay(ctx context.Context, doctorID uuid.UUID, weekday Weekday, fn func(ctx context.Context) error) error
}

// DoctorDirectory confirms a doctor exists before any schedule work.
type DoctorDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
