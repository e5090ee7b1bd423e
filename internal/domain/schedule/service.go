package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cmd/doctor/internal/platform/events"
)

// AdmissionObserver is told the outcome of every create and edit.
type AdmissionObserver interface {
	ObserveAdmission(op, outcome string)
}

type Service struct {
	store    Store
	checker  *Checker
	doctors  DoctorDirectory
	events   events.Publisher
	observer AdmissionObserver
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(store Store, doctors DoctorDirectory, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:   store,
		checker: NewChecker(store),
		doctors: doctors,
		events:  pub,
		logger:  logger.With().Str("component", "schedule").Logger(),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Create admits a new entry for doctorID. Checks run in a fixed order:
// weekday, time range, then overlap with the doctor's active entries. The
// overlap check and the insert share one critical section per
// (doctor, weekday).
func (s *Service) Create(ctx context.Context, actor string, doctorID uuid.UUID, req *Request) (_ *Entry, err error) {
	defer func() { s.observe("create", err) }()
	if actor == "" {
		return nil, ErrMissingActor
	}
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	slot, err := req.Slot()
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &Entry{
		ID:         uuid.New(),
		DoctorID:   doctorID,
		ClinicID:   req.ClinicID,
		Slot:       slot,
		Active:     req.IsActive(),
		CreatedAt:  now,
		CreatedBy:  actor,
		ModifiedAt: now,
		ModifiedBy: actor,
	}

	err = s.store.InDoctorDay(ctx, doctorID, slot.Weekday, func(ctx context.Context) error {
		if err := s.admit(ctx, entry, nil); err != nil {
			return err
		}
		return s.store.Create(ctx, entry)
	})
	if err != nil {
		return nil, s.logRejected("create", doctorID, slot, persistenceErr("create", err))
	}

	s.logger.Info().Str("entry_id", entry.ID.String()).Str("doctor_id", doctorID.String()).
		Str("slot", slot.String()).Str("actor", actor).Msg("schedule entry created")
	s.publish(ctx, events.ScheduleCreated, actor, entry)
	return entry, nil
}

// Edit re-admits an existing entry with new values. The entry's own id is
// excluded from the overlap check.
func (s *Service) Edit(ctx context.Context, actor string, doctorID, entryID uuid.UUID, req *Request) (_ *Entry, err error) {
	defer func() { s.observe("edit", err) }()
	if actor == "" {
		return nil, ErrMissingActor
	}
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, doctorID, entryID)
	if err != nil {
		return nil, err
	}
	slot, err := req.Slot()
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.ClinicID = req.ClinicID
	updated.Slot = slot
	updated.Active = req.IsActive()
	updated.ModifiedAt = s.now()
	updated.ModifiedBy = actor

	err = s.store.InDoctorDay(ctx, doctorID, slot.Weekday, func(ctx context.Context) error {
		if err := s.admit(ctx, &updated, &entryID); err != nil {
			return err
		}
		return s.store.Update(ctx, &updated)
	})
	if err != nil {
		return nil, s.logRejected("edit", doctorID, slot, persistenceErr("update", err))
	}

	s.logger.Info().Str("entry_id", entryID.String()).Str("doctor_id", doctorID.String()).
		Str("slot", slot.String()).Str("actor", actor).Msg("schedule entry updated")
	s.publish(ctx, events.ScheduleUpdated, actor, &updated)
	return &updated, nil
}

// admit runs the overlap check for an active entry. Inactive entries are
// outside the no-overlap invariant and are always admitted.
func (s *Service) admit(ctx context.Context, e *Entry, exclude *uuid.UUID) error {
	if !e.Active {
		return nil
	}
	conflict, err := s.checker.FindConflict(ctx, e.DoctorID, e.Slot, exclude)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &ConflictError{Candidate: e.Slot, Existing: conflict}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, doctorID, entryID uuid.UUID) (*Entry, error) {
	e, err := s.store.GetByID(ctx, entryID)
	if err != nil {
		return nil, persistenceErr("get", err)
	}
	if e.DoctorID != doctorID {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, f ListFilter, limit, offset int) ([]*Entry, int, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.store.ListByDoctor(ctx, doctorID, f, limit, offset)
	if err != nil {
		return nil, 0, persistenceErr("list", err)
	}
	return items, total, nil
}

// Availability is the result of a read-only availability probe.
type Availability struct {
	Available bool     `json:"available"`
	Slot      TimeSlot `json:"slot"`
	Conflict  *Entry   `json:"conflict,omitempty"`
}

// CheckAvailability answers whether the doctor is free for the given slot
// without writing anything. The answer is a snapshot and does not reserve
// the slot.
func (s *Service) CheckAvailability(ctx context.Context, doctorID uuid.UUID, weekday, start, end string, exclude *uuid.UUID) (*Availability, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	req := Request{Weekday: weekday, StartTime: start, EndTime: end}
	slot, err := req.Slot()
	if err != nil {
		return nil, err
	}
	conflict, err := s.checker.FindConflict(ctx, doctorID, slot, exclude)
	if err != nil {
		return nil, err
	}
	return &Availability{Available: conflict == nil, Slot: slot, Conflict: conflict}, nil
}

func (s *Service) requireDoctor(ctx context.Context, doctorID uuid.UUID) error {
	if s.doctors == nil {
		return nil
	}
	ok, err := s.doctors.Exists(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("check doctor %s: %w", doctorID, err)
	}
	if !ok {
		return ErrDoctorNotFound
	}
	return nil
}

// SetObserver installs o to receive admission outcomes.
func (s *Service) SetObserver(o AdmissionObserver) {
	s.observer = o
}

func (s *Service) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveAdmission(op, AdmissionOutcome(err))
	}
}

// AdmissionOutcome names the result of a create or edit for metrics.
func AdmissionOutcome(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, ErrScheduleConflict):
		return "conflict"
	case errors.Is(err, ErrPersistenceConflict):
		return "store_conflict"
	case errors.Is(err, ErrInvalidWeekday):
		return "invalid_weekday"
	case errors.Is(err, ErrInvalidTimeRange):
		return "invalid_time_range"
	case errors.Is(err, ErrDoctorNotFound):
		return "doctor_not_found"
	case errors.Is(err, ErrEntryNotFound):
		return "entry_not_found"
	case errors.Is(err, ErrMissingActor):
		return "missing_actor"
	default:
		return "error"
	}
}

func (s *Service) logRejected(op string, doctorID uuid.UUID, slot TimeSlot, err error) error {
	ev := s.logger.Debug()
	var pe *PersistenceError
	if errors.As(err, &pe) {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("op", op).Str("doctor_id", doctorID.String()).Str("slot", slot.String()).Msg("schedule admission rejected")
	return err
}

func (s *Service) publish(ctx context.Context, eventType, actor string, e *Entry) {
	if err := s.events.Publish(ctx, events.New(eventType, actor, e)); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Str("entry_id", e.ID.String()).Msg("event publish failed")
	}
}
