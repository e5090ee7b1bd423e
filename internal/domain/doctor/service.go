package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cmd/doctor/internal/platform/events"
)

type Service struct {
	repo      Repository
	validator *Validator
	events    events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, validator *Validator, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		repo:      repo,
		validator: validator,
		events:    pub,
		logger:    logger.With().Str("component", "doctor").Logger(),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *Service) Create(ctx context.Context, actor string, req *Request) (*Doctor, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}
	d, err := s.validator.Validate(ctx, req)
	if err != nil {
		return nil, s.logRejected("create", uuid.Nil, err)
	}

	now := s.now()
	d.ID = uuid.New()
	d.CreatedAt, d.CreatedBy = now, actor
	d.ModifiedAt, d.ModifiedBy = now, actor
	d.Address.CreatedAt, d.Address.CreatedBy = now, actor
	d.Address.ModifiedAt, d.Address.ModifiedBy = now, actor

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, s.logRejected("create", d.ID, err)
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("actor", actor).Msg("doctor created")
	s.publish(ctx, events.DoctorCreated, actor, d)
	return d, nil
}

// Update replaces every editable field of an existing doctor. Creation
// stamps on the doctor and its address are preserved.
func (s *Service) Update(ctx context.Context, actor string, id uuid.UUID, req *Request) (*Doctor, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.validator.Validate(ctx, req)
	if err != nil {
		return nil, s.logRejected("update", id, err)
	}

	now := s.now()
	d.ID = id
	d.CreatedAt, d.CreatedBy = current.CreatedAt, current.CreatedBy
	d.ModifiedAt, d.ModifiedBy = now, actor
	d.Address.CreatedAt, d.Address.CreatedBy = current.Address.CreatedAt, current.Address.CreatedBy
	d.Address.ModifiedAt, d.Address.ModifiedBy = now, actor

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, s.logRejected("update", id, err)
	}
	s.logger.Info().Str("doctor_id", id.String()).Str("actor", actor).Msg("doctor updated")
	s.publish(ctx, events.DoctorUpdated, actor, d)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Exists lets the service act as the doctor directory for schedules.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) logRejected(op string, id uuid.UUID, err error) error {
	ev := s.logger.Error()
	var ve *ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrNotFound) {
		ev = s.logger.Debug()
	}
	ev.Err(err).Str("op", op).Str("doctor_id", id.String()).Msg("doctor write rejected")
	return err
}

// publish strips the profile picture from the event body.
func (s *Service) publish(ctx context.Context, eventType, actor string, d *Doctor) {
	body := *d
	body.ProfilePicture = nil
	if err := s.events.Publish(ctx, events.New(eventType, actor, &body)); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Str("doctor_id", d.ID.String()).Msg("event publish failed")
	}
}
