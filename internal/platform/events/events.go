package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published after a successful commit.
const (
	DoctorCreated   = "doctor.created"
	DoctorUpdated   = "doctor.updated"
	ScheduleCreated = "schedule.created"
	ScheduleUpdated = "schedule.updated"
)

// Event is the JSON envelope sent to subscribers.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Actor      string      `json:"actor"`
	Data       interface{} `json:"data"`
}

// New builds an event stamped with a fresh id and the current UTC time.
func New(eventType, actor string, data interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       data,
	}
}

// Publisher delivers domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
