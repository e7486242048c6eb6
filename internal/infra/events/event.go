package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain fact published after a state change has been committed.
type Event interface {
	// EventID returns the unique identifier for this event instance.
	EventID() uuid.UUID

	// EventType returns the type name of the event (e.g., "PhotosTrashed").
	EventType() string

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AccountID returns the account the event belongs to.
	AccountID() string
}

// BaseEvent provides the common Event fields. Embed it in concrete events.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Account   string    `json:"account_id"`
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AccountID() string     { return e.Account }

// NewBaseEvent creates a BaseEvent stamped with a fresh id.
func NewBaseEvent(eventType, accountID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		Account:   accountID,
	}
}
