package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is implemented by every event an aggregate records.
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// BaseEvent carries the envelope shared by all domain events. Its fields are
// exported so that the envelope is part of the JSON payload written to the outbox.
type BaseEvent struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"event_type"`
	Aggregate  string    `json:"aggregate_id"`
	Kind       string    `json:"aggregate_type"`
	OccurredOn time.Time `json:"occurred_at"`
}

// NewBaseEvent stamps a new envelope with a random id.
func NewBaseEvent(eventType, aggregateID, aggregateType string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Aggregate:  aggregateID,
		Kind:       aggregateType,
		OccurredOn: at.UTC(),
	}
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) AggregateType() string { return e.Kind }
func (e BaseEvent) OccurredAt() time.Time { return e.OccurredOn }
