package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	UserRegistered       EventType = "user_registered"
	UserCreated          EventType = "user_created"
	UserUpdated          EventType = "user_updated"
	UserDeleted          EventType = "user_deleted"
	CompanyCreated       EventType = "company_created"
	CompanyUpdated       EventType = "company_updated"
	CompanyDeleted       EventType = "company_deleted"
	CompanyUserAttached  EventType = "company_user_attached"
	CompanyUserDetached  EventType = "company_user_detached"
	JobCreated           EventType = "job_created"
	JobClosed            EventType = "job_closed"
	ApplicationCreated   EventType = "application_created"
	ApplicationCancelled EventType = "application_cancelled"
)

// Event is an activity record published after a successful mutation.
// EntityID is used as the partition key.
type Event struct {
	Type       EventType   `json:"type"`
	EntityID   uuid.UUID   `json:"entityId"`
	ActorID    uuid.UUID   `json:"actorId,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload,omitempty"`
}

func NewEvent(t EventType, entityID, actorID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:       t,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// NopProducer discards events. Used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(Event) {}

func (NopProducer) Close() {}
