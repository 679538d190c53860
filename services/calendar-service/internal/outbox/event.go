package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

// Event types double as Kafka topic names (one topic per event type).
const (
	EventCreated = "calendar.event.created.v1"
	EventUpdated = "calendar.event.updated.v1"
	EventDeleted = "calendar.event.deleted.v1"
)

// Event is the domain event envelope written to the outbox together with the
// change that produced it.
type Event struct {
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
}

// Record is an outbox row waiting to be published.
type Record struct {
	Seq         int64     `json:"seq"`
	EventID     string    `json:"eventId"`
	AggregateID string    `json:"aggregateId"`
	EventType   string    `json:"eventType"`
	Payload     []byte    `json:"payload"`
	Traceparent string    `json:"traceparent,omitempty"`
	Tracestate  string    `json:"tracestate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payload is the JSON body of every calendar message.
type Payload struct {
	EventID    string      `json:"eventId"`
	EventType  string      `json:"eventType"`
	OccurredAt time.Time   `json:"occurredAt"`
	Event      model.Event `json:"event"`
}

// NewEvent builds the envelope for a change to ev.
func NewEvent(eventType string, ev model.Event, at time.Time) (Event, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(Payload{
		EventID:    id,
		EventType:  eventType,
		OccurredAt: at.UTC(),
		Event:      ev,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:     id,
		AggregateID: ev.ID,
		EventType:   eventType,
		Payload:     payload,
	}, nil
}
