package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"agenda/internal/models"

	"github.com/google/uuid"
)

const (
	EventShowCreated      = "show_created"
	EventShowUpdated      = "show_updated"
	EventShowDeleted      = "show_deleted"
	EventShowConflict     = "show_conflict"
	EventUserBlocked      = "user_blocked"
	EventUserUnblocked    = "user_unblocked"
	EventSubscriptionEdit = "subscription_updated"
)

// ShowEventPayload is the show snapshot carried by show events.
type ShowEventPayload struct {
	ShowID     int64        `json:"show_id"`
	Show       *models.Show `json:"show,omitempty"`
	ConflictID int64        `json:"conflict_id,omitempty"`
}

// UserEventPayload identifies the user affected by an access change.
type UserEventPayload struct {
	CPF    string `json:"cpf"`
	Reason string `json:"reason,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
}

// Publish runs subscribers synchronously and returns their joined errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
