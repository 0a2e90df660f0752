package shared

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// EventVersion is the current envelope schema version.
const EventVersion = 1

// DomainEvent is the immutable event envelope. It is constructed once,
// given a fresh event id, and never mutated afterwards. The JSON shape
// below is also the wire and outbox-persisted shape.
type DomainEvent struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Version       int               `json:"version"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	CausationID   string            `json:"causation_id,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Data          map[string]any    `json:"data"`
}

// EventOption customises an event at construction time.
type EventOption func(*DomainEvent)

// WithCorrelationID links the event to the request that caused it.
func WithCorrelationID(id string) EventOption {
	return func(e *DomainEvent) { e.CorrelationID = id }
}

// WithCausationID links the event to the event that caused it.
func WithCausationID(id string) EventOption {
	return func(e *DomainEvent) { e.CausationID = id }
}

// WithMetadata attaches one metadata entry.
func WithMetadata(key, value string) EventOption {
	return func(e *DomainEvent) { e.Metadata[key] = value }
}

// NewEvent builds an envelope with a fresh unique event id. data is the
// event-type specific payload; it is stored as given, so callers must
// not mutate it afterwards.
func NewEvent(eventType, aggregateType, aggregateID string, data map[string]any, opts ...EventOption) DomainEvent {
	if data == nil {
		data = map[string]any{}
	}
	e := DomainEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		OccurredAt:    time.Now().UTC(),
		Version:       EventVersion,
		Metadata:      map[string]string{},
		Data:          data,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Topic derives the broker topic: "{prefix}.{aggregate_type}" with the
// aggregate type in snake case.
func (e DomainEvent) Topic(prefix string) string {
	return prefix + "." + ToSnake(e.AggregateType)
}

// PartitionKey returns the ordering key for the durable broker. Events
// of one aggregate always share a key, which is what gives the
// per-aggregate ordering guarantee.
func (e DomainEvent) PartitionKey() []byte {
	return []byte(e.AggregateID)
}

// ValidateEvent rejects envelopes missing a required field.
func ValidateEvent(e DomainEvent) error {
	if e.EventID == "" {
		return fmt.Errorf("event id cannot be empty")
	}
	if e.EventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if e.AggregateID == "" {
		return fmt.Errorf("aggregate id cannot be empty")
	}
	if e.AggregateType == "" {
		return fmt.Errorf("aggregate type cannot be empty")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred at cannot be zero")
	}
	return nil
}

// EventPublisher is the sink contract. Implementations decide
// durability: the log sink never fails, the in-memory sink buffers for
// inspection, the outbox sink persists for at-least-once delivery.
// Both methods may return an error to signal a hard publish failure.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishBatch(ctx context.Context, events []DomainEvent) error
}

// EventCollector receives events emitted by repositories during a unit
// of work. The unit of work implements it by buffering until commit.
type EventCollector interface {
	Collect(event DomainEvent)
}

// ToSnake converts "PaymentOrder" to "payment_order". Already-snake
// input passes through unchanged.
func ToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
