package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence"
)

// OutboxStatus is the delivery state of a persisted event.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusPublished  OutboxStatus = "PUBLISHED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// OutboxEvent is one durable event row. The payload is the full JSON
// envelope; topic and partition key are precomputed at write time so the
// dispatcher never needs to parse the payload to route it. Seq is the
// insertion order the dispatcher drains in; it keeps delivery within one
// aggregate deterministic even when rows share a creation timestamp.
type OutboxEvent struct {
	Seq           int64        `gorm:"primaryKey;autoIncrement"`
	ID            string       `gorm:"size:36;uniqueIndex;not null"` // event_id of the envelope
	AggregateID   string       `gorm:"size:64;index;not null"`
	AggregateType string       `gorm:"size:64;not null"`
	EventType     string       `gorm:"size:100;index;not null"`
	Topic         string       `gorm:"size:128;index;not null"`
	PartitionKey  string       `gorm:"size:64;not null"`
	Payload       string       `gorm:"type:json;not null"`
	Status        OutboxStatus `gorm:"size:20;default:PENDING;not null;index"`
	RetryCount    int          `gorm:"default:0;not null"`
	CreatedAt     time.Time    `gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// NewOutboxEvent serialises an envelope into a pending row.
func NewOutboxEvent(event shared.DomainEvent, topicPrefix string) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event %s: %w", event.EventID, err)
	}
	return &OutboxEvent{
		ID:            event.EventID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Topic:         event.Topic(topicPrefix),
		PartitionKey:  string(event.PartitionKey()),
		Payload:       string(payload),
		Status:        OutboxStatusPending,
	}, nil
}

// Envelope parses the stored payload back into the event envelope.
func (e *OutboxEvent) Envelope() (shared.DomainEvent, error) {
	var event shared.DomainEvent
	if err := json.Unmarshal([]byte(e.Payload), &event); err != nil {
		return shared.DomainEvent{}, fmt.Errorf("corrupt outbox payload %s: %w", e.ID, err)
	}
	return event, nil
}

// OutboxRepository persists events atomically with the business rows
// that caused them, and hands pending rows to the dispatcher. Delivery
// is at-least-once: a crash between publish and the PUBLISHED mark
// redelivers, so downstream consumers must de-duplicate on event id.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// SaveEvent writes one envelope inside the transaction on the context,
// or its own short transaction when called standalone.
func (r *OutboxRepository) SaveEvent(ctx context.Context, event shared.DomainEvent, topicPrefix string) error {
	if err := shared.ValidateEvent(event); err != nil {
		return fmt.Errorf("invalid domain event: %w", err)
	}
	row, err := NewOutboxEvent(event, topicPrefix)
	if err != nil {
		return err
	}
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx.Create(row).Error
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

// SaveEventsTx writes a batch of envelopes on the given transaction.
// Used by the unit of work right before commit so event rows and
// business rows become durable together.
func (r *OutboxRepository) SaveEventsTx(tx *gorm.DB, events []shared.DomainEvent, topicPrefix string) error {
	for _, event := range events {
		if err := shared.ValidateEvent(event); err != nil {
			return fmt.Errorf("invalid domain event: %w", err)
		}
		row, err := NewOutboxEvent(event, topicPrefix)
		if err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to save event %s to outbox: %w", event.EventID, err)
		}
	}
	return nil
}

// GetPendingEvents returns up to limit pending rows in insertion order.
// Within one aggregate the insertion order is the emission order, which
// preserves the per-aggregate delivery ordering.
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	var events []*OutboxEvent
	err := r.getDB(ctx).
		Where("status = ?", OutboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

// MarkEventProcessing claims a pending row. A zero update means another
// dispatcher got there first.
func (r *OutboxRepository) MarkEventProcessing(ctx context.Context, eventID string) error {
	result := r.getDB(ctx).Model(&OutboxEvent{}).
		Where("id = ? AND status = ?", eventID, OutboxStatusPending).
		Update("status", OutboxStatusProcessing)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found or already being processed: %s", eventID)
	}
	return nil
}

// MarkEventPublished records a successful delivery.
func (r *OutboxRepository) MarkEventPublished(ctx context.Context, eventID string) error {
	result := r.getDB(ctx).Model(&OutboxEvent{}).
		Where("id = ?", eventID).
		Update("status", OutboxStatusPublished)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// MarkEventFailed bumps the retry count; the row stays pending until the
// retry budget is exhausted, then moves to FAILED for manual inspection.
func (r *OutboxRepository) MarkEventFailed(ctx context.Context, eventID string, maxRetries int) error {
	db := r.getDB(ctx)

	var event OutboxEvent
	if err := db.First(&event, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("failed to find event: %w", err)
	}

	newRetryCount := event.RetryCount + 1
	newStatus := OutboxStatusFailed
	if newRetryCount < maxRetries {
		newStatus = OutboxStatusPending
	}

	return db.Model(&OutboxEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"status":      newStatus,
			"retry_count": newRetryCount,
		}).Error
}
