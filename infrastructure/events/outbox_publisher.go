package events

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"paycore/domain/shared"
	"paycore/infrastructure/persistence/mysql"
)

// OutboxPublisher is the durable sink: publishing means persisting the
// envelope to the outbox table, from where the dispatcher delivers it
// to the broker transport at-least-once. Inside a unit of work the rows
// ride the business transaction (PublishTx), so a rollback also drops
// the events; standalone publishes open their own short transaction.
//
// Batches are grouped by derived topic before staging, mirroring how
// the dispatcher amortises broker round trips.
type OutboxPublisher struct {
	repo        *mysql.OutboxRepository
	topicPrefix string
}

func NewOutboxPublisher(repo *mysql.OutboxRepository, topicPrefix string) *OutboxPublisher {
	return &OutboxPublisher{repo: repo, topicPrefix: topicPrefix}
}

func (p *OutboxPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := p.repo.SaveEvent(ctx, event, p.topicPrefix); err != nil {
		return fmt.Errorf("failed to stage event %s: %w", event.EventID, err)
	}
	return nil
}

func (p *OutboxPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, group := range GroupByTopic(events, p.topicPrefix) {
		for _, event := range group {
			if err := p.Publish(ctx, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// PublishTx stages a batch on the caller's transaction, making the
// event rows durable atomically with the mutation that produced them.
func (p *OutboxPublisher) PublishTx(tx *gorm.DB, events []shared.DomainEvent) error {
	for _, group := range GroupByTopic(events, p.topicPrefix) {
		if err := p.repo.SaveEventsTx(tx, group, p.topicPrefix); err != nil {
			return err
		}
	}
	return nil
}

// GroupByTopic splits a batch by derived topic while preserving the
// relative order of events inside each group, which is what keeps the
// per-aggregate ordering intact.
func GroupByTopic(events []shared.DomainEvent, prefix string) [][]shared.DomainEvent {
	index := make(map[string]int)
	var groups [][]shared.DomainEvent
	for _, event := range events {
		topic := event.Topic(prefix)
		i, ok := index[topic]
		if !ok {
			i = len(groups)
			index[topic] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], event)
	}
	return groups
}

var _ shared.EventPublisher = (*OutboxPublisher)(nil)
var _ mysql.TransactionalPublisher = (*OutboxPublisher)(nil)
