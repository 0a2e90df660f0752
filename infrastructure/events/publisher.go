// Package events provides the three event sinks: a log sink that always
// succeeds, an in-memory sink for inspection, and a durable outbox sink
// with a background dispatcher delivering at-least-once per topic,
// ordered per aggregate.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"paycore/domain/shared"
	"paycore/pkg/logger"
)

// LogPublisher discards events to the structured log. It never fails
// and is the sink of choice when no event backbone is configured.
type LogPublisher struct {
	// warnUnconfigured marks this instance as the implicit fallback; a
	// single warning is logged on first use.
	warnUnconfigured bool
	warnOnce         sync.Once
}

// NewLogPublisher builds an explicitly configured log sink.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// NewFallbackPublisher builds the sink used when no publisher was
// configured. It logs a warning exactly once per instance, then behaves
// like the plain log sink.
func NewFallbackPublisher() *LogPublisher {
	return &LogPublisher{warnUnconfigured: true}
}

func (p *LogPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	p.warnIfFallback()
	logger.Info("Domain event discarded to log",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType),
		zap.String("aggregate_id", event.AggregateID),
	)
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogPublisher) warnIfFallback() {
	if !p.warnUnconfigured {
		return
	}
	p.warnOnce.Do(func() {
		logger.Warn("No event publisher configured, discarding domain events to log")
	})
}

// MemoryPublisher buffers events for inspection. It preserves arrival
// order globally and per aggregate, and never fails. Safe for
// concurrent use.
type MemoryPublisher struct {
	mu          sync.RWMutex
	events      []shared.DomainEvent
	byAggregate map[string][]shared.DomainEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{byAggregate: make(map[string][]shared.DomainEvent)}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.byAggregate[event.AggregateID] = append(p.byAggregate[event.AggregateID], event)
	return nil
}

func (p *MemoryPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Events returns a copy of everything published, in arrival order.
func (p *MemoryPublisher) Events() []shared.DomainEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsFor returns the events of one aggregate, in arrival order.
func (p *MemoryPublisher) EventsFor(aggregateID string) []shared.DomainEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	src := p.byAggregate[aggregateID]
	out := make([]shared.DomainEvent, len(src))
	copy(out, src)
	return out
}

// Reset drops every buffered event.
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.byAggregate = make(map[string][]shared.DomainEvent)
}

var (
	_ shared.EventPublisher = (*LogPublisher)(nil)
	_ shared.EventPublisher = (*MemoryPublisher)(nil)
)
