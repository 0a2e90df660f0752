package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paycore/infrastructure/persistence/mysql"
	"paycore/pkg/logger"
)

// BrokerTransport abstracts the wire to the durable broker. key is the
// partition/ordering key (the aggregate id as UTF-8 bytes); messages
// with the same key must be delivered in send order. Implementations
// are expected to configure an idempotent producer with
// wait-for-all-replicas acknowledgment, bounded retries and
// compression; consumers still must tolerate duplicates.
type BrokerTransport interface {
	Send(ctx context.Context, topic string, key []byte, payload []byte) error
}

// LogTransport writes would-be broker messages to the log. Stands in
// when no broker is deployed.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, topic string, key []byte, payload []byte) error {
	logger.Info("Outbox event delivered to log transport",
		zap.String("topic", topic),
		zap.String("key", string(key)),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Dispatcher drains the outbox: poll pending rows, group them by topic
// to amortise round trips, deliver each through the transport, mark the
// outcome. Delivery is at-least-once - a crash after Send but before
// the PUBLISHED mark redelivers on the next poll. Per aggregate, rows
// are delivered in emission order; a failure halts the aggregate's
// stream for the rest of the batch. Broker calls are rate-limited.
type Dispatcher struct {
	repo         *mysql.OutboxRepository
	transport    BrokerTransport
	limiter      *rate.Limiter
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
}

type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	PublishRate  float64 // broker sends per second; 0 disables the limit
	PublishBurst int
}

func NewDispatcher(repo *mysql.OutboxRepository, transport BrokerTransport, cfg DispatcherConfig) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("broker transport is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}

	limit := rate.Inf
	burst := 1
	if cfg.PublishRate > 0 {
		limit = rate.Limit(cfg.PublishRate)
		burst = cfg.PublishBurst
		if burst <= 0 {
			burst = 1
		}
	}

	return &Dispatcher{
		repo:         repo,
		transport:    transport,
		limiter:      rate.NewLimiter(limit, burst),
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
	}, nil
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.ProcessBatch(ctx); err != nil {
				logger.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch drains one batch of pending rows.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	rows, err := d.repo.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	for _, group := range groupRowsByTopic(rows) {
		// A failed delivery parks its partition key: later rows of the
		// same aggregate stay pending so the next poll replays the
		// stream from the failed event instead of reordering it.
		parked := make(map[string]struct{})
		for _, row := range group {
			if _, held := parked[row.PartitionKey]; held {
				continue
			}
			if err := d.deliver(ctx, row); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				parked[row.PartitionKey] = struct{}{}
			}
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, row *mysql.OutboxEvent) error {
	if err := d.repo.MarkEventProcessing(ctx, row.ID); err != nil {
		// Another dispatcher claimed the row.
		logger.Debug("Skip outbox event",
			zap.String("event_id", row.ID),
			zap.Error(err))
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := d.transport.Send(ctx, row.Topic, []byte(row.PartitionKey), []byte(row.Payload)); err != nil {
		logger.Warn("Outbox delivery failed",
			zap.String("event_id", row.ID),
			zap.String("topic", row.Topic),
			zap.Error(err))
		if failErr := d.repo.MarkEventFailed(ctx, row.ID, d.maxRetries); failErr != nil {
			logger.Error("Failed to mark outbox event as failed",
				zap.String("event_id", row.ID),
				zap.Error(failErr))
		}
		return err
	}

	if err := d.repo.MarkEventPublished(ctx, row.ID); err != nil {
		logger.Error("Failed to mark outbox event as published",
			zap.String("event_id", row.ID),
			zap.Error(err))
	}
	return nil
}

// groupRowsByTopic preserves the relative row order inside each topic
// group, keeping per-aggregate delivery ordered.
func groupRowsByTopic(rows []*mysql.OutboxEvent) [][]*mysql.OutboxEvent {
	index := make(map[string]int)
	var groups [][]*mysql.OutboxEvent
	for _, row := range rows {
		i, ok := index[row.Topic]
		if !ok {
			i = len(groups)
			index[row.Topic] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], row)
	}
	return groups
}
