package mysql

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paycore/domain/payment"
	"paycore/domain/shared"
	"paycore/infrastructure/persistence/retry"
	"paycore/pkg/logger"
)

// numberRetryAttempts bounds the regeneration loop when two creators
// race for the same per-day sequence.
const numberRetryAttempts = 3

// PaymentOrderRepository is the aggregate-specific repository on top of
// the generic event repository: order numbering, the status-transition
// operation and retry selection live here. Orders are never
// hard-deleted; terminal rows stay for audit and event history.
type PaymentOrderRepository struct {
	*EventRepository[payment.PaymentOrder]
	collector shared.EventCollector
}

func NewPaymentOrderRepository(db *gorm.DB, collector shared.EventCollector) *PaymentOrderRepository {
	r := &PaymentOrderRepository{collector: collector}
	r.EventRepository = NewEventRepository[payment.PaymentOrder](db, EventHooks[payment.PaymentOrder]{
		Created: func(o *payment.PaymentOrder) *shared.DomainEvent {
			e := payment.NewOrderCreatedEvent(o)
			return &e
		},
		Updated: func(o *payment.PaymentOrder, changes []shared.FieldChange) *shared.DomainEvent {
			e := payment.NewOrderUpdatedEvent(o, changes)
			return &e
		},
	}, collector)
	return r
}

// Delete is disabled for payment orders.
func (r *PaymentOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	return false, shared.NewBusinessRuleViolation("order_retention",
		"payment orders are never hard-deleted")
}

// NextOrderNumber computes the next "YYYYMMDD-NNNNNN" for the
// organization and UTC day: read the current maximum, increment. The
// read-then-write window is unprotected; the unique index on
// (organization_id, order_number) surfaces a race as ErrDuplicate at
// insert time and CreateFromLink regenerates on exactly that failure.
func (r *PaymentOrderRepository) NextOrderNumber(ctx context.Context, organizationID string, day time.Time) (string, error) {
	prefix := payment.OrderNumberPrefix(day)

	var current *string
	err := r.getDB(ctx).
		Model(&payment.PaymentOrder{}).
		Where("organization_id = ? AND order_number LIKE ?", organizationID, prefix+"%").
		Select("MAX(order_number)").
		Scan(&current).Error
	if err != nil {
		return "", shared.NewStorageError(r.EntityName(), err)
	}

	seq := 1
	if current != nil {
		seq = payment.ParseOrderNumberSeq(*current) + 1
	}
	return payment.FormatOrderNumber(day, seq), nil
}

// CreateFromLink builds a CREATED order under the link, inheriting
// amount and currency when the input leaves them unset, assigns the next
// order number and inserts. A duplicate order number (two creators
// racing for the same organization-day sequence) regenerates and
// retries locally; any other duplicate propagates.
func (r *PaymentOrderRepository) CreateFromLink(ctx context.Context, link *payment.PaymentLink, input payment.NewOrderInput) (*payment.PaymentOrder, error) {
	order, err := payment.NewOrderFromLink(link, input)
	if err != nil {
		return nil, err
	}

	attemptConfig := retry.Config{
		Enabled:       true,
		MaxAttempts:   numberRetryAttempts,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		RetryPredicate: func(err error) bool {
			return errors.Is(err, shared.ErrDuplicate)
		},
	}

	err = retry.Execute(ctx, attemptConfig, func(ctx context.Context) error {
		number, err := r.NextOrderNumber(ctx, order.OrganizationID, time.Now().UTC())
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := r.Create(ctx, order); err != nil {
			if errors.Is(err, shared.ErrDuplicate) {
				logger.Warn("Order number collision, regenerating",
					zap.String("organization_id", order.OrganizationID),
					zap.String("order_number", number))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus is the only mutation path for an order's status. It
// validates the transition table and the settlement invariant of the
// resulting state, stamps started_at on first entry into PROCESSING
// (idempotent, never overwritten) and completed_at on entry into
// COMPLETED or FAILED, then merges the caller's extra fields. On an
// actual status change a status_changed event is emitted alongside the
// generic updated event.
func (r *PaymentOrderRepository) UpdateStatus(ctx context.Context, orderID string, newStatus payment.Status, extra payment.OrderPatch) (*payment.PaymentOrder, error) {
	order, err := r.GetOrFail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := payment.ValidateTransition(from, newStatus); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	patch := extra
	patch.Status = &newStatus
	if newStatus == payment.StatusProcessing && order.StartedAt == nil && patch.StartedAt == nil {
		patch.StartedAt = &now
	}
	if (newStatus == payment.StatusCompleted || newStatus == payment.StatusFailed) &&
		order.CompletedAt == nil && patch.CompletedAt == nil {
		patch.CompletedAt = &now
	}

	// Reject an invalid target state before anything reaches the flush
	// or the event buffer.
	candidate := *order
	patch.Apply(&candidate)
	if err := candidate.ValidateSettlement(); err != nil {
		return nil, err
	}

	changes, err := r.Update(ctx, order, patch)
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 && from != newStatus && r.collector != nil {
		r.collector.Collect(payment.NewOrderStatusChangedEvent(order, from, newStatus))
	}
	return order, nil
}

// GetOrdersForRetry selects FAILED orders eligible for another attempt
// under the policy: retry budget left, cool-down elapsed, failure code
// not permanent. Pure read; the caller increments retry_count in its own
// transaction when it actually retries.
func (r *PaymentOrderRepository) GetOrdersForRetry(ctx context.Context, policy payment.RetryPolicy, limit int) ([]*payment.PaymentOrder, error) {
	return r.FindBySpecification(ctx, policy.EligibilitySpec(time.Now().UTC()), ListOptions{
		Limit:   limit,
		OrderBy: "updated_at asc",
	})
}

// MarkRetryAttempt moves a FAILED order back into PROCESSING and
// consumes one unit of retry budget. retry_count only ever grows here,
// when a retry is actually attempted.
func (r *PaymentOrderRepository) MarkRetryAttempt(ctx context.Context, orderID string) (*payment.PaymentOrder, error) {
	order, err := r.GetOrFail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != payment.StatusFailed {
		return nil, shared.NewBusinessRuleViolation("order_retry",
			"only failed orders can be retried")
	}
	next := order.RetryCount + 1
	return r.UpdateStatus(ctx, orderID, payment.StatusProcessing, payment.OrderPatch{
		RetryCount: &next,
	})
}
