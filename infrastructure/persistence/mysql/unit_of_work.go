package mysql

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paycore/domain/payment"
	"paycore/domain/shared"
	"paycore/infrastructure/persistence"
	"paycore/infrastructure/persistence/retry"
	"paycore/pkg/logger"
)

// TransactionalPublisher is the optional sink capability of publishing
// inside the unit of work's transaction. The outbox sink implements it:
// event rows become durable atomically with the business rows.
type TransactionalPublisher interface {
	PublishTx(tx *gorm.DB, events []shared.DomainEvent) error
}

// UnitOfWork owns exactly one transaction for the lifetime of a logical
// operation. It lazily builds and memoizes one repository per entity
// type, all bound to that transaction, and it alone commits or rolls
// back.
//
// Events emitted by the event repositories are buffered here and reach
// the publisher only after a successful commit: a transactional
// publisher receives them just before commit (same transaction), any
// other publisher right after. A rollback discards the buffer, so no
// event ever describes a mutation that was never durable. A publish
// failure after commit is logged and swallowed - the data is already
// durable and the outbox dispatcher owns redelivery; this policy is
// uniform across all call sites.
type UnitOfWork struct {
	db          *gorm.DB
	tx          *gorm.DB
	publisher   shared.EventPublisher
	retryConfig retry.Config

	events    []shared.DomainEvent
	committed bool

	organizations *EventRepository[payment.Organization]
	users         *EventRepository[payment.User]
	customers     *EventRepository[payment.Customer]
	paymentLinks  *EventRepository[payment.PaymentLink]
	paymentOrders *PaymentOrderRepository
	outbox        *OutboxRepository
}

// UnitOfWorkOption customises construction.
type UnitOfWorkOption func(*UnitOfWork)

// WithRetryConfig overrides the transaction retry configuration.
func WithRetryConfig(config retry.Config) UnitOfWorkOption {
	return func(u *UnitOfWork) { u.retryConfig = config }
}

// NewUnitOfWork builds a unit of work over the given pool. The
// publisher is injected explicitly; there is no process-global binding.
func NewUnitOfWork(db *gorm.DB, publisher shared.EventPublisher, opts ...UnitOfWorkOption) *UnitOfWork {
	u := &UnitOfWork{
		db:          db,
		publisher:   publisher,
		retryConfig: retry.DefaultConfig,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Begin opens the transaction and returns a context carrying it, so
// repository calls made with that context all share the transaction.
// The session must stay confined to the task that opened it.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if u.tx != nil {
		return ctx, fmt.Errorf("unit of work already has an active transaction")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	u.tx = tx
	u.committed = false
	u.events = nil
	u.clearRepositories()
	return persistence.ContextWithTx(ctx, tx), nil
}

// Collect buffers an event until commit. Implements
// shared.EventCollector for the event repositories.
func (u *UnitOfWork) Collect(event shared.DomainEvent) {
	u.events = append(u.events, event)
}

// PendingEvents exposes the uncommitted buffer, mainly for tests.
func (u *UnitOfWork) PendingEvents() []shared.DomainEvent {
	return u.events
}

// Commit flushes buffered events to a transactional publisher inside
// the transaction, commits, then hands the buffer to any other
// publisher. Commit is exclusive: a second call fails.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return fmt.Errorf("unit of work has no active transaction")
	}
	if u.committed {
		return fmt.Errorf("unit of work already committed")
	}

	events := u.events
	transactional := false
	if tp, ok := u.publisher.(TransactionalPublisher); ok && len(events) > 0 {
		if err := tp.PublishTx(u.tx, events); err != nil {
			u.rollbackQuiet()
			return fmt.Errorf("failed to stage events for publication: %w", err)
		}
		transactional = true
	}

	if err := u.tx.Commit().Error; err != nil {
		u.tx = nil
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.committed = true
	u.tx = nil
	u.events = nil

	if !transactional && u.publisher != nil && len(events) > 0 {
		if err := u.publisher.PublishBatch(ctx, events); err != nil {
			logger.Error("Post-commit event publish failed",
				zap.Int("events", len(events)),
				zap.Error(err))
		}
	}
	return nil
}

// Rollback reverts all uncommitted changes and drops buffered events.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	u.events = nil
	return err
}

func (u *UnitOfWork) rollbackQuiet() {
	if err := u.Rollback(); err != nil {
		logger.Warn("Rollback failed", zap.Error(err))
	}
}

// End closes the scope: without a prior commit it rolls back, then the
// repository cache is cleared. Call it deferred right after Begin.
func (u *UnitOfWork) End() {
	if !u.committed {
		u.rollbackQuiet()
	}
	u.clearRepositories()
	u.events = nil
}

// Execute runs fn inside one transaction: begin, fn, commit; rollback
// on error or panic. Retryable storage failures (deadlocks, lock
// timeouts) rerun the whole function with backoff; the event buffer is
// reset per attempt.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Execute(ctx, u.retryConfig, func(ctx context.Context) error {
		txCtx, err := u.Begin(ctx)
		if err != nil {
			return err
		}
		defer u.End()

		if err := fn(txCtx); err != nil {
			u.rollbackQuiet()
			return err
		}
		return u.Commit(txCtx)
	})
}

func (u *UnitOfWork) clearRepositories() {
	u.organizations = nil
	u.users = nil
	u.customers = nil
	u.paymentLinks = nil
	u.paymentOrders = nil
	u.outbox = nil
}

// session is the handle repositories bind to: the active transaction,
// or the pool for standalone (auto-commit per statement) use.
func (u *UnitOfWork) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

// Organizations returns the memoized organization repository.
func (u *UnitOfWork) Organizations() *EventRepository[payment.Organization] {
	if u.organizations == nil {
		u.organizations = NewEventRepository[payment.Organization](
			u.session(), EventHooks[payment.Organization]{}, u)
	}
	return u.organizations
}

// Users returns the memoized user repository.
func (u *UnitOfWork) Users() *EventRepository[payment.User] {
	if u.users == nil {
		u.users = NewEventRepository[payment.User](
			u.session(), EventHooks[payment.User]{}, u)
	}
	return u.users
}

// Customers returns the memoized customer repository.
func (u *UnitOfWork) Customers() *EventRepository[payment.Customer] {
	if u.customers == nil {
		u.customers = NewEventRepository[payment.Customer](u.session(), EventHooks[payment.Customer]{
			Created: func(c *payment.Customer) *shared.DomainEvent {
				e := payment.NewCustomerCreatedEvent(c)
				return &e
			},
			Updated: func(c *payment.Customer, changes []shared.FieldChange) *shared.DomainEvent {
				e := payment.NewCustomerUpdatedEvent(c, changes)
				return &e
			},
			Deleted: func(id, organizationID string) *shared.DomainEvent {
				e := payment.NewCustomerDeletedEvent(id, organizationID)
				return &e
			},
		}, u)
	}
	return u.customers
}

// PaymentLinks returns the memoized payment link repository.
func (u *UnitOfWork) PaymentLinks() *EventRepository[payment.PaymentLink] {
	if u.paymentLinks == nil {
		u.paymentLinks = NewEventRepository[payment.PaymentLink](u.session(), EventHooks[payment.PaymentLink]{
			Created: func(l *payment.PaymentLink) *shared.DomainEvent {
				e := payment.NewLinkCreatedEvent(l)
				return &e
			},
		}, u)
	}
	return u.paymentLinks
}

// PaymentOrders returns the memoized payment order repository.
func (u *UnitOfWork) PaymentOrders() *PaymentOrderRepository {
	if u.paymentOrders == nil {
		u.paymentOrders = NewPaymentOrderRepository(u.session(), u)
	}
	return u.paymentOrders
}

// Outbox returns the memoized outbox repository.
func (u *UnitOfWork) Outbox() *OutboxRepository {
	if u.outbox == nil {
		u.outbox = NewOutboxRepository(u.session())
	}
	return u.outbox
}

var _ shared.EventCollector = (*UnitOfWork)(nil)
