package mock

import (
	"paycore/domain/payment"
	"paycore/domain/shared"
	"paycore/infrastructure/persistence/mysql"
)

// NewPaymentOrderRepository builds an in-memory payment order
// repository with the production uniqueness and event behaviour: one
// order number per organization, created/updated events into the
// collector.
func NewPaymentOrderRepository(collector shared.EventCollector) *Repository[payment.PaymentOrder] {
	repo := NewRepository[payment.PaymentOrder]().
		WithUniqueKey(func(o *payment.PaymentOrder) string {
			return o.OrganizationID + "\x00" + o.OrderNumber
		})
	if collector != nil {
		repo.WithEvents(collector, mysql.EventHooks[payment.PaymentOrder]{
			Created: func(o *payment.PaymentOrder) *shared.DomainEvent {
				ev := payment.NewOrderCreatedEvent(o)
				return &ev
			},
			Updated: func(o *payment.PaymentOrder, changes []shared.FieldChange) *shared.DomainEvent {
				ev := payment.NewOrderUpdatedEvent(o, changes)
				return &ev
			},
		})
	}
	return repo
}

// NewCustomerRepository builds an in-memory customer repository.
func NewCustomerRepository() *Repository[payment.Customer] {
	return NewRepository[payment.Customer]()
}

// NewPaymentLinkRepository builds an in-memory payment link repository.
func NewPaymentLinkRepository() *Repository[payment.PaymentLink] {
	return NewRepository[payment.PaymentLink]()
}
