package payment

import (
	"paycore/domain/shared"
)

// Aggregate type names used in event envelopes and topic derivation.
const (
	AggregateTypeOrder    = "payment_order"
	AggregateTypeLink     = "payment_link"
	AggregateTypeCustomer = "customer"
)

// Event types emitted by the payment repositories.
const (
	EventOrderCreated       = "payment_order.created"
	EventOrderUpdated       = "payment_order.updated"
	EventOrderStatusChanged = "payment_order.status_changed"
	EventLinkCreated        = "payment_link.created"
	EventLinkUpdated        = "payment_link.updated"
	EventCustomerCreated    = "customer.created"
	EventCustomerUpdated    = "customer.updated"
	EventCustomerDeleted    = "customer.deleted"
)

// NewOrderCreatedEvent describes a freshly inserted order.
func NewOrderCreatedEvent(o *PaymentOrder) shared.DomainEvent {
	return shared.NewEvent(EventOrderCreated, AggregateTypeOrder, o.ID, map[string]any{
		"organization_id":    o.OrganizationID,
		"payment_link_id":    o.PaymentLinkID,
		"order_number":       o.OrderNumber,
		"status":             string(o.Status),
		"requested_amount":   o.RequestedAmount.String(),
		"requested_currency": o.RequestedCurrency,
		"total_fee":          o.TotalFee.String(),
	}, shared.WithMetadata("organization_id", o.OrganizationID))
}

// NewOrderUpdatedEvent carries the field-level diff of an order update.
func NewOrderUpdatedEvent(o *PaymentOrder, changes []shared.FieldChange) shared.DomainEvent {
	return shared.NewEvent(EventOrderUpdated, AggregateTypeOrder, o.ID, map[string]any{
		"organization_id": o.OrganizationID,
		"order_number":    o.OrderNumber,
		"changes":         ChangesPayload(changes),
	}, shared.WithMetadata("organization_id", o.OrganizationID))
}

// NewOrderStatusChangedEvent marks a state machine transition.
func NewOrderStatusChangedEvent(o *PaymentOrder, from, to Status) shared.DomainEvent {
	data := map[string]any{
		"organization_id": o.OrganizationID,
		"order_number":    o.OrderNumber,
		"from_status":     string(from),
		"to_status":       string(to),
	}
	if to == StatusCompleted && o.SettledAmount != nil && o.SettledCurrency != nil {
		data["settled_amount"] = o.SettledAmount.String()
		data["settled_currency"] = *o.SettledCurrency
	}
	if to == StatusFailed {
		if o.FailureCode != nil {
			data["failure_code"] = *o.FailureCode
		}
		if o.FailureReason != nil {
			data["failure_reason"] = *o.FailureReason
		}
	}
	return shared.NewEvent(EventOrderStatusChanged, AggregateTypeOrder, o.ID, data,
		shared.WithMetadata("organization_id", o.OrganizationID))
}

// NewLinkCreatedEvent describes a freshly inserted payment link.
func NewLinkCreatedEvent(l *PaymentLink) shared.DomainEvent {
	return shared.NewEvent(EventLinkCreated, AggregateTypeLink, l.ID, map[string]any{
		"organization_id": l.OrganizationID,
		"amount":          l.Amount.String(),
		"currency":        l.Currency,
	}, shared.WithMetadata("organization_id", l.OrganizationID))
}

// NewCustomerCreatedEvent describes a freshly inserted customer.
func NewCustomerCreatedEvent(c *Customer) shared.DomainEvent {
	return shared.NewEvent(EventCustomerCreated, AggregateTypeCustomer, c.ID, map[string]any{
		"organization_id": c.OrganizationID,
		"email":           c.Email,
	}, shared.WithMetadata("organization_id", c.OrganizationID))
}

// NewCustomerUpdatedEvent carries the diff of a customer update.
func NewCustomerUpdatedEvent(c *Customer, changes []shared.FieldChange) shared.DomainEvent {
	return shared.NewEvent(EventCustomerUpdated, AggregateTypeCustomer, c.ID, map[string]any{
		"organization_id": c.OrganizationID,
		"changes":         ChangesPayload(changes),
	}, shared.WithMetadata("organization_id", c.OrganizationID))
}

// NewCustomerDeletedEvent marks a removed customer.
func NewCustomerDeletedEvent(id, organizationID string) shared.DomainEvent {
	return shared.NewEvent(EventCustomerDeleted, AggregateTypeCustomer, id, map[string]any{
		"organization_id": organizationID,
	}, shared.WithMetadata("organization_id", organizationID))
}

// ChangesPayload renders a change list as {field: {old, new}} for event
// data payloads.
func ChangesPayload(changes []shared.FieldChange) map[string]any {
	out := make(map[string]any, len(changes))
	for _, c := range changes {
		out[c.Field] = map[string]any{"old": c.Old, "new": c.New}
	}
	return out
}
