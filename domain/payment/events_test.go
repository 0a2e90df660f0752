package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/domain/shared"
)

func TestOrderEventEnvelopes(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)
	order.OrderNumber = "20260115-000001"

	created := NewOrderCreatedEvent(order)
	assert.Equal(t, EventOrderCreated, created.EventType)
	assert.Equal(t, AggregateTypeOrder, created.AggregateType)
	assert.Equal(t, order.ID, created.AggregateID)
	assert.Equal(t, order.OrganizationID, created.Metadata["organization_id"])
	assert.Equal(t, "20260115-000001", created.Data["order_number"])
	assert.Equal(t, string(StatusCreated), created.Data["status"])
	require.NoError(t, shared.ValidateEvent(created))

	assert.Equal(t, []byte(order.ID), created.PartitionKey(),
		"all events of one order share a partition key")
}

func TestOrderUpdatedEventCarriesDiff(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)

	processing := StatusProcessing
	changes := OrderPatch{Status: &processing}.Apply(order)
	event := NewOrderUpdatedEvent(order, changes)

	payload, ok := event.Data["changes"].(map[string]any)
	require.True(t, ok)
	statusChange, ok := payload[ColStatus].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(StatusCreated), statusChange["old"])
	assert.Equal(t, string(StatusProcessing), statusChange["new"])
}

func TestStatusChangedEventPayloads(t *testing.T) {
	order, err := NewOrderFromLink(testLink(), NewOrderInput{})
	require.NoError(t, err)

	t.Run("completed carries settlement", func(t *testing.T) {
		settled := decimal.NewFromFloat(49.99)
		ccy := "USD"
		order.Status = StatusCompleted
		order.SettledAmount = &settled
		order.SettledCurrency = &ccy

		event := NewOrderStatusChangedEvent(order, StatusProcessing, StatusCompleted)
		assert.Equal(t, string(StatusProcessing), event.Data["from_status"])
		assert.Equal(t, string(StatusCompleted), event.Data["to_status"])
		assert.Equal(t, "49.99", event.Data["settled_amount"])
		assert.Equal(t, "USD", event.Data["settled_currency"])
	})

	t.Run("failed carries failure fields", func(t *testing.T) {
		code := "card_declined"
		reason := "issuer declined"
		order.Status = StatusFailed
		order.FailureCode = &code
		order.FailureReason = &reason

		event := NewOrderStatusChangedEvent(order, StatusProcessing, StatusFailed)
		assert.Equal(t, "card_declined", event.Data["failure_code"])
		assert.Equal(t, "issuer declined", event.Data["failure_reason"])
		assert.NotContains(t, event.Data, "settled_amount")
	})
}

func TestCustomerEvents(t *testing.T) {
	customer := &Customer{ID: "cust-1", OrganizationID: "org-1", Email: "a@example.com"}

	created := NewCustomerCreatedEvent(customer)
	assert.Equal(t, EventCustomerCreated, created.EventType)
	assert.Equal(t, "a@example.com", created.Data["email"])

	deleted := NewCustomerDeletedEvent("cust-1", "org-1")
	assert.Equal(t, EventCustomerDeleted, deleted.EventType)
	assert.Equal(t, "cust-1", deleted.AggregateID)
	assert.Equal(t, "org-1", deleted.Data["organization_id"])
}

func TestChangesPayload(t *testing.T) {
	payload := ChangesPayload([]shared.FieldChange{
		{Field: "status", Old: "CREATED", New: "PROCESSING"},
		{Field: "retry_count", Old: 0, New: 1},
	})

	require.Len(t, payload, 2)
	assert.Equal(t, map[string]any{"old": "CREATED", "new": "PROCESSING"}, payload["status"])
	assert.Equal(t, map[string]any{"old": 0, "new": 1}, payload["retry_count"])

	assert.Empty(t, ChangesPayload(nil))
}
