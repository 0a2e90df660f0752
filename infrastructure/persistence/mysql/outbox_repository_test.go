package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/domain/shared"
)

func TestNewOutboxEventRow(t *testing.T) {
	event := shared.NewEvent("payment_order.created", "payment_order", "order-1",
		map[string]any{"order_number": "20260115-000001"})

	row, err := NewOutboxEvent(event, "paycore.events")
	require.NoError(t, err)

	assert.Equal(t, event.EventID, row.ID)
	assert.Equal(t, "order-1", row.AggregateID)
	assert.Equal(t, "payment_order", row.AggregateType)
	assert.Equal(t, "payment_order.created", row.EventType)
	assert.Equal(t, "paycore.events.payment_order", row.Topic)
	assert.Equal(t, "order-1", row.PartitionKey)
	assert.Equal(t, OutboxStatusPending, row.Status)
	assert.Equal(t, 0, row.RetryCount)
}

func TestOutboxEnvelopeRoundTrip(t *testing.T) {
	event := shared.NewEvent("payment_order.status_changed", "payment_order", "order-1",
		map[string]any{"from_status": "PROCESSING", "to_status": "COMPLETED"},
		shared.WithCorrelationID("req-1"),
		shared.WithMetadata("organization_id", "org-1"))

	row, err := NewOutboxEvent(event, "paycore.events")
	require.NoError(t, err)

	decoded, err := row.Envelope()
	require.NoError(t, err)

	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.EventType, decoded.EventType)
	assert.Equal(t, event.AggregateID, decoded.AggregateID)
	assert.Equal(t, event.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, "org-1", decoded.Metadata["organization_id"])
	assert.Equal(t, "COMPLETED", decoded.Data["to_status"])
	assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
}

func TestOutboxPendingDrainOrderAndClaims(t *testing.T) {
	db := openTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		event := shared.NewEvent("payment_order.updated", "payment_order", "order-1",
			map[string]any{"seq": i})
		require.NoError(t, repo.SaveEvent(ctx, event, "paycore.events"))
	}

	rows, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Less(t, rows[0].Seq, rows[1].Seq)
	assert.Less(t, rows[1].Seq, rows[2].Seq)

	require.NoError(t, repo.MarkEventProcessing(ctx, rows[0].ID))
	assert.Error(t, repo.MarkEventProcessing(ctx, rows[0].ID), "second claim must fail")
	require.NoError(t, repo.MarkEventPublished(ctx, rows[0].ID))

	// Failure cycles back to pending until the budget runs out.
	require.NoError(t, repo.MarkEventProcessing(ctx, rows[1].ID))
	require.NoError(t, repo.MarkEventFailed(ctx, rows[1].ID, 2))
	var row OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", rows[1].ID).Error)
	assert.Equal(t, OutboxStatusPending, row.Status)
	assert.Equal(t, 1, row.RetryCount)

	require.NoError(t, repo.MarkEventProcessing(ctx, rows[1].ID))
	require.NoError(t, repo.MarkEventFailed(ctx, rows[1].ID, 2))
	require.NoError(t, db.First(&row, "id = ?", rows[1].ID).Error)
	assert.Equal(t, OutboxStatusFailed, row.Status)
}

func TestOutboxEnvelopeCorruptPayload(t *testing.T) {
	row := &OutboxEvent{ID: "evt-1", Payload: "{not json"}
	_, err := row.Envelope()
	assert.Error(t, err)
}
