package events

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/domain/shared"
)

func makeEvent(aggregateType, aggregateID string) shared.DomainEvent {
	return shared.NewEvent(aggregateType+".created", aggregateType, aggregateID, nil)
}

func TestLogPublisherNeverFails(t *testing.T) {
	ctx := context.Background()
	p := NewLogPublisher()

	require.NoError(t, p.Publish(ctx, makeEvent("payment_order", "order-1")))
	require.NoError(t, p.PublishBatch(ctx, []shared.DomainEvent{
		makeEvent("payment_order", "order-1"),
		makeEvent("customer", "cust-1"),
	}))
	require.NoError(t, p.PublishBatch(ctx, nil))
}

func TestFallbackPublisherIsAPublisher(t *testing.T) {
	ctx := context.Background()
	p := NewFallbackPublisher()

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Publish(ctx, makeEvent("payment_order", "order-1")))
	}
}

func TestMemoryPublisherOrdering(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher()

	first := makeEvent("payment_order", "order-1")
	second := makeEvent("payment_order", "order-2")
	third := makeEvent("payment_order", "order-1")

	require.NoError(t, p.Publish(ctx, first))
	require.NoError(t, p.PublishBatch(ctx, []shared.DomainEvent{second, third}))

	all := p.Events()
	require.Len(t, all, 3)
	assert.Equal(t, first.EventID, all[0].EventID)
	assert.Equal(t, second.EventID, all[1].EventID)
	assert.Equal(t, third.EventID, all[2].EventID)

	forOrder1 := p.EventsFor("order-1")
	require.Len(t, forOrder1, 2)
	assert.Equal(t, first.EventID, forOrder1[0].EventID)
	assert.Equal(t, third.EventID, forOrder1[1].EventID)

	assert.Empty(t, p.EventsFor("order-unknown"))

	p.Reset()
	assert.Empty(t, p.Events())
	assert.Empty(t, p.EventsFor("order-1"))
}

func TestMemoryPublisherConcurrentUse(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = p.Publish(ctx, makeEvent("payment_order", fmt.Sprintf("order-%d", n)))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.Events(), 200)
	for i := 0; i < 10; i++ {
		assert.Len(t, p.EventsFor(fmt.Sprintf("order-%d", i)), 20)
	}
}

func TestGroupByTopic(t *testing.T) {
	orderA1 := makeEvent("payment_order", "order-a")
	custB := makeEvent("customer", "cust-b")
	orderA2 := makeEvent("payment_order", "order-a")
	orderC := makeEvent("payment_order", "order-c")

	groups := GroupByTopic([]shared.DomainEvent{orderA1, custB, orderA2, orderC}, "paycore.events")
	require.Len(t, groups, 2)

	// First-seen topic order is preserved.
	orderGroup := groups[0]
	require.Len(t, orderGroup, 3)
	assert.Equal(t, orderA1.EventID, orderGroup[0].EventID)
	assert.Equal(t, orderA2.EventID, orderGroup[1].EventID)
	assert.Equal(t, orderC.EventID, orderGroup[2].EventID)

	custGroup := groups[1]
	require.Len(t, custGroup, 1)
	assert.Equal(t, custB.EventID, custGroup[0].EventID)

	assert.Empty(t, GroupByTopic(nil, "paycore.events"))
}
