package orderstream

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

func historyEvent(orderID uuid.UUID, status enums.OrderStatus) Event {
	return Event{
		Kind:    KindHistory,
		OrderID: orderID,
		History: &models.OrderStatusHistory{ID: uuid.New(), OrderID: orderID, NewStatus: status, ChangedBy: "admin"},
	}
}

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestLocalBrokerDeliversInPublishOrder(t *testing.T) {
	broker := NewLocalBroker()
	defer broker.Close()
	ctx := context.Background()
	orderID := uuid.New()

	first, err := broker.Subscribe(ctx, orderID)
	require.NoError(t, err)
	second, err := broker.Subscribe(ctx, orderID)
	require.NoError(t, err)

	statuses := []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusCompleted}
	for _, status := range statuses {
		require.NoError(t, broker.Publish(ctx, historyEvent(orderID, status)))
	}

	for _, sub := range []Subscription{first, second} {
		for _, status := range statuses {
			assert.Equal(t, status, receive(t, sub).History.NewStatus)
		}
	}
}

func TestLocalBrokerIsolatesOrders(t *testing.T) {
	broker := NewLocalBroker()
	defer broker.Close()
	ctx := context.Background()

	watched, err := broker.Subscribe(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, historyEvent(uuid.New(), enums.OrderStatusPaid)))

	select {
	case event := <-watched.Events():
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalSubscriptionCloseStopsDelivery(t *testing.T) {
	broker := NewLocalBroker()
	ctx := context.Background()
	orderID := uuid.New()

	sub, err := broker.Subscribe(ctx, orderID)
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Events()
	assert.False(t, open)
	require.NoError(t, broker.Publish(ctx, historyEvent(orderID, enums.OrderStatusPaid)))

	broker.mu.RLock()
	assert.Empty(t, broker.subs)
	broker.mu.RUnlock()
}

func TestLocalBrokerFullSubscriberDoesNotStallPeers(t *testing.T) {
	var dropped atomic.Int64
	broker := NewLocalBroker(WithDropHook(func(Event) { dropped.Add(1) }))
	defer broker.Close()
	ctx := context.Background()
	orderID := uuid.New()

	_, err := broker.Subscribe(ctx, orderID)
	require.NoError(t, err)
	reader, err := broker.Subscribe(ctx, orderID)
	require.NoError(t, err)

	total := subscriberBuffer + 10
	received := make(chan int, 1)
	go func() {
		count := 0
		for range reader.Events() {
			count++
			if count == total {
				break
			}
		}
		received <- count
	}()

	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < total; i++ {
			// paced so the reader keeps up
			time.Sleep(time.Millisecond)
			assert.NoError(t, broker.Publish(ctx, historyEvent(orderID, enums.OrderStatusPaid)))
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	select {
	case count := <-received:
		assert.Equal(t, total, count)
	case <-time.After(2 * time.Second):
		t.Fatal("reading subscriber was starved")
	}
	assert.Equal(t, int64(10), dropped.Load())
}

func TestLocalBrokerClose(t *testing.T) {
	broker := NewLocalBroker()
	sub, err := broker.Subscribe(context.Background(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, broker.Close())
	_, open := <-sub.Events()
	assert.False(t, open)

	_, err = broker.Subscribe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBrokerClosed)
	assert.ErrorIs(t, broker.Publish(context.Background(), historyEvent(uuid.New(), enums.OrderStatusPaid)), ErrBrokerClosed)
	require.NoError(t, broker.Close())
}
