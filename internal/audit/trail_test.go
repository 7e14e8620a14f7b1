package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

func awaitUpdates(t *testing.T, trail *Trail, n int) []orderstream.Event {
	t.Helper()
	events := make([]orderstream.Event, 0, n)
	for len(events) < n {
		select {
		case event, ok := <-trail.Updates():
			require.True(t, ok, "trail closed early")
			events = append(events, event)
		case <-time.After(time.Second):
			t.Fatalf("received %d of %d updates", len(events), n)
		}
	}
	return events
}

func assertNoUpdate(t *testing.T, trail *Trail) {
	t.Helper()
	select {
	case event := <-trail.Updates():
		t.Fatalf("unexpected update %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func liveHistory(orderID uuid.UUID, status enums.OrderStatus) orderstream.Event {
	return orderstream.Event{
		Kind:    orderstream.KindHistory,
		OrderID: orderID,
		Origin:  "other-viewer",
		History: &models.OrderStatusHistory{ID: uuid.New(), OrderID: orderID, NewStatus: status, ChangedBy: "admin"},
	}
}

func TestTrailLoadsHistoryAndNotes(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()
	_, err := f.svc.AddNote(ctx, NoteInput{OrderID: f.order.ID, Message: "Rückruf erbeten"})
	require.NoError(t, err)

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()

	require.NoError(t, trail.LoadErr())
	history := trail.History()
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, enums.OrderStatusNew, history[0].NewStatus)
	require.Len(t, trail.Notes(), 1)
}

func TestTrailAppendsThreeLiveInsertsInArrivalOrder(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()
	before := trail.History()

	arrivals := []orderstream.Event{
		liveHistory(f.order.ID, enums.OrderStatusPaid),
		liveHistory(f.order.ID, enums.OrderStatusShipped),
		liveHistory(f.order.ID, enums.OrderStatusCompleted),
	}
	for _, event := range arrivals {
		require.NoError(t, f.broker.Publish(ctx, event))
	}
	awaitUpdates(t, trail, 3)

	history := trail.History()
	require.Len(t, history, len(before)+3)
	// newest first: the latest arrival leads the view
	assert.Equal(t, arrivals[2].History.ID, history[0].ID)
	assert.Equal(t, arrivals[1].History.ID, history[1].ID)
	assert.Equal(t, arrivals[0].History.ID, history[2].ID)
	assert.Equal(t, before, history[3:])
}

func TestTrailAppendPolicyDoesNotDeduplicate(t *testing.T) {
	f := newFixture(t, config.AuditConfig{MergePolicy: config.MergePolicyAppend})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()

	event := liveHistory(f.order.ID, enums.OrderStatusPaid)
	require.NoError(t, f.broker.Publish(ctx, event))
	require.NoError(t, f.broker.Publish(ctx, event))
	awaitUpdates(t, trail, 2)

	assert.Len(t, trail.History(), 3)
}

func TestTrailUpsertPolicyIgnoresRedelivery(t *testing.T) {
	f := newFixture(t, config.AuditConfig{MergePolicy: config.MergePolicyUpsert})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()

	event := liveHistory(f.order.ID, enums.OrderStatusPaid)
	note := orderstream.Event{
		Kind:    orderstream.KindNote,
		OrderID: f.order.ID,
		Note:    &models.OrderNote{ID: uuid.New(), OrderID: f.order.ID, Message: "Tank prüfen", CreatedBy: "admin"},
	}
	for _, e := range []orderstream.Event{event, event, note, note} {
		require.NoError(t, f.broker.Publish(ctx, e))
	}
	awaitUpdates(t, trail, 2)
	assertNoUpdate(t, trail)

	assert.Len(t, trail.History(), 2)
	assert.Len(t, trail.Notes(), 1)
}

func TestTrailSkipsEchoOfOwnWrites(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()
	other, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer other.Close()

	entry, err := trail.AddStatusChange(ctx, enums.OrderStatusNew, enums.OrderStatusPaid, nil)
	require.NoError(t, err)
	note, err := trail.AddNote(ctx, "Zahlung bestätigt")
	require.NoError(t, err)

	assertNoUpdate(t, trail)
	history := trail.History()
	require.Len(t, history, 2)
	assert.Equal(t, entry.ID, history[0].ID)
	require.Len(t, trail.Notes(), 1)

	events := awaitUpdates(t, other, 2)
	assert.Equal(t, entry.ID, events[0].History.ID)
	assert.Equal(t, note.ID, events[1].Note.ID)
	assert.Equal(t, trail.History(), other.History())
}

func TestTrailIgnoresOtherOrders(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()

	require.NoError(t, f.broker.Publish(ctx, liveHistory(uuid.New(), enums.OrderStatusPaid)))
	assertNoUpdate(t, trail)
	assert.Len(t, trail.History(), 1)
}

func TestTrailLoadFailureStillReceivesLiveUpdates(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()
	f.svc.repo = failingHistoryRepo{Repository: NewRepository(f.conn)}

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	defer trail.Close()

	require.Error(t, trail.LoadErr())
	assert.True(t, pkgerrors.IsCode(trail.LoadErr(), pkgerrors.CodeDependency))
	assert.Empty(t, trail.History())

	require.NoError(t, f.broker.Publish(ctx, liveHistory(f.order.ID, enums.OrderStatusPaid)))
	awaitUpdates(t, trail, 1)
	assert.Len(t, trail.History(), 1)
}

func TestTrailCloseUnsubscribes(t *testing.T) {
	f := newFixture(t, config.AuditConfig{})
	ctx := context.Background()

	trail, err := f.svc.OpenTrail(ctx, f.order.ID)
	require.NoError(t, err)
	require.NoError(t, trail.Close())
	require.NoError(t, trail.Close())

	_, open := <-trail.Updates()
	assert.False(t, open)

	watcher, err := f.broker.Subscribe(ctx, f.order.ID)
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, f.broker.Publish(ctx, liveHistory(f.order.ID, enums.OrderStatusPaid)))
	assert.Len(t, trail.History(), 1)
}
