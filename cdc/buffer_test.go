package cdc

import (
	"context"
	"testing"

	"github.com/arcflow/pgql"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBufferSubscribeThenPublishDeliversInOrder(t *testing.T) {
	b := newBuffer("public", "orders", zap.NewNop())
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	ctx := context.Background()
	b.Publish(ctx, Event{Kind: KindInsert, Table: "orders", LSN: 1})
	b.Publish(ctx, Event{Kind: KindUpdate, Table: "orders", LSN: 2})

	first := <-sub.Events()
	second := <-sub.Events()
	require.Equal(t, uint64(1), first.LSN)
	require.Equal(t, uint64(2), second.LSN)
}

func TestBufferLastUnsubscribeClosesBuffer(t *testing.T) {
	b := newBuffer("public", "orders", zap.NewNop())
	sub := b.Subscribe()
	require.Equal(t, stateActive, b.st)

	sub.Unsubscribe()
	require.Equal(t, stateClosed, b.st)
	require.Equal(t, 0, b.subscriberCount())

	_, ok := <-sub.Events()
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestBufferPublishAfterTerminateRecreates(t *testing.T) {
	b := newBuffer("public", "orders", zap.NewNop())
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Terminate()
	require.Equal(t, stateTerminated, b.st)

	b.Publish(context.Background(), Event{Kind: KindInsert, Table: "orders", LSN: 3})
	require.Equal(t, stateActive, b.st)

	ev := <-sub.Events()
	require.Equal(t, uint64(3), ev.LSN)
}

func TestBufferMultipleSubscribersEachReceiveEvent(t *testing.T) {
	b := newBuffer("public", "orders", zap.NewNop())
	subA := b.Subscribe()
	subB := b.Subscribe()
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	b.Publish(context.Background(), Event{Kind: KindInsert, Table: "orders", LSN: 1})

	evA := <-subA.Events()
	evB := <-subB.Events()
	require.Equal(t, uint64(1), evA.LSN)
	require.Equal(t, uint64(1), evB.LSN)
}

func TestBufferOverflowDropsSlowSubscriberWithTerminalEvent(t *testing.T) {
	b := newBuffer("public", "orders", zap.NewNop())
	b.channelCapacity = 1
	b.spoolCapacity = 1
	sub := b.Subscribe()

	ctx := context.Background()
	// Fill the channel (1), then the spool (1); the next publish must drop
	// the subscriber with an overflow terminal event instead of blocking.
	b.Publish(ctx, Event{Kind: KindInsert, Table: "orders", LSN: 1})
	b.Publish(ctx, Event{Kind: KindInsert, Table: "orders", LSN: 2})
	b.Publish(ctx, Event{Kind: KindInsert, Table: "orders", LSN: 3})

	require.Equal(t, 0, b.subscriberCount())

	var sawOverflow bool
	for ev := range sub.Events() {
		if ev.Kind == KindError {
			sawOverflow = true
			var perr *pgql.Error
			require.ErrorAs(t, ev.Err, &perr)
			require.Equal(t, pgql.KindOverflow, perr.Kind)
		}
	}
	require.True(t, sawOverflow)
}
