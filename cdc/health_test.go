package cdc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthBroadcasterPublishesHeartbeatOnEachTick(t *testing.T) {
	r := NewRegistry("public", nil)
	sub := r.Subscribe(HealthTable)
	defer sub.Unsubscribe()

	h := NewHealthBroadcaster(r, "public", 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	select {
	case ev := <-sub.Events():
		require.Equal(t, KindHealth, ev.Kind)
		require.Equal(t, HealthTable, ev.Table)
		require.Equal(t, "ok", ev.New["status"])
	case <-time.After(time.Second):
		t.Fatal("expected a heartbeat event within 1s")
	}
}

func TestHealthBroadcasterStopsOnContextCancel(t *testing.T) {
	r := NewRegistry("public", nil)
	h := NewHealthBroadcaster(r, "public", 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancellation")
	}
}
