package cdc

import (
	"context"
	"time"
)

// HealthTable is the pseudo-table name the health heartbeat subscribes
// under, reusing the same Buffer machinery as real table CDC streams
// rather than special-casing it (SPEC_FULL.md §3).
const HealthTable = "health"

// HealthBroadcaster publishes a KindHealth heartbeat Event into a Registry
// on a fixed interval, satisfying spec.md §4.6's "one health subscription
// emitting periodic heartbeats" without the stream consumer's involvement.
type HealthBroadcaster struct {
	registry *Registry
	schema   string
	interval time.Duration
}

// NewHealthBroadcaster builds a broadcaster; interval <= 0 defaults to 30s.
func NewHealthBroadcaster(registry *Registry, schema string, interval time.Duration) *HealthBroadcaster {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthBroadcaster{registry: registry, schema: schema, interval: interval}
}

// Run ticks until ctx is cancelled, publishing one heartbeat per tick.
func (h *HealthBroadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.registry.Publish(ctx, Event{
				Kind:   KindHealth,
				Schema: h.schema,
				Table:  HealthTable,
				New:    map[string]any{"status": "ok", "time": now.Format(time.RFC3339)},
			})
		}
	}
}
