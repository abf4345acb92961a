package cdc

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Registry owns every table's Buffer within one schema, per spec.md §3's
// ownership note: "the core exclusively owns ... the CDC broadcast
// registry." Buffer creation/teardown is protected by a mutex; publishing
// and subscribing on an already-live buffer do not contend on it, per
// spec.md §5's resource model.
type Registry struct {
	schema string
	logger *zap.Logger

	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// NewRegistry builds an empty Registry for schema. logger may be nil.
func NewRegistry(schema string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{schema: schema, logger: logger, buffers: make(map[string]*Buffer)}
}

// bufferFor returns the table's Buffer, creating it under the registry
// mutex if this is the first reference (spec.md §4.8: "first subscriber
// creates the buffer").
func (r *Registry) bufferFor(table string) *Buffer {
	r.mu.RLock()
	b, ok := r.buffers[table]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buffers[table]; ok {
		return b
	}
	b = newBuffer(r.schema, table, r.logger)
	r.buffers[table] = b
	return b
}

// Subscribe registers a new listener on table, creating its buffer lazily.
func (r *Registry) Subscribe(table string) *Subscription {
	return r.bufferFor(table).Subscribe()
}

// Publish delivers ev, whose Table field names the destination buffer, to
// every current subscriber of that table in the order Publish is called
// (source LSN order, since the stream consumer calls this once per decoded
// message in LSN order).
func (r *Registry) Publish(ctx context.Context, ev Event) {
	r.bufferFor(ev.Table).Publish(ctx, ev)
}

// TerminateAll marks every currently-known buffer Terminated, per spec.md
// §4.8's "Active -> (stream fatal) -> Terminated" transition. Called by the
// stream consumer when its replication connection drops; the next Publish
// on each table recreates it automatically.
func (r *Registry) TerminateAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buffers {
		b.Terminate()
	}
}

// Prune removes buffers that are Idle or Closed and have no subscribers, reclaiming
// the map entry so a long-idle table doesn't hold a Buffer forever. Safe to
// call periodically; it is not required for correctness since bufferFor
// recreates on demand.
func (r *Registry) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, b := range r.buffers {
		if b.subscriberCount() == 0 {
			b.mu.Lock()
			idle := b.st == stateClosed || b.st == stateIdle
			b.mu.Unlock()
			if idle {
				delete(r.buffers, name)
			}
		}
	}
}
