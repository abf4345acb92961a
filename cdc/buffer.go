package cdc

import (
	"context"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// state is one position in the per-table buffer's lifecycle, spec.md §4.8:
//
//	Idle -> (first subscribe) -> Active -> (last unsubscribe) -> Closed
//	Active -> (stream fatal) -> Terminated -> (next publish) -> Active
type state int

const (
	stateIdle state = iota
	stateActive
	stateClosed
	stateTerminated
)

// defaultChannelCapacity bounds each subscriber's primary delivery channel.
// defaultSpoolCapacity bounds the msgpack-encoded overflow spool a slow
// subscriber drains from once its channel backs up; exceeding both drops
// the subscriber with an OverflowError terminal event.
const (
	defaultChannelCapacity = 64
	defaultSpoolCapacity   = 256
	defaultDispatchPool    = 8
)

// subscriber is one listener registered on a table's Buffer.
type subscriber struct {
	ch    chan Event
	spool *spool
	mu    sync.Mutex // guards draining vs concurrent Publish appends
}

// Subscription is the handle a caller holds after Subscribe; Events
// delivers the table's change stream in LSN order, Unsubscribe tears the
// registration down (and, if it was the last one, closes the buffer).
type Subscription struct {
	events <-chan Event
	cancel func()
}

// Events returns the channel of delivered Events. It is closed when the
// subscription is dropped for overflow or explicitly unsubscribed.
func (s *Subscription) Events() <-chan Event { return s.events }

// Unsubscribe removes the subscription. If it was the last one on the
// table, the Buffer transitions to Closed (spec.md §4.8).
func (s *Subscription) Unsubscribe() { s.cancel() }

// Buffer is the lazy multi-subscriber broadcast queue for one table,
// spec.md §4.8: "per table, maintains a lazy broadcast buffer."
type Buffer struct {
	schema, table string
	logger        *zap.Logger

	channelCapacity int
	spoolCapacity   int
	dispatchPool    int

	mu          sync.Mutex
	st          state
	subscribers map[*subscriber]struct{}
}

// newBuffer constructs an Idle buffer for schema.table.
func newBuffer(schema, table string, logger *zap.Logger) *Buffer {
	return &Buffer{
		schema:          schema,
		table:           table,
		logger:          logger,
		channelCapacity: defaultChannelCapacity,
		spoolCapacity:   defaultSpoolCapacity,
		dispatchPool:    defaultDispatchPool,
		subscribers:     make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a new listener, creating the buffer (Idle -> Active,
// or Terminated/Closed -> Active) if this is the first one.
func (b *Buffer) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == stateIdle || b.st == stateClosed || b.st == stateTerminated {
		b.st = stateActive
	}

	sub := &subscriber{
		ch:    make(chan Event, b.channelCapacity),
		spool: newSpool(b.spoolCapacity),
	}
	b.subscribers[sub] = struct{}{}

	return &Subscription{
		events: sub.ch,
		cancel: func() { b.unsubscribe(sub) },
	}
}

func (b *Buffer) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	empty := len(b.subscribers) == 0
	if empty && b.st == stateActive {
		b.st = stateClosed
	}
	b.mu.Unlock()

	if ok {
		sub.mu.Lock()
		close(sub.ch)
		sub.mu.Unlock()
	}
}

// Terminate marks the buffer Terminated after an unexpected stream close
// (spec.md §4.8). The next Publish call recreates it.
func (b *Buffer) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == stateActive {
		b.st = stateTerminated
	}
}

// subscriberCount reports the number of currently registered subscribers,
// used by the registry to decide whether a table's buffer is still live.
func (b *Buffer) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Publish delivers ev to every current subscriber in the order it is
// called, i.e. source LSN order, since the stream consumer calls Publish
// once per decoded message in LSN order. A Terminated buffer is recreated
// (transitions back to Active) rather than silently discarding ev.
func (b *Buffer) Publish(ctx context.Context, ev Event) {
	b.mu.Lock()
	if b.st == stateTerminated || b.st == stateIdle || b.st == stateClosed {
		b.st = stateActive
	}
	subs := make([]*subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(b.dispatchPool)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			b.deliver(sub, ev)
			return nil
		})
	}
	_ = g.Wait()
}

// deliver attempts a non-blocking send on sub's channel; if it is full, the
// event is spooled (msgpack-encoded) for later draining. If the spool is
// also full, the subscriber is dropped with an OverflowError terminal
// event, per spec.md §7's OverflowError row ("terminates that subscription
// only").
func (b *Buffer) deliver(sub *subscriber, ev Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	b.drain(sub)

	select {
	case sub.ch <- ev:
		return
	default:
	}

	enc, err := msgpack.Marshal(&ev)
	if err != nil {
		b.logger.Warn("cdc: dropping event that failed to spool-encode",
			zap.String("table", b.table), zap.Error(err))
		return
	}
	if sub.spool.push(enc) {
		return
	}

	// Spool is also full: this subscriber has fallen too far behind.
	b.dropForOverflow(sub)
}

// drain opportunistically flushes spooled events into sub's channel while
// there is room, restoring delivery order once the consumer catches up.
func (b *Buffer) drain(sub *subscriber) {
	for {
		enc, ok := sub.spool.peek()
		if !ok {
			return
		}
		var ev Event
		if err := msgpack.Unmarshal(enc, &ev); err != nil {
			sub.spool.pop()
			continue
		}
		select {
		case sub.ch <- ev:
			sub.spool.pop()
		default:
			return
		}
	}
}

func (b *Buffer) dropForOverflow(sub *subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	if len(b.subscribers) == 0 && b.st == stateActive {
		b.st = stateClosed
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	// Guarantee the terminal marker is delivered even if the channel is
	// currently full, by discarding the oldest buffered event to make room.
	select {
	case sub.ch <- overflowEvent(b.schema, b.table):
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- overflowEvent(b.schema, b.table):
		default:
		}
	}
	close(sub.ch)
	b.logger.Warn("cdc: subscriber dropped for overflow",
		zap.String("schema", b.schema), zap.String("table", b.table))
}
