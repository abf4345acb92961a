package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcflow/pgql/typemap"
	"go.uber.org/zap"
)

// Querier is the minimal database/sql-shaped surface the Reflector needs to
// issue its bulk introspection queries. *sql.DB and *sql.Conn both satisfy
// it; tests substitute a go-sqlmock-backed *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (rowsScanner, error)
}

// rowsScanner is satisfied by *sql.Rows; declared locally so Querier doesn't
// have to import database/sql just to name the return type in this file
// (reflector_sql.go defines the concrete adapter over *sql.DB).
type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// DefaultTTL is the cache lifetime applied when Options.TTL is zero, per
// spec.md §3's "default 30 minutes, configurable".
const DefaultTTL = 30 * time.Minute

// Options configures a Reflector.
type Options struct {
	TTL    time.Duration
	Logger *zap.Logger
}

// entry holds one schema namespace's cached snapshot plus the time it was
// produced, so Get can decide staleness without a separate lock round-trip.
type entry struct {
	snapshot  *Snapshot
	refreshed time.Time
}

// Reflector introspects Postgres schema namespaces into Snapshots and caches
// them with a TTL, per spec.md §4.1. Safe for concurrent use: the cached
// entry for each schema is held behind an atomic.Pointer so readers never
// block on a refresh in progress for a *different* schema, and a
// singleflight-style per-schema mutex collapses concurrent refreshes of the
// *same* schema into one query round-trip.
type Reflector struct {
	db     Querier
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*atomic.Pointer[entry]
	locks   map[string]*sync.Mutex
}

// New builds a Reflector over db (typically a *sql.DB opened against the
// target Postgres instance).
func New(db Querier, opts Options) *Reflector {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reflector{
		db:      db,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]*atomic.Pointer[entry]),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Snapshot returns the cached Snapshot for schema, refreshing it first if
// absent or older than the TTL. On a refresh failure, per spec.md §7's
// IntrospectionError semantics, a previously-published snapshot is retained
// and returned instead of the error, unless there is no prior snapshot at
// all, in which case the error is returned.
func (r *Reflector) Snapshot(ctx context.Context, schema string) (*Snapshot, error) {
	slot := r.slotFor(schema)
	if e := slot.Load(); e != nil && time.Since(e.refreshed) < r.ttl {
		return e.snapshot, nil
	}

	lock := r.lockFor(schema)
	lock.Lock()
	defer lock.Unlock()

	// Re-check after acquiring the per-schema lock: another goroutine may
	// have just refreshed it while we were waiting.
	if e := slot.Load(); e != nil && time.Since(e.refreshed) < r.ttl {
		return e.snapshot, nil
	}

	snap, err := r.reflect(ctx, schema)
	if err != nil {
		if e := slot.Load(); e != nil {
			r.logger.Warn("catalog refresh failed, retaining stale snapshot",
				zap.String("schema", schema), zap.Error(err))
			return e.snapshot, nil
		}
		return nil, err
	}

	slot.Store(&entry{snapshot: snap, refreshed: time.Now()})
	return snap, nil
}

// Invalidate forces the next Snapshot call for schema to issue a fresh
// refresh, regardless of TTL. If schema is empty, every cached schema is
// invalidated.
func (r *Reflector) Invalidate(schema string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if schema == "" {
		for _, slot := range r.entries {
			slot.Store(nil)
		}
		return
	}
	if slot, ok := r.entries[schema]; ok {
		slot.Store(nil)
	}
}

func (r *Reflector) slotFor(schema string) *atomic.Pointer[entry] {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.entries[schema]
	if !ok {
		slot = &atomic.Pointer[entry]{}
		r.entries[schema] = slot
	}
	return slot
}

func (r *Reflector) lockFor(schema string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[schema]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[schema] = lock
	}
	return lock
}
