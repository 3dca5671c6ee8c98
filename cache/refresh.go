// Package cache holds in-memory snapshots used on hot read paths such as
// autocomplete. Refresh keeps a whole list with a time-to-live; Details keeps
// individually fetched values in an expiring LRU.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gemuki/bot/telemetry"
)

// Loader produces a full replacement snapshot.
type Loader[T any] func(ctx context.Context) ([]T, error)

type snapshot[T any] struct {
	items []T
	at    time.Time
}

// Refresh is a snapshot of a list with a time-to-live.
//
// Reads load an atomic pointer and never wait on a reload. Update and
// ForceUpdate hold one mutex across the staleness check, the reload and the
// swap, so a snapshot is always replaced whole. A failed reload keeps the
// previous snapshot and its timestamp, so the next Update retries.
type Refresh[T any] struct {
	name   string
	ttl    time.Duration
	load   Loader[T]
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot[T]]
}

// Option configures a Refresh.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithLogger sets the logger used for reload failures.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New creates the cache and performs the initial load. A failing initial load
// yields an empty snapshot stamped with the current time; New never fails.
func New[T any](ctx context.Context, name string, ttl time.Duration, load Loader[T], opts ...Option) *Refresh[T] {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Refresh[T]{
		name:   name,
		ttl:    ttl,
		load:   load,
		now:    o.now,
		logger: o.logger.With(slog.String("component", "cache"), slog.String("cache", name)),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reloadLocked(ctx) {
		c.snap.Store(&snapshot[T]{at: c.now()})
	}
	return c
}

// Items returns the current snapshot. The returned slice is shared and must not be modified.
func (c *Refresh[T]) Items() []T {
	return c.snap.Load().items
}

// LastRefresh returns when the current snapshot was loaded.
func (c *Refresh[T]) LastRefresh() time.Time {
	return c.snap.Load().at
}

// Update reloads when the snapshot is older than the ttl or empty.
func (c *Refresh[T]) Update(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.snap.Load()
	if len(cur.items) > 0 && c.now().Sub(cur.at) <= c.ttl {
		return
	}
	c.reloadLocked(ctx)
}

// ForceUpdate reloads regardless of age. Call it after mutating the source list.
func (c *Refresh[T]) ForceUpdate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reloadLocked(ctx)
}

// reloadLocked must be called with c.mu held.
func (c *Refresh[T]) reloadLocked(ctx context.Context) bool {
	items, err := c.load(ctx)
	telemetry.ObserveCacheRefresh(c.name, err, len(items))
	if err != nil {
		c.logger.Warn("cache reload failed, keeping previous snapshot", slog.Any("err", err))
		return false
	}
	c.snap.Store(&snapshot[T]{items: items, at: c.now()})
	c.logger.Debug("cache reloaded", slog.Int("items", len(items)))
	return true
}
