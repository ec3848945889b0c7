// Package cache implements the Daily Sky Cache and the User Transit Cache.
//
// Both caches share one tier: rows live in a storage.CacheStore, and misses
// are resolved by a single in-flight load per key. The load runs detached
// from the caller, so a caller that gives up does not cancel the refresh.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"transit-synth/internal/domain"
	"transit-synth/internal/observability"
	"transit-synth/internal/storage"
)

// Defaults.
const (
	DefaultStaleWait       = 300 * time.Millisecond
	DefaultUpstreamTimeout = 8 * time.Second
	DefaultUserTransitTTL  = 24 * time.Hour
)

// Options configures a cache.
type Options struct {
	Clock           func() time.Time
	Logger          *log.Logger
	StaleWait       time.Duration // how long a caller holding a stale value waits for the refresh
	UpstreamTimeout time.Duration // bound on one detached refresh
	UserTransitTTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	if o.StaleWait <= 0 {
		o.StaleWait = DefaultStaleWait
	}
	if o.UpstreamTimeout <= 0 {
		o.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if o.UserTransitTTL <= 0 {
		o.UserTransitTTL = DefaultUserTransitTTL
	}
	return o
}

// Result is a cache lookup result.
type Result[T any] struct {
	domain.CacheEntry[T]

	// Stale is set when an invalid entry was served because the refresh
	// did not finish in time. The refresh keeps running.
	Stale bool

	// Degraded is set when an invalid entry was served because the refresh failed.
	Degraded bool
}

// validFunc reports whether a stored entry may be served without a refresh.
type validFunc[T any] func(e domain.CacheEntry[T], now time.Time) bool

// loadFunc computes a new entry. prev is the stored entry, possibly invalid, or nil.
type loadFunc[T any] func(ctx context.Context, prev *domain.CacheEntry[T]) (domain.CacheEntry[T], error)

// tier is the shared read-through layer over a CacheStore.
type tier[T any] struct {
	name  string // metrics label
	store storage.CacheStore
	group singleflight.Group
	opts  Options

	// onWrite runs in the refresh goroutine after a new entry is stored.
	onWrite func(domain.CacheEntry[T])
}

func newTier[T any](name string, store storage.CacheStore, opts Options) *tier[T] {
	return &tier[T]{name: name, store: store, opts: opts}
}

// get returns a valid entry for key, refreshing it through load when needed.
func (t *tier[T]) get(ctx context.Context, key string, valid validFunc[T], load loadFunc[T]) (Result[T], error) {
	prev := t.read(ctx, key)
	if prev != nil && valid(*prev, t.opts.Clock()) {
		observability.RecordCacheLookup(t.name, observability.OutcomeHit)
		return Result[T]{CacheEntry: *prev}, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(key, func() (any, error) {
		return t.refresh(flightCtx, key, valid, load)
	})

	if prev != nil {
		timer := time.NewTimer(t.opts.StaleWait)
		defer timer.Stop()

		select {
		case r := <-ch:
			return t.settle(key, r, prev)
		case <-timer.C:
		case <-ctx.Done():
		}
		observability.RecordCacheLookup(t.name, observability.OutcomeStale)
		return Result[T]{CacheEntry: *prev, Stale: true}, nil
	}

	select {
	case r := <-ch:
		return t.settle(key, r, nil)
	case <-ctx.Done():
		observability.RecordCacheLookup(t.name, observability.OutcomeFailed)
		return Result[T]{}, fmt.Errorf("%s %s: %w", t.name, key, domain.ErrUpstreamTimeout)
	}
}

// settle turns a finished flight into a lookup result.
func (t *tier[T]) settle(key string, r singleflight.Result, prev *domain.CacheEntry[T]) (Result[T], error) {
	if r.Err != nil {
		if prev != nil {
			observability.RecordCacheLookup(t.name, observability.OutcomeDegraded)
			t.opts.Logger.Printf("serving last known %s %s after refresh failure: %v", t.name, key, r.Err)
			return Result[T]{CacheEntry: *prev, Degraded: true}, nil
		}
		observability.RecordCacheLookup(t.name, observability.OutcomeFailed)
		if domain.IsUpstream(r.Err) {
			return Result[T]{}, fmt.Errorf("%s %s: %w", t.name, key, r.Err)
		}
		return Result[T]{}, fmt.Errorf("%s %s: %w: %v", t.name, key, domain.ErrUpstreamUnavailable, r.Err)
	}

	outcome := observability.OutcomeMiss
	if r.Shared {
		outcome = observability.OutcomeJoined
	}
	observability.RecordCacheLookup(t.name, outcome)
	return Result[T]{CacheEntry: r.Val.(domain.CacheEntry[T])}, nil
}

// refresh is the body of the single in-flight load for key.
func (t *tier[T]) refresh(ctx context.Context, key string, valid validFunc[T], load loadFunc[T]) (domain.CacheEntry[T], error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.UpstreamTimeout)
	defer cancel()
	defer observability.TrackInFlight(t.name)()

	// A flight that completed just before this one started has already
	// stored a valid entry.
	cur := t.read(ctx, key)
	if cur != nil && valid(*cur, t.opts.Clock()) {
		return *cur, nil
	}

	start := time.Now()
	entry, err := load(ctx, cur)
	observability.RecordCacheRefresh(t.name, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return domain.CacheEntry[T]{}, err
	}

	stored, err := t.write(ctx, key, entry)
	if err != nil {
		// The value is still good for this flight's callers.
		t.opts.Logger.Printf("persist %s %s: %v", t.name, key, err)
		return entry, nil
	}
	if t.onWrite != nil && stored.ComputedAt.Equal(entry.ComputedAt) {
		t.onWrite(stored)
	}
	return stored, nil
}

// read loads and decodes the stored entry for key. Missing or unreadable rows are nil.
func (t *tier[T]) read(ctx context.Context, key string) *domain.CacheEntry[T] {
	rec, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.opts.Logger.Printf("read %s %s: %v", t.name, key, err)
		}
		return nil
	}

	var v T
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		t.opts.Logger.Printf("decode %s %s: %v", t.name, key, err)
		return nil
	}
	return &domain.CacheEntry[T]{Value: v, ComputedAt: rec.ComputedAt, ExpiresAt: rec.ExpiresAt}
}

// write stores entry. When the store holds a newer row, that row is returned instead.
func (t *tier[T]) write(ctx context.Context, key string, entry domain.CacheEntry[T]) (domain.CacheEntry[T], error) {
	data, err := json.Marshal(entry.Value)
	if err != nil {
		return entry, fmt.Errorf("encode: %w", err)
	}

	err = t.store.Put(ctx, &domain.CacheRecord{
		Key:        key,
		Data:       data,
		ComputedAt: entry.ComputedAt,
		ExpiresAt:  entry.ExpiresAt,
	})
	if errors.Is(err, storage.ErrStaleWrite) {
		if cur := t.read(ctx, key); cur != nil {
			return *cur, nil
		}
	}
	if err != nil {
		return entry, err
	}
	return entry, nil
}
