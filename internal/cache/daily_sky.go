package cache

import (
	"context"
	"sync"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/ephemeris"
	"transit-synth/internal/observability"
	"transit-synth/internal/storage"
)

const tierDailySky = "daily_sky"

// DailySky holds the single global sky entry. It expires at the start of the
// next UTC day after it was computed.
type DailySky struct {
	tier    *tier[domain.DailySkyData]
	gateway ephemeris.Gateway
	opts    Options

	mu    sync.RWMutex
	hooks []func(domain.CacheEntry[domain.DailySkyData])
}

// NewDailySky creates a new Daily Sky Cache.
func NewDailySky(store storage.CacheStore, gateway ephemeris.Gateway, opts Options) *DailySky {
	opts = opts.withDefaults()
	c := &DailySky{
		tier:    newTier[domain.DailySkyData](tierDailySky, store, opts),
		gateway: gateway,
		opts:    opts,
	}
	c.tier.onWrite = c.publish
	return c
}

// OnRefresh registers fn to be called after each successful refresh.
// fn runs on the refresh goroutine and must not block.
func (c *DailySky) OnRefresh(fn func(domain.CacheEntry[domain.DailySkyData])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Get returns today's sky, refreshing it once per UTC day.
func (c *DailySky) Get(ctx context.Context) (Result[domain.DailySkyData], error) {
	return c.tier.get(ctx, domain.DailySkyKey, skyValid, c.load)
}

// Peek returns the stored entry without refreshing it, or nil.
func (c *DailySky) Peek(ctx context.Context) *domain.CacheEntry[domain.DailySkyData] {
	return c.tier.read(ctx, domain.DailySkyKey)
}

func skyValid(e domain.CacheEntry[domain.DailySkyData], now time.Time) bool {
	return e.Fresh(now)
}

func (c *DailySky) load(ctx context.Context, _ *domain.CacheEntry[domain.DailySkyData]) (domain.CacheEntry[domain.DailySkyData], error) {
	sky, err := c.gateway.ComputeCurrentSky(ctx)
	if err != nil {
		return domain.CacheEntry[domain.DailySkyData]{}, err
	}

	now := c.opts.Clock()
	return domain.CacheEntry[domain.DailySkyData]{
		Value:      *sky,
		ComputedAt: now,
		ExpiresAt:  domain.NextUTCDay(now),
	}, nil
}

func (c *DailySky) publish(e domain.CacheEntry[domain.DailySkyData]) {
	observability.RecordSkyRefresh(e.ComputedAt.Unix())

	c.mu.RLock()
	hooks := append([]func(domain.CacheEntry[domain.DailySkyData]){}, c.hooks...)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn(e)
	}
}
