package cache

import (
	"context"
	"fmt"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/ephemeris"
	"transit-synth/internal/idhash"
	"transit-synth/internal/storage"
)

const tierUserTransits = "user_transits"

// UserTransits holds one transit result per birth data fingerprint.
type UserTransits struct {
	tier    *tier[domain.TransitResult]
	gateway ephemeris.Gateway
	sky     *DailySky
	opts    Options
}

// NewUserTransits creates a new User Transit Cache backed by sky.
func NewUserTransits(store storage.CacheStore, gateway ephemeris.Gateway, sky *DailySky, opts Options) *UserTransits {
	opts = opts.withDefaults()
	return &UserTransits{
		tier:    newTier[domain.TransitResult](tierUserTransits, store, opts),
		gateway: gateway,
		sky:     sky,
		opts:    opts,
	}
}

// Get returns the transit result for birth. An entry is refreshed when older
// than the TTL or older than the current daily sky. Degraded is also set when
// the current sky could not be refreshed.
func (c *UserTransits) Get(ctx context.Context, birth domain.BirthData) (Result[domain.TransitResult], error) {
	if err := birth.Validate(c.opts.Clock()); err != nil {
		return Result[domain.TransitResult]{}, err
	}

	skyRes, skyErr := c.sky.Get(ctx)
	skyAt := skyRes.ComputedAt

	valid := func(e domain.CacheEntry[domain.TransitResult], now time.Time) bool {
		return e.Fresh(now) && !e.ComputedAt.Before(skyAt)
	}
	load := func(ctx context.Context, prev *domain.CacheEntry[domain.TransitResult]) (domain.CacheEntry[domain.TransitResult], error) {
		if skyErr != nil {
			return domain.CacheEntry[domain.TransitResult]{}, skyErr
		}
		return c.load(ctx, birth, skyRes.CacheEntry, prev)
	}

	fp := idhash.Fingerprint(birth)
	res, err := c.tier.get(ctx, domain.TransitsKey(fp), valid, load)
	if err != nil {
		return res, err
	}
	res.Degraded = res.Degraded || skyRes.Degraded || skyErr != nil
	return res, nil
}

func (c *UserTransits) load(
	ctx context.Context,
	birth domain.BirthData,
	sky domain.CacheEntry[domain.DailySkyData],
	prev *domain.CacheEntry[domain.TransitResult],
) (domain.CacheEntry[domain.TransitResult], error) {
	fp := idhash.Fingerprint(birth)

	// The natal chart never changes for a fingerprint.
	var chart *domain.NatalChart
	if prev != nil && len(prev.Value.Chart.Points) > 0 {
		ch := prev.Value.Chart
		chart = &ch
	} else {
		computed, err := c.gateway.ComputeNatalChart(ctx, birth)
		if err != nil {
			return domain.CacheEntry[domain.TransitResult]{}, fmt.Errorf("natal chart: %w", err)
		}
		chart = computed
	}

	skyValue := sky.Value
	aspects, err := c.gateway.ComputeAspects(ctx, chart, &skyValue)
	if err != nil {
		return domain.CacheEntry[domain.TransitResult]{}, fmt.Errorf("aspects: %w", err)
	}
	for i := range aspects {
		if aspects[i].ID == "" {
			aspects[i].ID = idhash.ComputeAspectID(aspects[i])
		}
	}

	now := c.opts.Clock()
	return domain.CacheEntry[domain.TransitResult]{
		Value: domain.TransitResult{
			Fingerprint:   fp,
			Chart:         *chart,
			Aspects:       aspects,
			SkyComputedAt: sky.ComputedAt,
			ComputedAt:    now,
		},
		ComputedAt: now,
		ExpiresAt:  now.Add(c.opts.UserTransitTTL),
	}, nil
}
