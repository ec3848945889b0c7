// Package stub provides an in-process ephemeris gateway for tests and local runs.
package stub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/ephemeris"
	"transit-synth/internal/idhash"
	"transit-synth/internal/scoring"
)

// Gateway implements ephemeris.Gateway without network access.
// Unset data is synthesized deterministically from mean planetary motion.
type Gateway struct {
	mu      sync.Mutex
	sky     *domain.DailySkyData
	charts  map[string]*domain.NatalChart     // keyed by birth data fingerprint
	aspects map[string][]domain.TransitAspect // keyed by birth data fingerprint

	skyErr     error
	chartErr   error
	aspectsErr error
	delay      time.Duration
	now        func() time.Time

	skyCalls     atomic.Int64
	chartCalls   atomic.Int64
	aspectsCalls atomic.Int64
}

// NewGateway creates a new stub gateway.
func NewGateway() *Gateway {
	return &Gateway{
		charts:  make(map[string]*domain.NatalChart),
		aspects: make(map[string][]domain.TransitAspect),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Compile-time interface check.
var _ ephemeris.Gateway = (*Gateway)(nil)

// SetClock sets the clock used for synthesized sky data.
func (g *Gateway) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// SetDelay makes every call block for d (or until ctx is done).
func (g *Gateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// SetSky fixes the sky returned by ComputeCurrentSky.
func (g *Gateway) SetSky(sky *domain.DailySkyData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sky = sky
}

// AddChart fixes the chart returned for the chart's birth data.
func (g *Gateway) AddChart(chart *domain.NatalChart) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charts[idhash.Fingerprint(chart.Birth)] = chart
}

// AddAspects fixes the aspects returned for birth data.
func (g *Gateway) AddAspects(birth domain.BirthData, aspects []domain.TransitAspect) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aspects[idhash.Fingerprint(birth)] = aspects
}

// FailSky makes ComputeCurrentSky return err (nil clears).
func (g *Gateway) FailSky(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.skyErr = err
}

// FailCharts makes ComputeNatalChart return err (nil clears).
func (g *Gateway) FailCharts(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chartErr = err
}

// FailAspects makes ComputeAspects return err (nil clears).
func (g *Gateway) FailAspects(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.aspectsErr = err
}

// SkyCalls returns the number of ComputeCurrentSky invocations.
func (g *Gateway) SkyCalls() int64 { return g.skyCalls.Load() }

// ChartCalls returns the number of ComputeNatalChart invocations.
func (g *Gateway) ChartCalls() int64 { return g.chartCalls.Load() }

// AspectsCalls returns the number of ComputeAspects invocations.
func (g *Gateway) AspectsCalls() int64 { return g.aspectsCalls.Load() }

// wait blocks for the configured delay.
func (g *Gateway) wait(ctx context.Context) error {
	g.mu.Lock()
	d := g.delay
	g.mu.Unlock()
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return domain.ErrUpstreamTimeout
	case <-time.After(d):
		return nil
	}
}

// ComputeNatalChart returns the fixed chart or synthesizes one.
func (g *Gateway) ComputeNatalChart(ctx context.Context, birth domain.BirthData) (*domain.NatalChart, error) {
	g.chartCalls.Add(1)
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chartErr != nil {
		return nil, g.chartErr
	}
	if chart, ok := g.charts[idhash.Fingerprint(birth)]; ok {
		c := *chart
		return &c, nil
	}
	return SynthesizeChart(birth, g.now()), nil
}

// ComputeCurrentSky returns the fixed sky or synthesizes one for now.
func (g *Gateway) ComputeCurrentSky(ctx context.Context) (*domain.DailySkyData, error) {
	g.skyCalls.Add(1)
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.skyErr != nil {
		return nil, g.skyErr
	}
	if g.sky != nil {
		s := *g.sky
		if s.ComputedAt.IsZero() {
			s.ComputedAt = g.now()
		}
		return &s, nil
	}
	return SynthesizeSky(g.now()), nil
}

// ComputeAspects returns the fixed aspects or detects them geometrically.
func (g *Gateway) ComputeAspects(ctx context.Context, chart *domain.NatalChart, sky *domain.DailySkyData) ([]domain.TransitAspect, error) {
	g.aspectsCalls.Add(1)
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aspectsErr != nil {
		return nil, g.aspectsErr
	}
	if aspects, ok := g.aspects[idhash.Fingerprint(chart.Birth)]; ok {
		out := make([]domain.TransitAspect, len(aspects))
		copy(out, aspects)
		return out, nil
	}
	return scoring.DetectAspects(chart, sky), nil
}
