// Package orchestrator provides the Synthesis Façade.
// It coordinates: daily sky → user transits → scoring → synthesis
package orchestrator

import (
	"context"
	"io"
	"log"
	"time"

	"transit-synth/internal/cache"
	"transit-synth/internal/domain"
	"transit-synth/internal/idhash"
	"transit-synth/internal/observability"
	"transit-synth/internal/scoring"
	"transit-synth/internal/storage"
	"transit-synth/internal/synthesis"
)

// Orchestrator is the single entry point used by request handlers.
// Upstream failures degrade the source; only malformed input is an error.
type Orchestrator struct {
	// Caches
	sky      *cache.DailySky
	transits *cache.UserTransits

	synthesizer *synthesis.Synthesizer
	runs        storage.SynthesisRunStore

	clock  func() time.Time
	logger *log.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Optional caches; nil skips the tier.
	Sky      *cache.DailySky
	Transits *cache.UserTransits

	// Synthesizer defaults to synthesis.New(synthesis.Options{}).
	Synthesizer *synthesis.Synthesizer

	// Runs records each dashboard computation (best effort). Optional.
	Runs storage.SynthesisRunStore

	Clock  func() time.Time
	Logger *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		sky:         opts.Sky,
		transits:    opts.Transits,
		synthesizer: opts.Synthesizer,
		runs:        opts.Runs,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	if o.synthesizer == nil {
		o.synthesizer = synthesis.New(synthesis.Options{})
	}
	if o.clock == nil {
		o.clock = func() time.Time { return time.Now().UTC() }
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Dashboard synthesizes the envelope for chart. sky is optional pre-fetched
// data; when nil the Daily Sky Cache is consulted.
//
// Source is live when the User Transit Cache served gateway aspects,
// calculated when only the sky was available, and mock when there was no sky.
func (o *Orchestrator) Dashboard(ctx context.Context, chart *domain.NatalChart, sky *domain.DailySkyData) (domain.SynthesisEnvelope, error) {
	start := time.Now()
	now := o.clock()

	if err := chart.Validate(now); err != nil {
		return domain.SynthesisEnvelope{}, err
	}

	var degraded bool
	if sky == nil {
		sky, degraded = o.currentSky(ctx)
	}

	var env domain.SynthesisEnvelope
	if sky == nil {
		env = o.synthesizer.Synthesize(nil, chart, now)
		env.Source = domain.SourceMock
		degraded = true
	} else {
		source := domain.SourceLive
		aspects, status := o.userAspects(ctx, chart)
		if !status.ok {
			source = domain.SourceCalculated
			aspects = scoring.DetectAspects(chart, sky)
			status.degraded = true
		}
		env = o.synthesizer.Synthesize(scoring.ScoreAll(aspects, chart), chart, now)
		env.Source = source
		degraded = degraded || status.degraded
	}
	env.Degraded = degraded

	o.record(ctx, chart, env, now)
	observability.RecordSynthesis(env.Source.String(), env.Degraded, time.Since(start).Seconds())
	return env, nil
}

// currentSky returns the cached sky, or nil when none is available.
func (o *Orchestrator) currentSky(ctx context.Context) (*domain.DailySkyData, bool) {
	if o.sky == nil {
		return nil, false
	}
	res, err := o.sky.Get(ctx)
	if err != nil {
		o.logger.Printf("daily sky unavailable, falling back to chart-only synthesis: %v", err)
		return nil, false
	}
	return &res.Value, res.Stale || res.Degraded
}

type transitStatus struct {
	ok       bool
	degraded bool
}

// userAspects returns the gateway aspects for the chart's birth data.
func (o *Orchestrator) userAspects(ctx context.Context, chart *domain.NatalChart) ([]domain.TransitAspect, transitStatus) {
	if o.transits == nil {
		return nil, transitStatus{}
	}
	res, err := o.transits.Get(ctx, chart.Birth)
	if err != nil {
		o.logger.Printf("user transits unavailable, detecting aspects locally: %v", err)
		return nil, transitStatus{}
	}
	return res.Value.Aspects, transitStatus{ok: true, degraded: res.Stale || res.Degraded}
}

// record appends the run to the run store and metrics. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, chart *domain.NatalChart, env domain.SynthesisEnvelope, now time.Time) {
	if !env.PrimaryTheme.Template {
		observability.RecordThemeSurfaced(string(env.PrimaryTheme.Focus))
	}
	for _, th := range env.SecondaryThemes {
		if !th.Template {
			observability.RecordThemeSurfaced(string(th.Focus))
		}
	}

	if o.runs == nil {
		return
	}
	run := &domain.SynthesisRun{
		Fingerprint:    idhash.Fingerprint(chart.Birth),
		Source:         env.Source,
		PrimaryThemeID: env.PrimaryTheme.ID,
		PrimaryScore:   env.PrimaryTheme.Score,
		SecondaryCount: len(env.SecondaryThemes),
		WindowCount:    len(env.UpcomingWindows),
		Degraded:       env.Degraded,
		GeneratedFor:   env.GeneratedFor,
		RecordedAt:     now,
	}
	if err := o.runs.Insert(ctx, run); err != nil {
		o.logger.Printf("record synthesis run: %v", err)
	}
}
