// Package synthesis turns scored transit aspects into themes, daily guidance
// and forecast windows.
package synthesis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/idhash"
)

// Defaults.
const (
	DefaultThreshold    = 40.0
	DefaultMaxSecondary = 3
	DefaultHorizonDays  = 90
)

// Options configures a Synthesizer.
type Options struct {
	Threshold    float64    // minimum cluster score to surface, (0, 100]
	MaxSecondary int        // <= 0 uses DefaultMaxSecondary
	HorizonDays  int        // <= 0 uses DefaultHorizonDays
	Templates    *Templates // nil uses DefaultTemplates
}

// Synthesizer is stateless; every operation is a pure function of its inputs.
type Synthesizer struct {
	threshold    float64
	maxSecondary int
	horizonDays  int
	templates    *Templates
}

// New creates a new Synthesizer.
func New(opts Options) *Synthesizer {
	s := &Synthesizer{
		threshold:    opts.Threshold,
		maxSecondary: opts.MaxSecondary,
		horizonDays:  opts.HorizonDays,
		templates:    opts.Templates,
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	if s.maxSecondary <= 0 {
		s.maxSecondary = DefaultMaxSecondary
	}
	if s.horizonDays <= 0 {
		s.horizonDays = DefaultHorizonDays
	}
	if s.templates == nil {
		s.templates = DefaultTemplates()
	}
	return s
}

// HorizonDays returns the configured forecast horizon.
func (s *Synthesizer) HorizonDays() int { return s.horizonDays }

// Synthesize runs all four operations for one chart and day.
// asOf stamps LastComputed; the synthesis day is its UTC day.
// Source and Degraded are left to the caller.
func (s *Synthesizer) Synthesize(aspects []domain.ScoredAspect, chart *domain.NatalChart, asOf time.Time) domain.SynthesisEnvelope {
	return domain.SynthesisEnvelope{
		PrimaryTheme:    s.GeneratePrimaryTheme(aspects, chart, asOf),
		SecondaryThemes: s.GenerateSecondaryThemes(aspects, chart, asOf),
		DailyGuidance:   s.GenerateDailyGuidance(aspects, chart, asOf),
		UpcomingWindows: s.GenerateUpcomingWindows(aspects, chart, asOf),
		GeneratedFor:    domain.Day(asOf),
	}
}

// qualifying returns clusters at or above the threshold that are still running
// and start within the horizon, best first.
func (s *Synthesizer) qualifying(aspects []domain.ScoredAspect, today time.Time) []*cluster {
	last := today.AddDate(0, 0, s.horizonDays-1)

	var out []*cluster
	for _, c := range buildClusters(aspects) {
		if c.score < s.threshold || c.end.Before(today) || c.start.After(last) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return ranksBefore(out[i], out[j], today) })
	return out
}

// ranksBefore orders clusters for primary selection: rounded score DESC,
// remaining days DESC, exact score DESC, start ASC, ID ASC.
// Scores are compared rounded to whole points so that clusters within the same
// point are decided by how long they still run; the exact score only breaks
// ties after that.
func ranksBefore(a, b *cluster, today time.Time) bool {
	if ra, rb := math.Round(a.score), math.Round(b.score); ra != rb {
		return ra > rb
	}
	if da, db := domain.DaysBetween(today, a.end), domain.DaysBetween(today, b.end); da != db {
		return da > db
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.start.Equal(b.start) {
		return a.start.Before(b.start)
	}
	return a.id < b.id
}

// GeneratePrimaryTheme selects the best qualifying cluster. Without one it
// returns template content for the current natal cycle.
func (s *Synthesizer) GeneratePrimaryTheme(aspects []domain.ScoredAspect, chart *domain.NatalChart, asOf time.Time) domain.SynthesizedTheme {
	today := domain.Day(asOf)
	clusters := s.qualifying(aspects, today)
	if len(clusters) == 0 {
		return s.templateThemes(chart, asOf)[0]
	}
	return s.themeFromCluster(clusters[0], today, asOf)
}

// GenerateSecondaryThemes selects up to MaxSecondary further clusters, preferring
// focus areas other than the primary's, ordered by score.
func (s *Synthesizer) GenerateSecondaryThemes(aspects []domain.ScoredAspect, chart *domain.NatalChart, asOf time.Time) []domain.SynthesizedTheme {
	today := domain.Day(asOf)
	clusters := s.qualifying(aspects, today)
	if len(clusters) == 0 {
		themes := s.templateThemes(chart, asOf)[1:]
		if len(themes) > s.maxSecondary {
			themes = themes[:s.maxSecondary]
		}
		return themes
	}

	primary := clusters[0]
	rest := clusters[1:]
	picked := make(map[string]bool)
	seen := map[domain.FocusArea]bool{primary.focus: true}

	var chosen []*cluster
	for _, c := range rest {
		if len(chosen) == s.maxSecondary {
			break
		}
		if !seen[c.focus] {
			seen[c.focus] = true
			picked[c.id] = true
			chosen = append(chosen, c)
		}
	}
	for _, c := range rest {
		if len(chosen) == s.maxSecondary {
			break
		}
		if !picked[c.id] {
			picked[c.id] = true
			chosen = append(chosen, c)
		}
	}

	sort.SliceStable(chosen, func(i, j int) bool {
		if chosen[i].score != chosen[j].score {
			return chosen[i].score > chosen[j].score
		}
		return ranksBefore(chosen[i], chosen[j], today)
	})

	themes := make([]domain.SynthesizedTheme, 0, len(chosen))
	for _, c := range chosen {
		themes = append(themes, s.themeFromCluster(c, today, asOf))
	}
	return themes
}

func (s *Synthesizer) themeFromCluster(c *cluster, today, asOf time.Time) domain.SynthesizedTheme {
	lead := c.lead()
	phrase := s.templates.Lookup(c.focus, lead.Type, c.valence())

	explanation := phrase.Explanation
	if n := len(c.members) - 1; n > 0 {
		explanation = fmt.Sprintf("%s Reinforced by %d related transit(s).", explanation, n)
	}

	return domain.SynthesizedTheme{
		ID:           c.id,
		Name:         fmt.Sprintf("%s %s %s: %s", lead.Transiting.Title(), lead.Type, lead.Natal.Title(), phrase.Title),
		Explanation:  explanation,
		Start:        c.start,
		End:          c.end,
		Peak:         c.peak,
		Intensity:    intensityOn(today, c.start, c.end, c.peak),
		Focus:        c.focus,
		AspectIDs:    c.aspectIDs(),
		Score:        c.score,
		LastComputed: asOf,
	}
}

// templateThemes builds non-live themes from the current natal cycle: the cycle's
// focus first, then the remaining focus areas in rotation order.
func (s *Synthesizer) templateThemes(chart *domain.NatalChart, asOf time.Time) []domain.SynthesizedTheme {
	today := domain.Day(asOf)
	cyc := cycleOn(chart, today)
	peak := domain.DateRange{
		Start: cyc.start.AddDate(0, 0, cyclePeakStart),
		End:   cyc.start.AddDate(0, 0, cyclePeakEnd),
	}

	themes := make([]domain.SynthesizedTheme, 0, len(domain.FocusAreas))
	start := indexOf(cyc.focus)
	for i := range domain.FocusAreas {
		focus := domain.FocusAreas[(start+i)%len(domain.FocusAreas)]
		phrase := s.templates.Base(focus, domain.ValencePositive)
		r := domain.DateRange{Start: cyc.start, End: cyc.end}
		themes = append(themes, domain.SynthesizedTheme{
			ID:           idhash.ComputeThemeID(focus, r, nil),
			Name:         phrase.Title,
			Explanation:  phrase.Explanation,
			Start:        cyc.start,
			End:          cyc.end,
			Peak:         peak,
			Intensity:    intensityOn(today, cyc.start, cyc.end, peak),
			Focus:        focus,
			AspectIDs:    []string{},
			Template:     true,
			LastComputed: asOf,
		})
	}
	return themes
}
