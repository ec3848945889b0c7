package synthesis

import (
	"sort"
	"time"

	"transit-synth/internal/domain"
)

// Guidance tones.
const (
	ToneSupportive  = "supportive"
	ToneChallenging = "challenging"
	ToneMixed       = "mixed"
	ToneSteady      = "steady"
)

const (
	maxListItems   = 3
	toneBalance    = 0.25 // share of net valence needed for a one-sided tone
	intensityBands = 20.0 // score points per intensity level
)

// GenerateDailyGuidance derives one day's guidance from the aspects active that day,
// ranked by ShortScore so fast transits lead. Short-horizon aspects win ties.
// Identical inputs always produce identical guidance.
func (s *Synthesizer) GenerateDailyGuidance(aspects []domain.ScoredAspect, chart *domain.NatalChart, asOf time.Time) domain.DailyGuidance {
	today := domain.Day(asOf)

	var active []domain.ScoredAspect
	for _, a := range aspects {
		if a.Window.Contains(today) && a.ShortScore > 0 {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].ShortScore != active[j].ShortScore {
			return active[i].ShortScore > active[j].ShortScore
		}
		if active[i].Horizon != active[j].Horizon {
			return active[i].Horizon == domain.HorizonShort
		}
		return active[i].ID < active[j].ID
	})

	if len(active) == 0 {
		cyc := cycleOn(chart, today)
		phrase := s.templates.Base(cyc.focus, domain.ValencePositive)
		return domain.DailyGuidance{
			Date:      today,
			Tone:      ToneSteady,
			Advice:    phrase.Advice,
			Do:        capList(phrase.Do),
			Avoid:     capList(phrase.Avoid),
			Intensity: 1,
			Template:  true,
		}
	}

	g := domain.DailyGuidance{
		Date:      today,
		Tone:      toneOf(active),
		Do:        []string{},
		Avoid:     []string{},
		Intensity: bandOf(active[0].ShortScore),
	}
	seenDo := make(map[string]bool)
	seenAvoid := make(map[string]bool)
	for i, a := range active {
		phrase := s.templates.Lookup(a.Focus, a.Type, a.Valence)
		if i == 0 {
			g.Advice = phrase.Advice
		}
		g.Do = appendUnique(g.Do, seenDo, phrase.Do)
		g.Avoid = appendUnique(g.Avoid, seenAvoid, phrase.Avoid)
	}
	return g
}

func toneOf(active []domain.ScoredAspect) string {
	var net, total float64
	for _, a := range active {
		net += a.ShortScore * a.Valence.Sign()
		total += a.ShortScore
	}
	switch {
	case net > toneBalance*total:
		return ToneSupportive
	case net < -toneBalance*total:
		return ToneChallenging
	}
	return ToneMixed
}

func bandOf(score float64) int {
	level := 1 + int(score/intensityBands)
	if level > 5 {
		level = 5
	}
	return level
}

func appendUnique(list []string, seen map[string]bool, items []string) []string {
	for _, it := range items {
		if len(list) == maxListItems {
			break
		}
		if !seen[it] {
			seen[it] = true
			list = append(list, it)
		}
	}
	return list
}

func capList(items []string) []string {
	out := make([]string, 0, maxListItems)
	return appendUnique(out, make(map[string]bool), items)
}
