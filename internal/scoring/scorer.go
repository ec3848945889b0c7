// Package scoring assigns relevance scores to transit aspects.
package scoring

import (
	"math"
	"sort"

	"transit-synth/internal/domain"
)

// Score computes the relevance of one aspect against a natal chart.
// Score weighs the transiting body for long themes, ShortScore for the day.
// Returns false when the aspect is excluded: unknown body or type, a natal point
// missing from the chart, or a time-sensitive point on an unknown-time chart.
// Excluded aspects have no score at all.
func Score(a domain.TransitAspect, chart *domain.NatalChart) (domain.ScoredAspect, bool) {
	w, ok := aspectWeights[a.Type]
	if !ok {
		return domain.ScoredAspect{}, false
	}
	longW, ok := TransitWeight(a.Transiting, domain.HorizonLong)
	if !ok {
		return domain.ScoredAspect{}, false
	}
	shortW, _ := TransitWeight(a.Transiting, domain.HorizonShort)

	conf := chart.Birth.TimeConfidence
	if conf == domain.ConfidenceUnknown && a.Natal.IsAngle() {
		return domain.ScoredAspect{}, false
	}
	point, ok := chart.Point(a.Natal)
	if !ok {
		return domain.ScoredAspect{}, false
	}

	orbFactor := math.Max(0, 1-math.Abs(a.Orb)/w.maxOrb)
	raw := 100 * w.base * orbFactor * natalWeight(a.Natal, conf)

	return domain.ScoredAspect{
		TransitAspect: a,
		Score:         round1(clamp(raw*longW, 0, 100)),
		ShortScore:    round1(clamp(raw*shortW, 0, 100)),
		Focus:         FocusOf(point, conf),
		Valence:       valenceOf(a.Type, a.Transiting, a.Natal),
		Horizon:       HorizonOf(a.Transiting),
	}, true
}

// ScoreAll scores every aspect and drops excluded ones.
// Result is sorted by Score DESC, ID ASC.
func ScoreAll(aspects []domain.TransitAspect, chart *domain.NatalChart) []domain.ScoredAspect {
	scored := make([]domain.ScoredAspect, 0, len(aspects))
	for _, a := range aspects {
		if s, ok := Score(a, chart); ok {
			scored = append(scored, s)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	return scored
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
