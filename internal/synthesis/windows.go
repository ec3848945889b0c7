package synthesis

import (
	"fmt"
	"time"

	"transit-synth/internal/domain"
)

// GenerateUpcomingWindows tiles the forecast horizon starting at the synthesis day.
// Each day takes the phase of the best qualifying cluster running that day,
// or the natal cycle when none is. Consecutive days with the same phase, focus
// and theme merge. The result is chronological and gap-free.
func (s *Synthesizer) GenerateUpcomingWindows(aspects []domain.ScoredAspect, chart *domain.NatalChart, asOf time.Time) []domain.UpcomingWindow {
	today := domain.Day(asOf)
	clusters := s.qualifying(aspects, today)

	var windows []domain.UpcomingWindow
	for i := 0; i < s.horizonDays; i++ {
		d := today.AddDate(0, 0, i)
		w := s.windowOn(clusters, chart, d)

		if n := len(windows); n > 0 {
			last := &windows[n-1]
			if last.Focus == w.Focus && last.Trend == w.Trend && last.ThemeID == w.ThemeID {
				last.End = d
				continue
			}
		}
		windows = append(windows, w)
	}
	return windows
}

// windowOn builds the single-day window for d. clusters are ranked best first.
func (s *Synthesizer) windowOn(clusters []*cluster, chart *domain.NatalChart, d time.Time) domain.UpcomingWindow {
	for _, c := range clusters {
		if d.Before(c.start) || d.After(c.end) {
			continue
		}
		trend := c.trendOn(d)
		phrase := s.templates.Lookup(c.focus, c.lead().Type, c.valence())
		return domain.UpcomingWindow{
			Start:   d,
			End:     d,
			Summary: fmt.Sprintf("%s (%s)", phrase.Title, trend),
			Focus:   c.focus,
			Trend:   trend,
			ThemeID: c.id,
		}
	}

	cyc := cycleOn(chart, d)
	trend := cyc.trend()
	return domain.UpcomingWindow{
		Start:   d,
		End:     d,
		Summary: s.templates.CycleSummary(cyc.focus, trend),
		Focus:   cyc.focus,
		Trend:   trend,
	}
}
