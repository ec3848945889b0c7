package synthesis

import (
	"math"
	"sort"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/idhash"
)

// secondaryContribution is the share of non-leading members added to a cluster score.
const secondaryContribution = 0.1

// cluster is a connected group of same-focus aspects with overlapping windows.
type cluster struct {
	id      string
	focus   domain.FocusArea
	members []domain.ScoredAspect // Score DESC, ID ASC
	score   float64
	start   time.Time
	end     time.Time
	peak    domain.DateRange
}

func (c *cluster) lead() domain.ScoredAspect { return c.members[0] }

func (c *cluster) aspectIDs() []string {
	ids := make([]string, len(c.members))
	for i, m := range c.members {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return ids
}

// valence is the score-weighted polarity of the cluster.
func (c *cluster) valence() domain.Valence {
	var sum float64
	for _, m := range c.members {
		sum += m.Score * m.Valence.Sign()
	}
	if sum < 0 {
		return domain.ValenceNegative
	}
	return domain.ValencePositive
}

// trendOn returns the phase of the cluster on day d.
func (c *cluster) trendOn(d time.Time) domain.IntensityTrend {
	switch {
	case d.Before(c.peak.Start):
		return domain.TrendRising
	case d.After(c.peak.End):
		return domain.TrendEasing
	}
	return domain.TrendPeaking
}

// buildClusters groups aspects by focus area, then joins aspects whose windows
// overlap, directly or through other members.
func buildClusters(aspects []domain.ScoredAspect) []*cluster {
	byFocus := make(map[domain.FocusArea][]domain.ScoredAspect)
	for _, a := range aspects {
		byFocus[a.Focus] = append(byFocus[a.Focus], a)
	}

	var out []*cluster
	for _, focus := range domain.FocusAreas {
		group := byFocus[focus]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].Window.Start.Equal(group[j].Window.Start) {
				return group[i].Window.Start.Before(group[j].Window.Start)
			}
			return group[i].ID < group[j].ID
		})

		// Sweep by start date; a member joins the current component while
		// it starts on or before the component's latest end.
		var current []domain.ScoredAspect
		var currentEnd time.Time
		for _, a := range group {
			if len(current) > 0 && domain.Day(a.Window.Start).After(domain.Day(currentEnd)) {
				out = append(out, newCluster(focus, current))
				current = nil
			}
			if len(current) == 0 || a.Window.End.After(currentEnd) {
				currentEnd = a.Window.End
			}
			current = append(current, a)
		}
		out = append(out, newCluster(focus, current))
	}
	return out
}

func newCluster(focus domain.FocusArea, members []domain.ScoredAspect) *cluster {
	ms := make([]domain.ScoredAspect, len(members))
	copy(ms, members)
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].ID < ms[j].ID
	})

	c := &cluster{
		focus:   focus,
		members: ms,
		start:   domain.Day(ms[0].Window.Start),
		end:     domain.Day(ms[0].Window.End),
	}
	var rest float64
	for i, m := range ms {
		if i > 0 {
			rest += m.Score
		}
		if s := domain.Day(m.Window.Start); s.Before(c.start) {
			c.start = s
		}
		if e := domain.Day(m.Window.End); e.After(c.end) {
			c.end = e
		}
	}
	c.score = math.Min(100, math.Round((ms[0].Score+secondaryContribution*rest)*10)/10)
	c.peak = peakOf(ms, c.start, c.end)
	c.id = idhash.ComputeThemeID(focus, domain.DateRange{Start: c.start, End: c.end}, c.aspectIDs())
	return c
}

// peakOf intersects the members' peaks. When they are disjoint the widest
// single peak wins (ties: higher score, then earlier start).
func peakOf(members []domain.ScoredAspect, start, end time.Time) domain.DateRange {
	ps, pe := domain.Day(members[0].Window.PeakStart), domain.Day(members[0].Window.PeakEnd)
	for _, m := range members[1:] {
		if s := domain.Day(m.Window.PeakStart); s.After(ps) {
			ps = s
		}
		if e := domain.Day(m.Window.PeakEnd); e.Before(pe) {
			pe = e
		}
	}

	if ps.After(pe) {
		var best domain.ScoredAspect
		bestWidth := -1
		for _, m := range members {
			w := domain.DaysBetween(m.Window.PeakStart, m.Window.PeakEnd)
			if w > bestWidth || (w == bestWidth && m.Score == best.Score && m.Window.PeakStart.Before(best.Window.PeakStart)) {
				best, bestWidth = m, w
			}
		}
		ps, pe = domain.Day(best.Window.PeakStart), domain.Day(best.Window.PeakEnd)
	}

	return clampRange(domain.DateRange{Start: ps, End: pe}, start, end)
}

func clampRange(r domain.DateRange, start, end time.Time) domain.DateRange {
	if r.Start.Before(start) {
		r.Start = start
	}
	if r.End.After(end) {
		r.End = end
	}
	if r.End.Before(r.Start) {
		r.End = r.Start
	}
	return r
}

// intensityOn maps a day onto the ordinal rise/peak/ease curve of a range.
// Peak days are 5; outside [start, end] is 1.
func intensityOn(d, start, end time.Time, peak domain.DateRange) int {
	d = domain.Day(d)
	switch {
	case d.Before(start) || d.After(end):
		return 1
	case !d.Before(peak.Start) && !d.After(peak.End):
		return 5
	case d.Before(peak.Start):
		elapsed := float64(domain.DaysBetween(start, d))
		span := float64(domain.DaysBetween(start, peak.Start))
		return 1 + int(math.Round(3*elapsed/span))
	default:
		remaining := float64(domain.DaysBetween(d, end))
		span := float64(domain.DaysBetween(peak.End, end))
		return 1 + int(math.Round(3*remaining/span))
	}
}
