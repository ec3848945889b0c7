package synthesis

import (
	"math"
	"time"

	"transit-synth/internal/domain"
	"transit-synth/internal/scoring"
)

// Natal lunar-return cycle used when no live sky data drives the forecast.
const (
	cycleLength    = 29.53 // days
	cyclePeakStart = 12    // first peaking day of a cycle
	cyclePeakEnd   = 16    // last peaking day of a cycle
)

// cycle is one recurring natal cycle.
type cycle struct {
	index int
	day   int // day within the cycle, from 0
	start time.Time
	end   time.Time // inclusive
	focus domain.FocusArea
}

func (c cycle) trend() domain.IntensityTrend {
	switch {
	case c.day < cyclePeakStart:
		return domain.TrendRising
	case c.day <= cyclePeakEnd:
		return domain.TrendPeaking
	}
	return domain.TrendEasing
}

// cycleOn returns the natal cycle containing day d. Cycles are anchored at the
// birth date; the focus rotates once per cycle starting from the natal Sun's focus.
func cycleOn(chart *domain.NatalChart, d time.Time) cycle {
	birth := time.Time{}
	offset := 0
	if chart != nil {
		birth = chart.Birth.CalendarDate()
		if sun, ok := chart.Point(domain.Sun); ok {
			offset = indexOf(scoring.FocusOf(sun, chart.Birth.TimeConfidence))
		}
	}

	n := domain.DaysBetween(birth, d)
	if n < 0 {
		n = 0
	}
	k := int(math.Floor(float64(n) / cycleLength))
	first := cycleStartDay(k)

	return cycle{
		index: k,
		day:   n - first,
		start: birth.AddDate(0, 0, first),
		end:   birth.AddDate(0, 0, cycleStartDay(k+1)-1),
		focus: domain.FocusAreas[(offset+k)%len(domain.FocusAreas)],
	}
}

// cycleStartDay is the first whole day (since birth) of cycle k.
func cycleStartDay(k int) int {
	return int(math.Ceil(float64(k) * cycleLength))
}

func indexOf(f domain.FocusArea) int {
	for i, x := range domain.FocusAreas {
		if x == f {
			return i
		}
	}
	return 0
}
