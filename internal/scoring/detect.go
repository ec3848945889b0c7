package scoring

import (
	"math"
	"sort"

	"transit-synth/internal/domain"
	"transit-synth/internal/idhash"
)

// scanDays bounds the window search around the sky date.
const scanDays = 180

// peakOrb is the orb under which an aspect counts as peaking.
const peakOrb = 1.0

// DetectAspects finds the aspects active on the sky date by moving each body
// linearly at its current speed. Windows are the contiguous runs of days around
// the sky date within the aspect's tolerance. Used when the gateway cannot
// supply per-user aspects.
func DetectAspects(chart *domain.NatalChart, sky *domain.DailySkyData) []domain.TransitAspect {
	if chart == nil || sky == nil {
		return nil
	}
	today := domain.Day(sky.Date)
	if sky.Date.IsZero() {
		today = domain.Day(sky.ComputedAt)
	}

	var out []domain.TransitAspect
	for _, pos := range sky.Positions {
		if _, ok := TransitWeight(pos.Body, HorizonOf(pos.Body)); !ok {
			continue
		}
		for _, natal := range chart.Points {
			for _, t := range domain.AspectTypes {
				maxOrb := aspectWeights[t].maxOrb
				orbAt := func(day int) float64 {
					return separation(pos.Longitude+pos.Speed*float64(day), natal.Longitude) - t.Angle()
				}
				if math.Abs(orbAt(0)) > maxOrb {
					continue
				}

				start, end := 0, 0
				for start > -scanDays && math.Abs(orbAt(start-1)) <= maxOrb {
					start--
				}
				for end < scanDays && math.Abs(orbAt(end+1)) <= maxOrb {
					end++
				}
				peakStart, peakEnd := peakRun(orbAt, start, end)

				a := domain.TransitAspect{
					Transiting: pos.Body,
					Natal:      natal.Body,
					Type:       t,
					Orb:        math.Round(orbAt(0)*100) / 100,
					Window: domain.Window{
						Start:     today.AddDate(0, 0, start),
						PeakStart: today.AddDate(0, 0, peakStart),
						PeakEnd:   today.AddDate(0, 0, peakEnd),
						End:       today.AddDate(0, 0, end),
					},
				}
				a.ID = idhash.ComputeAspectID(a)
				out = append(out, a)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// peakRun returns the run of days around the closest approach with |orb| <= peakOrb,
// or the closest day alone when the aspect never gets that tight.
func peakRun(orbAt func(int) float64, start, end int) (int, int) {
	best := start
	for d := start; d <= end; d++ {
		if math.Abs(orbAt(d)) < math.Abs(orbAt(best)) {
			best = d
		}
	}
	if math.Abs(orbAt(best)) > peakOrb {
		return best, best
	}
	lo, hi := best, best
	for lo > start && math.Abs(orbAt(lo-1)) <= peakOrb {
		lo--
	}
	for hi < end && math.Abs(orbAt(hi+1)) <= peakOrb {
		hi++
	}
	return lo, hi
}

// separation returns the angular distance between two longitudes in [0, 180].
func separation(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
