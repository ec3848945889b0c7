package stub

import (
	"math"
	"strconv"
	"strings"
	"time"

	"transit-synth/internal/domain"
)

// j2000 is the reference epoch of the mean elements below.
var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// meanElement is a mean longitude at J2000 and a mean daily motion.
type meanElement struct {
	body   domain.Body
	l0     float64 // degrees at J2000
	motion float64 // degrees per day
}

// Mean-motion approximation, good enough for local runs.
var meanElements = []meanElement{
	{domain.Sun, 280.460, 0.9856474},
	{domain.Moon, 218.316, 13.176396},
	{domain.Mercury, 252.251, 4.0923344},
	{domain.Venus, 181.980, 1.6021302},
	{domain.Mars, 355.433, 0.5240208},
	{domain.Jupiter, 34.351, 0.0830853},
	{domain.Saturn, 50.077, 0.0334443},
	{domain.Uranus, 314.055, 0.0117226},
	{domain.Neptune, 304.349, 0.0059813},
	{domain.Pluto, 238.929, 0.0039757},
}

func norm360(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

// SynthesizeSky computes approximate positions for t.
func SynthesizeSky(t time.Time) *domain.DailySkyData {
	days := t.Sub(j2000).Hours() / 24

	sky := &domain.DailySkyData{
		Date:       domain.Day(t),
		ComputedAt: t.UTC(),
		Positions:  make([]domain.PlanetPosition, 0, len(meanElements)),
	}
	for _, e := range meanElements {
		sky.Positions = append(sky.Positions, domain.PlanetPosition{
			Body:      e.body,
			Longitude: norm360(e.l0 + e.motion*days),
			Speed:     e.motion,
		})
	}

	sun, _ := sky.Position(domain.Sun)
	moon, _ := sky.Position(domain.Moon)
	elongation := norm360(moon.Longitude - sun.Longitude)
	sky.Lunar = domain.LunarMetrics{
		Phase:        phaseName(elongation),
		Illumination: math.Round((1-math.Cos(elongation*math.Pi/180))/2*1000) / 1000,
		AgeDays:      math.Round(elongation/12.1907*100) / 100,
	}
	return sky
}

func phaseName(elongation float64) string {
	names := []string{
		"new_moon", "waxing_crescent", "first_quarter", "waxing_gibbous",
		"full_moon", "waning_gibbous", "last_quarter", "waning_crescent",
	}
	return names[int(norm360(elongation+22.5)/45)%8]
}

// SynthesizeChart computes an approximate chart for birth data.
// Angles and houses are only produced when the birth time is known.
func SynthesizeChart(birth domain.BirthData, now time.Time) *domain.NatalChart {
	moment := birth.CalendarDate().Add(12 * time.Hour)
	if birth.KnownTime() {
		moment = birth.CalendarDate().Add(parseClock(birth.BirthTime))
	}
	sky := SynthesizeSky(moment)

	chart := &domain.NatalChart{Birth: birth, ComputedAt: now.UTC()}
	for _, p := range sky.Positions {
		chart.Points = append(chart.Points, domain.NatalPoint{Body: p.Body, Longitude: p.Longitude})
	}
	if !birth.KnownTime() {
		return chart
	}

	// Rough local sidereal rotation: the Ascendant sweeps the zodiac once a day.
	sun, _ := sky.Position(domain.Sun)
	hours := parseClock(birth.BirthTime).Hours()
	asc := norm360(sun.Longitude + (hours-6)*15 + birth.Place.Longitude)
	mc := norm360(asc - 90)

	for i := range chart.Points {
		chart.Points[i].House = int(norm360(chart.Points[i].Longitude-asc)/30) + 1
	}
	chart.Points = append(chart.Points,
		domain.NatalPoint{Body: domain.Ascendant, Longitude: asc, House: 1},
		domain.NatalPoint{Body: domain.Midheaven, Longitude: mc, House: 10},
		domain.NatalPoint{Body: domain.Descendant, Longitude: norm360(asc + 180), House: 7},
		domain.NatalPoint{Body: domain.ImumCoeli, Longitude: norm360(mc + 180), House: 4},
	)
	return chart
}

func parseClock(hhmm string) time.Duration {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 12 * time.Hour
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}
