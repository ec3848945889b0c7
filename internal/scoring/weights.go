package scoring

import "transit-synth/internal/domain"

// aspectWeight is the base weight and maximum tolerance orb of an aspect type.
type aspectWeight struct {
	base   float64
	maxOrb float64 // degrees
}

var aspectWeights = map[domain.AspectType]aspectWeight{
	domain.Conjunction: {base: 1.00, maxOrb: 8},
	domain.Opposition:  {base: 0.90, maxOrb: 8},
	domain.Square:      {base: 0.85, maxOrb: 7},
	domain.Trine:       {base: 0.60, maxOrb: 7},
	domain.Sextile:     {base: 0.50, maxOrb: 5},
	domain.Quincunx:    {base: 0.35, maxOrb: 3},
	domain.Semisextile: {base: 0.25, maxOrb: 2},
}

// MaxOrb returns the tolerance orb of an aspect type, 0 when unknown.
func MaxOrb(t domain.AspectType) float64 {
	return aspectWeights[t].maxOrb
}

// transitWeights weighs the moving body per theme horizon. Personal planets
// lead short themes, outer planets lead long ones.
var transitWeights = map[domain.Horizon]map[domain.Body]float64{
	domain.HorizonLong: {
		domain.Pluto:   1.00,
		domain.Saturn:  1.00,
		domain.Uranus:  0.95,
		domain.Neptune: 0.90,
		domain.Jupiter: 0.80,
		domain.Mars:    0.85,
		domain.Sun:     0.80,
		domain.Venus:   0.75,
		domain.Mercury: 0.70,
		domain.Moon:    0.60,
	},
	domain.HorizonShort: {
		domain.Moon:    1.00,
		domain.Sun:     0.95,
		domain.Mercury: 0.90,
		domain.Venus:   0.90,
		domain.Mars:    0.85,
		domain.Jupiter: 0.55,
		domain.Saturn:  0.45,
		domain.Uranus:  0.40,
		domain.Neptune: 0.35,
		domain.Pluto:   0.30,
	},
}

// TransitWeight returns the weight of transiting body b for horizon h.
// Returns false for bodies that do not transit.
func TransitWeight(b domain.Body, h domain.Horizon) (float64, bool) {
	w, ok := transitWeights[h][b]
	return w, ok
}

// approximateAngleFactor scales angle weights when the birth time is approximate.
const approximateAngleFactor = 0.75

// natalWeight weighs the natal point for the chart's birth-time confidence.
func natalWeight(b domain.Body, conf domain.TimeConfidence) float64 {
	var w float64
	switch b {
	case domain.Sun, domain.Moon, domain.Mercury, domain.Venus, domain.Mars:
		w = 1.0
	case domain.Ascendant, domain.Midheaven:
		w = 1.0
	case domain.Descendant, domain.ImumCoeli:
		w = 0.9
	case domain.Jupiter, domain.Saturn:
		w = 0.8
	case domain.Uranus, domain.Neptune, domain.Pluto:
		w = 0.6
	}
	if b.IsAngle() && conf == domain.ConfidenceApproximate {
		w *= approximateAngleFactor
	}
	return w
}

// HorizonOf returns the theme horizon a transiting body contributes to.
func HorizonOf(b domain.Body) domain.Horizon {
	if b.IsPersonal() {
		return domain.HorizonShort
	}
	return domain.HorizonLong
}

// valenceOf returns the polarity of an aspect between two bodies.
func valenceOf(t domain.AspectType, transiting, natal domain.Body) domain.Valence {
	switch t {
	case domain.Square, domain.Opposition, domain.Quincunx:
		return domain.ValenceNegative
	case domain.Conjunction:
		if isMalefic(transiting) || isMalefic(natal) {
			return domain.ValenceNegative
		}
	}
	return domain.ValencePositive
}

func isMalefic(b domain.Body) bool {
	switch b {
	case domain.Mars, domain.Saturn, domain.Uranus, domain.Pluto:
		return true
	}
	return false
}
