package scoring

import "transit-synth/internal/domain"

// houseFocus maps a natal house (1..12) to its focus area.
var houseFocus = [13]domain.FocusArea{
	1: domain.FocusGrowth, 2: domain.FocusMoney, 3: domain.FocusGrowth,
	4: domain.FocusGrowth, 5: domain.FocusRelationships, 6: domain.FocusCareer,
	7: domain.FocusRelationships, 8: domain.FocusMoney, 9: domain.FocusGrowth,
	10: domain.FocusCareer, 11: domain.FocusRelationships, 12: domain.FocusGrowth,
}

var angleFocus = map[domain.Body]domain.FocusArea{
	domain.Midheaven:  domain.FocusCareer,
	domain.Descendant: domain.FocusRelationships,
	domain.Ascendant:  domain.FocusGrowth,
	domain.ImumCoeli:  domain.FocusGrowth,
}

var bodyFocus = map[domain.Body]domain.FocusArea{
	domain.Sun:     domain.FocusCareer,
	domain.Mars:    domain.FocusCareer,
	domain.Saturn:  domain.FocusCareer,
	domain.Moon:    domain.FocusRelationships,
	domain.Venus:   domain.FocusRelationships,
	domain.Jupiter: domain.FocusMoney,
	domain.Pluto:   domain.FocusMoney,
	domain.Mercury: domain.FocusGrowth,
	domain.Uranus:  domain.FocusGrowth,
	domain.Neptune: domain.FocusGrowth,
}

// FocusOf assigns exactly one focus area to a natal point.
// Houses and angles are only used when the birth time is known.
func FocusOf(p domain.NatalPoint, conf domain.TimeConfidence) domain.FocusArea {
	if conf != domain.ConfidenceUnknown {
		if f, ok := angleFocus[p.Body]; ok {
			return f
		}
		if p.House >= 1 && p.House <= 12 {
			return houseFocus[p.House]
		}
	}
	if f, ok := bodyFocus[p.Body]; ok {
		return f
	}
	return domain.FocusGrowth
}

// BodyFocus returns the house-independent focus area of a body.
func BodyFocus(b domain.Body) domain.FocusArea {
	if f, ok := bodyFocus[b]; ok {
		return f
	}
	if f, ok := angleFocus[b]; ok {
		return f
	}
	return domain.FocusGrowth
}
