package domain

import "time"

// AspectType is the kind of angular relationship.
type AspectType string

const (
	Conjunction AspectType = "conjunction"
	Opposition  AspectType = "opposition"
	Square      AspectType = "square"
	Trine       AspectType = "trine"
	Sextile     AspectType = "sextile"
	Quincunx    AspectType = "quincunx"
	Semisextile AspectType = "semisextile"
)

// AspectTypes lists all aspect types in a fixed order.
var AspectTypes = []AspectType{Conjunction, Opposition, Square, Trine, Sextile, Quincunx, Semisextile}

// Angle returns the exact angle of the aspect in degrees.
func (a AspectType) Angle() float64 {
	switch a {
	case Conjunction:
		return 0
	case Semisextile:
		return 30
	case Sextile:
		return 60
	case Square:
		return 90
	case Trine:
		return 120
	case Quincunx:
		return 150
	case Opposition:
		return 180
	}
	return -1
}

// IsHard reports whether the aspect is a hard aspect.
func (a AspectType) IsHard() bool {
	return a == Conjunction || a == Opposition || a == Square
}

// IsValid checks if the aspect type is known.
func (a AspectType) IsValid() bool {
	return a.Angle() >= 0
}

// FocusArea is a life-domain tag used to group and cap output.
type FocusArea string

const (
	FocusCareer        FocusArea = "career"
	FocusRelationships FocusArea = "relationships"
	FocusMoney         FocusArea = "money"
	FocusGrowth        FocusArea = "growth"
)

// FocusAreas lists the focus areas in their rotation order.
var FocusAreas = []FocusArea{FocusCareer, FocusRelationships, FocusMoney, FocusGrowth}

// Valence is the polarity of an aspect.
type Valence string

const (
	ValencePositive Valence = "positive"
	ValenceNegative Valence = "negative"
)

// Sign returns +1 or -1.
func (v Valence) Sign() float64 {
	if v == ValenceNegative {
		return -1
	}
	return 1
}

// Horizon separates short-lived (fast body) from long-lived (slow body) transits.
type Horizon string

const (
	HorizonShort Horizon = "short"
	HorizonLong  Horizon = "long"
)

// Window is the validity range of a transit. All bounds are inclusive UTC days.
type Window struct {
	Start     time.Time `json:"start"`
	PeakStart time.Time `json:"peak_start"`
	PeakEnd   time.Time `json:"peak_end"`
	End       time.Time `json:"end"`
}

// Contains reports whether day falls within [Start, End].
func (w Window) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(w.Start)) && !d.After(Day(w.End))
}

// Overlaps reports whether the two windows share at least one day.
func (w Window) Overlaps(o Window) bool {
	return !Day(w.End).Before(Day(o.Start)) && !Day(o.End).Before(Day(w.Start))
}

// TransitAspect is one relationship between a moving body and a natal point.
type TransitAspect struct {
	ID         string     `json:"id"`
	Transiting Body       `json:"transiting"`
	Natal      Body       `json:"natal"`
	Type       AspectType `json:"type"`
	Orb        float64    `json:"orb"` // signed degrees from exact
	Window     Window     `json:"window"`
}

// ScoredAspect is a TransitAspect with its relevance score.
type ScoredAspect struct {
	TransitAspect
	Score      float64   `json:"score"`       // 0..100, long-horizon weights; ranks themes
	ShortScore float64   `json:"short_score"` // 0..100, short-horizon weights; ranks daily guidance
	Focus      FocusArea `json:"focus"`
	Valence    Valence   `json:"valence"`
	Horizon    Horizon   `json:"horizon"` // horizon of the transiting body
}
