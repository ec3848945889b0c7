package domain

import "time"

// PlanetPosition is the position of a moving body at computation time.
type PlanetPosition struct {
	Body       Body    `json:"body"`
	Longitude  float64 `json:"longitude"` // ecliptic degrees [0, 360)
	Speed      float64 `json:"speed"`     // degrees per day, negative when retrograde
	Retrograde bool    `json:"retrograde"`
}

// LunarMetrics describes the Moon at computation time.
type LunarMetrics struct {
	Phase        string  `json:"phase"`        // e.g. "waxing_gibbous"
	Illumination float64 `json:"illumination"` // 0..1
	AgeDays      float64 `json:"age_days"`     // days since new moon
}

// DailySkyData is the global "today" sky shared by all users.
type DailySkyData struct {
	Date       time.Time        `json:"date"`
	ComputedAt time.Time        `json:"computed_at"`
	Positions  []PlanetPosition `json:"positions"`
	Lunar      LunarMetrics     `json:"lunar"`
}

// Position returns the position of body b.
func (s *DailySkyData) Position(b Body) (PlanetPosition, bool) {
	for _, p := range s.Positions {
		if p.Body == b {
			return p, true
		}
	}
	return PlanetPosition{}, false
}

// TransitResult is the per-user cached transit computation.
type TransitResult struct {
	Fingerprint   string          `json:"fingerprint"`
	Chart         NatalChart      `json:"chart"`
	Aspects       []TransitAspect `json:"aspects"`
	SkyComputedAt time.Time       `json:"sky_computed_at"`
	ComputedAt    time.Time       `json:"computed_at"`
}
