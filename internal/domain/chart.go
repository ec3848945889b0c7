package domain

import (
	"fmt"
	"time"
)

// Body is a celestial body or a chart angle.
type Body string

const (
	Sun     Body = "sun"
	Moon    Body = "moon"
	Mercury Body = "mercury"
	Venus   Body = "venus"
	Mars    Body = "mars"
	Jupiter Body = "jupiter"
	Saturn  Body = "saturn"
	Uranus  Body = "uranus"
	Neptune Body = "neptune"
	Pluto   Body = "pluto"

	Ascendant  Body = "ascendant"
	Midheaven  Body = "midheaven"
	Descendant Body = "descendant"
	ImumCoeli  Body = "imum_coeli"
)

// Planets lists the moving bodies in a fixed order.
var Planets = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// IsAngle reports whether b is a chart angle. Angles depend on birth time.
func (b Body) IsAngle() bool {
	return b == Ascendant || b == Midheaven || b == Descendant || b == ImumCoeli
}

// IsPersonal reports whether b is a personal (fast) planet.
func (b Body) IsPersonal() bool {
	switch b {
	case Sun, Moon, Mercury, Venus, Mars:
		return true
	}
	return false
}

// IsValid checks if the body is known.
func (b Body) IsValid() bool {
	if b.IsAngle() {
		return true
	}
	for _, p := range Planets {
		if b == p {
			return true
		}
	}
	return false
}

// Title returns the display name of the body.
func (b Body) Title() string {
	switch b {
	case ImumCoeli:
		return "IC"
	case "":
		return ""
	}
	s := string(b)
	return string(s[0]-'a'+'A') + s[1:]
}

// NatalPoint is one fixed position in a natal chart.
type NatalPoint struct {
	Body      Body    `json:"body"`
	Longitude float64 `json:"longitude"`       // ecliptic degrees [0, 360)
	House     int     `json:"house,omitempty"` // 1..12, 0 when unknown
}

// NatalChart is derived once from BirthData and treated as read-only.
type NatalChart struct {
	Birth      BirthData    `json:"birth"`
	Points     []NatalPoint `json:"points"`
	ComputedAt time.Time    `json:"computed_at"`
}

// Point returns the natal point for body b.
func (c *NatalChart) Point(b Body) (NatalPoint, bool) {
	for _, p := range c.Points {
		if p.Body == b {
			return p, true
		}
	}
	return NatalPoint{}, false
}

// Validate checks the chart and its birth data.
func (c *NatalChart) Validate(now time.Time) error {
	if c == nil {
		return newValidationError([]FieldError{{"chart", "required"}})
	}

	var errs []FieldError
	if err := c.Birth.Validate(now); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			for _, f := range ve.Fields {
				errs = append(errs, FieldError{"birth." + f.Field, f.Msg})
			}
		}
	}

	if len(c.Points) == 0 {
		errs = append(errs, FieldError{"points", "at least one point required"})
	}
	seen := make(map[Body]struct{}, len(c.Points))
	for i, p := range c.Points {
		field := fmt.Sprintf("points[%d]", i)
		if !p.Body.IsValid() {
			errs = append(errs, FieldError{field + ".body", fmt.Sprintf("unknown body %q", p.Body)})
		}
		if _, dup := seen[p.Body]; dup {
			errs = append(errs, FieldError{field + ".body", "duplicate body"})
		}
		seen[p.Body] = struct{}{}
		if p.Longitude < 0 || p.Longitude >= 360 {
			errs = append(errs, FieldError{field + ".longitude", "must be within [0, 360)"})
		}
		if p.House < 0 || p.House > 12 {
			errs = append(errs, FieldError{field + ".house", "must be within 0..12"})
		}
	}

	return newValidationError(errs)
}
