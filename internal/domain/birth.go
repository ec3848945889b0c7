package domain

import (
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // IANA zones must resolve on minimal images
)

// TimeConfidence describes how reliable the recorded birth time is.
type TimeConfidence string

const (
	ConfidenceExact       TimeConfidence = "exact"
	ConfidenceApproximate TimeConfidence = "approximate"
	ConfidenceUnknown     TimeConfidence = "unknown"
)

// IsValid checks if the confidence is a valid value.
func (c TimeConfidence) IsValid() bool {
	return c == ConfidenceExact || c == ConfidenceApproximate || c == ConfidenceUnknown
}

// BirthPlace is a resolved birth location.
type BirthPlace struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeZone  string  `json:"time_zone"` // IANA zone name
}

// BirthData is the immutable input a natal chart is derived from.
type BirthData struct {
	SubjectID      string         `json:"subject_id"`
	BirthDate      time.Time      `json:"birth_date"`           // calendar date, time-of-day ignored
	BirthTime      string         `json:"birth_time,omitempty"` // "HH:MM", local to Place.TimeZone
	TimeConfidence TimeConfidence `json:"time_confidence"`
	Place          BirthPlace     `json:"place"`
}

var birthTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// KnownTime reports whether time-sensitive chart points may be used.
func (b BirthData) KnownTime() bool {
	return b.TimeConfidence != ConfidenceUnknown && b.BirthTime != ""
}

// CalendarDate returns the birth date as a UTC-midnight value. The date is read
// in BirthDate's own location, so an offset in the input never shifts the day.
func (b BirthData) CalendarDate() time.Time {
	y, m, d := b.BirthDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks birth data against now. It returns a *ValidationError.
func (b BirthData) Validate(now time.Time) error {
	var errs []FieldError

	if b.BirthDate.IsZero() {
		errs = append(errs, FieldError{"birth_date", "required"})
	} else if b.CalendarDate().After(Day(now)) {
		errs = append(errs, FieldError{"birth_date", "must not be in the future"})
	}

	if !b.TimeConfidence.IsValid() {
		errs = append(errs, FieldError{"time_confidence", fmt.Sprintf("must be one of %s, %s, %s",
			ConfidenceExact, ConfidenceApproximate, ConfidenceUnknown)})
	}

	if b.BirthTime != "" && !birthTimePattern.MatchString(b.BirthTime) {
		errs = append(errs, FieldError{"birth_time", "must be HH:MM"})
	} else if b.BirthTime == "" && b.TimeConfidence.IsValid() && b.TimeConfidence != ConfidenceUnknown {
		errs = append(errs, FieldError{"birth_time", "required unless time_confidence is unknown"})
	}

	if b.Place.Latitude < -90 || b.Place.Latitude > 90 {
		errs = append(errs, FieldError{"place.latitude", "must be within [-90, 90]"})
	}
	if b.Place.Longitude < -180 || b.Place.Longitude > 180 {
		errs = append(errs, FieldError{"place.longitude", "must be within [-180, 180]"})
	}
	if b.Place.TimeZone == "" {
		errs = append(errs, FieldError{"place.time_zone", "required"})
	} else if _, err := time.LoadLocation(b.Place.TimeZone); err != nil {
		errs = append(errs, FieldError{"place.time_zone", "unknown IANA time zone"})
	}

	return newValidationError(errs)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextUTCDay returns the start of the UTC day after t.
func NextUTCDay(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, 1)
}

// DaysBetween returns the whole number of days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
