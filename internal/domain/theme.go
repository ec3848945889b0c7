package domain

import "time"

// IntensityTrend describes where a window sits on its rise/peak/ease curve.
type IntensityTrend string

const (
	TrendRising  IntensityTrend = "rising"
	TrendPeaking IntensityTrend = "peaking"
	TrendEasing  IntensityTrend = "easing"
)

// DateRange is an inclusive range of UTC days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SynthesizedTheme is a ranked, human-readable theme. It is never mutated once returned.
type SynthesizedTheme struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Explanation  string    `json:"explanation"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Peak         DateRange `json:"peak"`
	Intensity    int       `json:"intensity"` // 1..5, for the synthesis day
	Focus        FocusArea `json:"focus"`
	AspectIDs    []string  `json:"aspect_ids"`
	Score        float64   `json:"score"`
	Template     bool      `json:"template"` // true for non-live fallback content
	LastComputed time.Time `json:"last_computed"`
}

// DailyGuidance is one day's advice for one user.
type DailyGuidance struct {
	Date      time.Time `json:"date"`
	Tone      string    `json:"tone"`
	Advice    string    `json:"advice"`
	Do        []string  `json:"do"`
	Avoid     []string  `json:"avoid"`
	Intensity int       `json:"intensity"`
	Template  bool      `json:"template"`
}

// UpcomingWindow is one segment of the forecast horizon.
type UpcomingWindow struct {
	Start   time.Time      `json:"start"`
	End     time.Time      `json:"end"` // inclusive
	Summary string         `json:"summary"`
	Focus   FocusArea      `json:"focus"`
	Trend   IntensityTrend `json:"trend"`
	ThemeID string         `json:"theme_id,omitempty"` // empty for cycle fallback windows
}

// SynthesisEnvelope is the uniform dashboard result.
type SynthesisEnvelope struct {
	PrimaryTheme    SynthesizedTheme   `json:"primary_theme"`
	SecondaryThemes []SynthesizedTheme `json:"secondary_themes"`
	DailyGuidance   DailyGuidance      `json:"daily_guidance"`
	UpcomingWindows []UpcomingWindow   `json:"upcoming_windows"`
	Source          Source             `json:"source"`
	Degraded        bool               `json:"degraded"`
	GeneratedFor    time.Time          `json:"generated_for"`
}

// SynthesisRun is one recorded dashboard computation.
type SynthesisRun struct {
	Fingerprint    string
	Source         Source
	PrimaryThemeID string
	PrimaryScore   float64
	SecondaryCount int
	WindowCount    int
	Degraded       bool
	GeneratedFor   time.Time
	RecordedAt     time.Time
}
