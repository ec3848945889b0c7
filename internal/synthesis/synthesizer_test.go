package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-synth/internal/domain"
	"transit-synth/internal/scoring"
)

var today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time { return today.AddDate(0, 0, offset) }

func testChart(conf domain.TimeConfidence) *domain.NatalChart {
	b := domain.BirthData{
		SubjectID:      "s1",
		BirthDate:      time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		TimeConfidence: conf,
		Place:          domain.BirthPlace{Latitude: 38.72, Longitude: -9.14, TimeZone: "Europe/Lisbon"},
	}
	if conf != domain.ConfidenceUnknown {
		b.BirthTime = "08:30"
	}
	return &domain.NatalChart{
		Birth: b,
		Points: []domain.NatalPoint{
			{Body: domain.Sun, Longitude: 84, House: 10},
			{Body: domain.Venus, Longitude: 100, House: 7},
			{Body: domain.Jupiter, Longitude: 200, House: 2},
			{Body: domain.Mercury, Longitude: 70, House: 9},
			{Body: domain.Ascendant, Longitude: 150, House: 1},
		},
	}
}

func aspect(id string, typ domain.AspectType, transiting, natal domain.Body, orb float64, start, peakStart, peakEnd, end int) domain.TransitAspect {
	return domain.TransitAspect{
		ID: id, Transiting: transiting, Natal: natal, Type: typ, Orb: orb,
		Window: domain.Window{Start: day(start), PeakStart: day(peakStart), PeakEnd: day(peakEnd), End: day(end)},
	}
}

func scored(id string, focus domain.FocusArea, score float64, valence domain.Valence, start, peakStart, peakEnd, end int) domain.ScoredAspect {
	return domain.ScoredAspect{
		TransitAspect: aspect(id, domain.Square, domain.Saturn, domain.Venus, 1, start, peakStart, peakEnd, end),
		Score:         score,
		ShortScore:    score,
		Focus:         focus,
		Valence:       valence,
		Horizon:       domain.HorizonLong,
	}
}

func saturnSquareVenus() []domain.ScoredAspect {
	chart := testChart(domain.ConfidenceExact)
	return scoring.ScoreAll([]domain.TransitAspect{
		aspect("sat-sq-ven", domain.Square, domain.Saturn, domain.Venus, 1.2, -12, 3, 8, 23),
	}, chart)
}

func TestGeneratePrimaryTheme_SaturnSquareVenus(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := saturnSquareVenus()

	theme := s.GeneratePrimaryTheme(aspects, chart, today)

	assert.False(t, theme.Template)
	assert.Equal(t, domain.FocusRelationships, theme.Focus)
	assert.InDelta(t, 70.4, theme.Score, 1e-9)
	assert.Equal(t, []string{"sat-sq-ven"}, theme.AspectIDs)
	assert.Equal(t, day(-12), theme.Start)
	assert.Equal(t, day(23), theme.End)
	assert.Equal(t, domain.DateRange{Start: day(3), End: day(8)}, theme.Peak)
	// Rising: 1 + round(3 * 12/15) = 3.
	assert.Equal(t, 3, theme.Intensity)
	assert.Contains(t, theme.Name, "Saturn square Venus")
	assert.NotEmpty(t, theme.ID)
	assert.Equal(t, today, theme.LastComputed)

	assert.Equal(t, 5, s.GeneratePrimaryTheme(aspects, chart, day(5)).Intensity)
}

func TestGeneratePrimaryTheme_Deterministic(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := saturnSquareVenus()

	assert.Equal(t, s.GeneratePrimaryTheme(aspects, chart, today), s.GeneratePrimaryTheme(aspects, chart, today))
	assert.Equal(t, s.GenerateDailyGuidance(aspects, chart, today), s.GenerateDailyGuidance(aspects, chart, today))
	assert.Equal(t, s.Synthesize(aspects, chart, today), s.Synthesize(aspects, chart, today))
}

func TestGeneratePrimaryTheme_BelowThresholdFallsBackToTemplate(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{scored("weak", domain.FocusCareer, 39.9, domain.ValencePositive, -5, 0, 2, 10)}

	theme := s.GeneratePrimaryTheme(aspects, chart, today)
	assert.True(t, theme.Template)
	assert.Zero(t, theme.Score)
	assert.Empty(t, theme.AspectIDs)

	secondary := s.GenerateSecondaryThemes(aspects, chart, today)
	require.Len(t, secondary, 3)
	focuses := map[domain.FocusArea]bool{theme.Focus: true}
	for _, th := range secondary {
		assert.True(t, th.Template)
		focuses[th.Focus] = true
	}
	assert.Len(t, focuses, 4, "template themes cover every focus area once")
}

func TestGeneratePrimaryTheme_IgnoresFinishedAndFarClusters(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{
		scored("past", domain.FocusCareer, 90, domain.ValenceNegative, -30, -20, -15, -1),
		scored("far", domain.FocusMoney, 90, domain.ValenceNegative, 95, 100, 105, 120),
		scored("now", domain.FocusGrowth, 50, domain.ValencePositive, -2, 1, 3, 10),
	}

	theme := s.GeneratePrimaryTheme(aspects, chart, today)
	assert.Equal(t, []string{"now"}, theme.AspectIDs)
}

func TestGeneratePrimaryTheme_TiesPreferLongerRemaining(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{
		scored("short", domain.FocusCareer, 60.2, domain.ValenceNegative, -5, 0, 1, 5),
		scored("long", domain.FocusMoney, 59.8, domain.ValenceNegative, -5, 0, 1, 40),
	}

	theme := s.GeneratePrimaryTheme(aspects, chart, today)
	assert.Equal(t, []string{"long"}, theme.AspectIDs)
}

func TestGeneratePrimaryTheme_WholePointBeatsDuration(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{
		scored("short", domain.FocusCareer, 60.6, domain.ValenceNegative, -5, 0, 1, 5),
		scored("long", domain.FocusMoney, 60.4, domain.ValenceNegative, -5, 0, 1, 40),
	}

	theme := s.GeneratePrimaryTheme(aspects, chart, today)
	assert.Equal(t, []string{"short"}, theme.AspectIDs)
}

func TestGenerateSecondaryThemes_PrefersOtherFocusAreas(t *testing.T) {
	s := New(Options{})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{
		scored("c1", domain.FocusCareer, 90, domain.ValenceNegative, -5, 0, 2, 20),
		scored("c2", domain.FocusCareer, 80, domain.ValenceNegative, 30, 32, 34, 40),
		scored("c3", domain.FocusCareer, 75, domain.ValenceNegative, 50, 52, 54, 60),
		scored("m1", domain.FocusMoney, 45, domain.ValencePositive, -1, 1, 2, 8),
		scored("g1", domain.FocusGrowth, 50, domain.ValencePositive, -1, 1, 2, 8),
	}

	primary := s.GeneratePrimaryTheme(aspects, chart, today)
	assert.Equal(t, []string{"c1"}, primary.AspectIDs)

	secondary := s.GenerateSecondaryThemes(aspects, chart, today)
	require.Len(t, secondary, 3)
	assert.Equal(t, []string{"c2"}, secondary[0].AspectIDs)
	assert.Equal(t, []string{"g1"}, secondary[1].AspectIDs)
	assert.Equal(t, []string{"m1"}, secondary[2].AspectIDs)
	for _, th := range secondary {
		assert.GreaterOrEqual(t, th.Score, DefaultThreshold)
	}
}

func TestGenerateSecondaryThemes_RespectsMax(t *testing.T) {
	s := New(Options{MaxSecondary: 1})
	chart := testChart(domain.ConfidenceExact)
	aspects := []domain.ScoredAspect{
		scored("c1", domain.FocusCareer, 90, domain.ValenceNegative, -5, 0, 2, 20),
		scored("m1", domain.FocusMoney, 45, domain.ValencePositive, -1, 1, 2, 8),
		scored("g1", domain.FocusGrowth, 50, domain.ValencePositive, -1, 1, 2, 8),
	}

	secondary := s.GenerateSecondaryThemes(aspects, chart, today)
	require.Len(t, secondary, 1)
	assert.Equal(t, []string{"g1"}, secondary[0].AspectIDs)
}

func TestGenerateUpcomingWindows_TilesHorizon(t *testing.T) {
	tests := []struct {
		name    string
		aspects []domain.ScoredAspect
	}{
		{"no aspects", nil},
		{"saturn square venus", saturnSquareVenus()},
		{"overlapping clusters", []domain.ScoredAspect{
			scored("c1", domain.FocusCareer, 90, domain.ValenceNegative, -5, 0, 2, 20),
			scored("m1", domain.FocusMoney, 45, domain.ValencePositive, 10, 15, 18, 70),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{})
			windows := s.GenerateUpcomingWindows(tt.aspects, testChart(domain.ConfidenceExact), today)
			require.NotEmpty(t, windows)

			assert.Equal(t, today, windows[0].Start)
			assert.Equal(t, day(DefaultHorizonDays-1), windows[len(windows)-1].End)

			covered := 0
			for i, w := range windows {
				assert.False(t, w.End.Before(w.Start))
				covered += domain.DaysBetween(w.Start, w.End) + 1
				if i > 0 {
					assert.Equal(t, windows[i-1].End.AddDate(0, 0, 1), w.Start, "windows must be contiguous")
				}
			}
			assert.Equal(t, DefaultHorizonDays, covered)
		})
	}
}

func TestGenerateUpcomingWindows_FollowsClusterPhases(t *testing.T) {
	s := New(Options{})
	windows := s.GenerateUpcomingWindows(saturnSquareVenus(), testChart(domain.ConfidenceExact), today)
	require.GreaterOrEqual(t, len(windows), 4)

	assert.Equal(t, domain.TrendRising, windows[0].Trend)
	assert.Equal(t, today, windows[0].Start)
	assert.Equal(t, day(2), windows[0].End)

	assert.Equal(t, domain.TrendPeaking, windows[1].Trend)
	assert.Equal(t, day(3), windows[1].Start)
	assert.Equal(t, day(8), windows[1].End)

	assert.Equal(t, domain.TrendEasing, windows[2].Trend)
	assert.Equal(t, day(23), windows[2].End)
	assert.NotEmpty(t, windows[2].ThemeID)

	assert.Empty(t, windows[3].ThemeID, "after the cluster ends the natal cycle takes over")
}

func TestGenerateUpcomingWindows_CustomHorizon(t *testing.T) {
	s := New(Options{HorizonDays: 14})
	windows := s.GenerateUpcomingWindows(nil, testChart(domain.ConfidenceUnknown), today)
	assert.Equal(t, day(13), windows[len(windows)-1].End)
}

func TestSynthesize_UnknownTimeNeverUsesAngles(t *testing.T) {
	chart := testChart(domain.ConfidenceUnknown)
	aspects := scoring.ScoreAll([]domain.TransitAspect{
		aspect("sat-conj-asc", domain.Conjunction, domain.Saturn, domain.Ascendant, 0.1, -10, -2, 2, 10),
		aspect("jup-trine-sun", domain.Trine, domain.Jupiter, domain.Sun, 0.5, -10, -2, 2, 10),
	}, chart)

	env := New(Options{}).Synthesize(aspects, chart, today)
	themes := append([]domain.SynthesizedTheme{env.PrimaryTheme}, env.SecondaryThemes...)
	for _, th := range themes {
		assert.NotContains(t, th.AspectIDs, "sat-conj-asc")
	}
}

func TestSynthesize_FastTransitLeadsGuidanceSlowLeadsTheme(t *testing.T) {
	chart := testChart(domain.ConfidenceExact)
	aspects := scoring.ScoreAll([]domain.TransitAspect{
		aspect("moon-conj-sun", domain.Conjunction, domain.Moon, domain.Sun, 0, 0, 0, 0, 0),
		aspect("pluto-conj-ven", domain.Conjunction, domain.Pluto, domain.Venus, 0, -30, -5, 5, 60),
	}, chart)
	require.Len(t, aspects, 2)

	s := New(Options{})
	env := s.Synthesize(aspects, chart, today)

	assert.Equal(t, domain.FocusRelationships, env.PrimaryTheme.Focus)
	assert.Equal(t, []string{"pluto-conj-ven"}, env.PrimaryTheme.AspectIDs)

	moonPhrase := s.templates.Lookup(domain.FocusCareer, domain.Conjunction, domain.ValencePositive)
	assert.Equal(t, moonPhrase.Advice, env.DailyGuidance.Advice)
	assert.Equal(t, 5, env.DailyGuidance.Intensity)
	assert.Equal(t, ToneSupportive, env.DailyGuidance.Tone)
}
