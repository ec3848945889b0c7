package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-synth/internal/domain"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testBirth(conf domain.TimeConfidence) domain.BirthData {
	b := domain.BirthData{
		SubjectID:      "subject-1",
		BirthDate:      time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
		TimeConfidence: conf,
		Place: domain.BirthPlace{
			City: "Lisbon", Country: "PT",
			Latitude: 38.72, Longitude: -9.14, TimeZone: "Europe/Lisbon",
		},
	}
	if conf != domain.ConfidenceUnknown {
		b.BirthTime = "08:30"
	}
	return b
}

func newGateway() *Gateway {
	g := NewGateway()
	g.SetClock(func() time.Time { return fixedNow })
	return g
}

func TestGateway_SynthesizedSky(t *testing.T) {
	g := newGateway()

	sky, err := g.ComputeCurrentSky(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Day(fixedNow), sky.Date)
	assert.Equal(t, fixedNow, sky.ComputedAt)
	assert.Len(t, sky.Positions, len(domain.Planets))
	for _, p := range sky.Positions {
		assert.GreaterOrEqual(t, p.Longitude, 0.0)
		assert.Less(t, p.Longitude, 360.0)
	}
	assert.NotEmpty(t, sky.Lunar.Phase)
	assert.Equal(t, int64(1), g.SkyCalls())
}

func TestGateway_SynthesizedChart(t *testing.T) {
	g := newGateway()

	chart, err := g.ComputeNatalChart(context.Background(), testBirth(domain.ConfidenceExact))
	require.NoError(t, err)
	require.NoError(t, chart.Validate(fixedNow))

	asc, ok := chart.Point(domain.Ascendant)
	require.True(t, ok)
	assert.Equal(t, 1, asc.House)

	unknown, err := g.ComputeNatalChart(context.Background(), testBirth(domain.ConfidenceUnknown))
	require.NoError(t, err)
	_, ok = unknown.Point(domain.Ascendant)
	assert.False(t, ok, "unknown birth time must not produce angles")
	for _, p := range unknown.Points {
		assert.Zero(t, p.House)
	}
}

func TestGateway_FixedAspects(t *testing.T) {
	g := newGateway()
	birth := testBirth(domain.ConfidenceExact)
	fixed := []domain.TransitAspect{{ID: "a1", Transiting: domain.Saturn, Natal: domain.Venus, Type: domain.Square, Orb: 1.2}}
	g.AddAspects(birth, fixed)

	chart := SynthesizeChart(birth, fixedNow)
	aspects, err := g.ComputeAspects(context.Background(), chart, SynthesizeSky(fixedNow))
	require.NoError(t, err)
	assert.Equal(t, fixed, aspects)
	assert.Equal(t, int64(1), g.AspectsCalls())
}

func TestGateway_Failures(t *testing.T) {
	g := newGateway()
	g.FailSky(domain.ErrUpstreamUnavailable)
	g.FailAspects(domain.ErrUpstreamUnavailable)
	g.FailCharts(domain.ErrUpstreamUnavailable)

	_, err := g.ComputeCurrentSky(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	_, err = g.ComputeNatalChart(context.Background(), testBirth(domain.ConfidenceExact))
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	_, err = g.ComputeAspects(context.Background(), SynthesizeChart(testBirth(domain.ConfidenceExact), fixedNow), SynthesizeSky(fixedNow))
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	g.FailSky(nil)
	_, err = g.ComputeCurrentSky(context.Background())
	assert.NoError(t, err)
}

func TestGateway_DelayHonorsContext(t *testing.T) {
	g := newGateway()
	g.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.ComputeCurrentSky(ctx)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout))
}

func TestSynthesizeSky_Deterministic(t *testing.T) {
	assert.Equal(t, SynthesizeSky(fixedNow), SynthesizeSky(fixedNow))
}
