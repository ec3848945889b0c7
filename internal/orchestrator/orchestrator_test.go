package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"transit-synth/internal/cache"
	"transit-synth/internal/domain"
	"transit-synth/internal/ephemeris/stub"
	"transit-synth/internal/idhash"
	"transit-synth/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func testBirth() domain.BirthData {
	return domain.BirthData{
		SubjectID:      "user-1",
		BirthDate:      time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
		BirthTime:      "14:30",
		TimeConfidence: domain.ConfidenceExact,
		Place: domain.BirthPlace{
			Latitude:  51.5074,
			Longitude: -0.1278,
			TimeZone:  "Europe/London",
		},
	}
}

func day(offset int) time.Time {
	return domain.Day(testNow).AddDate(0, 0, offset)
}

// saturnSquareVenus is active from day -12 to day +23 with peak days +3..+8.
func saturnSquareVenus() domain.TransitAspect {
	return domain.TransitAspect{
		Transiting: domain.Saturn,
		Natal:      domain.Venus,
		Type:       domain.Square,
		Orb:        1.2,
		Window: domain.Window{
			Start:     day(-12),
			PeakStart: day(3),
			PeakEnd:   day(8),
			End:       day(23),
		},
	}
}

type testEnv struct {
	gw   *stub.Gateway
	runs *memory.SynthesisRunStore
	orch *Orchestrator
}

func newTestEnv() *testEnv {
	gw := stub.NewGateway()
	gw.SetClock(clock)
	store := memory.NewCacheStore()
	opts := cache.Options{Clock: clock}
	sky := cache.NewDailySky(store, gw, opts)
	runs := memory.NewSynthesisRunStore()

	return &testEnv{
		gw:   gw,
		runs: runs,
		orch: New(Options{
			Sky:      sky,
			Transits: cache.NewUserTransits(store, gw, sky, opts),
			Runs:     runs,
			Clock:    clock,
		}),
	}
}

func assertHorizonCovered(t *testing.T, env domain.SynthesisEnvelope, days int) {
	t.Helper()

	if len(env.UpcomingWindows) == 0 {
		t.Fatal("expected upcoming windows")
	}
	next := day(0)
	for i, w := range env.UpcomingWindows {
		if !w.Start.Equal(next) {
			t.Fatalf("window %d starts %s, want %s", i, w.Start.Format(time.DateOnly), next.Format(time.DateOnly))
		}
		next = w.End.AddDate(0, 0, 1)
	}
	if want := day(days); !next.Equal(want) {
		t.Errorf("windows end before %s, want %s", next.Format(time.DateOnly), want.Format(time.DateOnly))
	}
}

func TestDashboard_Live(t *testing.T) {
	e := newTestEnv()
	birth := testBirth()
	e.gw.AddAspects(birth, []domain.TransitAspect{saturnSquareVenus()})

	chart := stub.SynthesizeChart(birth, testNow)
	env, err := e.orch.Dashboard(context.Background(), chart, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if env.Source != domain.SourceLive {
		t.Errorf("expected source live, got %s", env.Source)
	}
	if env.Degraded {
		t.Error("expected not degraded")
	}

	primary := env.PrimaryTheme
	if primary.Template {
		t.Fatal("expected live primary theme")
	}
	if !strings.HasPrefix(primary.Name, "Saturn square Venus") {
		t.Errorf("unexpected primary theme name %q", primary.Name)
	}
	if primary.Score != 70.4 {
		t.Errorf("expected score 70.4, got %v", primary.Score)
	}
	if !primary.Peak.Start.Equal(day(3)) || !primary.Peak.End.Equal(day(8)) {
		t.Errorf("expected peak +3..+8, got %v..%v", primary.Peak.Start, primary.Peak.End)
	}
	if len(primary.AspectIDs) != 1 || primary.AspectIDs[0] == "" {
		t.Errorf("expected one aspect id, got %v", primary.AspectIDs)
	}
	if len(env.SecondaryThemes) > 3 {
		t.Errorf("expected at most 3 secondary themes, got %d", len(env.SecondaryThemes))
	}
	assertHorizonCovered(t, env, 90)
}

func TestDashboard_CalculatedWhenAspectsFail(t *testing.T) {
	e := newTestEnv()
	e.gw.FailAspects(errors.New("503 from upstream"))

	env, err := e.orch.Dashboard(context.Background(), stub.SynthesizeChart(testBirth(), testNow), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if env.Source != domain.SourceCalculated {
		t.Errorf("expected source calculated, got %s", env.Source)
	}
	if !env.Degraded {
		t.Error("expected degraded")
	}
	assertHorizonCovered(t, env, 90)
}

func TestDashboard_PrefetchedSkyWithoutCaches(t *testing.T) {
	orch := New(Options{Clock: clock})
	sky := stub.SynthesizeSky(testNow)

	env, err := orch.Dashboard(context.Background(), stub.SynthesizeChart(testBirth(), testNow), sky)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if env.Source != domain.SourceCalculated {
		t.Errorf("expected source calculated, got %s", env.Source)
	}
}

func TestDashboard_MockWhenGatewayDown(t *testing.T) {
	e := newTestEnv()
	down := errors.New("connection refused")
	e.gw.FailSky(down)
	e.gw.FailAspects(down)
	e.gw.FailCharts(down)

	env, err := e.orch.Dashboard(context.Background(), stub.SynthesizeChart(testBirth(), testNow), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if env.Source != domain.SourceMock {
		t.Errorf("expected source mock, got %s", env.Source)
	}
	if !env.Degraded {
		t.Error("expected degraded")
	}
	if !env.PrimaryTheme.Template {
		t.Error("expected template primary theme")
	}
	if env.PrimaryTheme.Name == "" || env.DailyGuidance.Advice == "" {
		t.Error("expected non-empty template content")
	}
	if !env.GeneratedFor.Equal(day(0)) {
		t.Errorf("expected generated_for %v, got %v", day(0), env.GeneratedFor)
	}
	assertHorizonCovered(t, env, 90)
}

func TestDashboard_MockWithoutCaches(t *testing.T) {
	orch := New(Options{Clock: clock})

	env, err := orch.Dashboard(context.Background(), stub.SynthesizeChart(testBirth(), testNow), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if env.Source != domain.SourceMock {
		t.Errorf("expected source mock, got %s", env.Source)
	}
}

func TestDashboard_InvalidChart(t *testing.T) {
	e := newTestEnv()

	tests := []struct {
		name  string
		chart *domain.NatalChart
	}{
		{"nil chart", nil},
		{"no points", &domain.NatalChart{Birth: testBirth()}},
		{"bad birth", &domain.NatalChart{
			Birth:  domain.BirthData{TimeConfidence: domain.ConfidenceUnknown},
			Points: []domain.NatalPoint{{Body: domain.Sun, Longitude: 10}},
		}},
		{"longitude out of range", &domain.NatalChart{
			Birth:  testBirth(),
			Points: []domain.NatalPoint{{Body: domain.Sun, Longitude: 360}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.orch.Dashboard(context.Background(), tt.chart, nil)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if n := e.gw.SkyCalls(); n != 0 {
		t.Errorf("expected no upstream calls for invalid input, got %d", n)
	}
}

func TestDashboard_RecordsRun(t *testing.T) {
	e := newTestEnv()
	birth := testBirth()
	e.gw.AddAspects(birth, []domain.TransitAspect{saturnSquareVenus()})

	env, err := e.orch.Dashboard(context.Background(), stub.SynthesizeChart(birth, testNow), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	runs, err := e.runs.GetByFingerprint(context.Background(), idhash.Fingerprint(birth), 0)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Source != domain.SourceLive {
		t.Errorf("expected source live, got %s", run.Source)
	}
	if run.PrimaryThemeID != env.PrimaryTheme.ID {
		t.Errorf("expected primary theme id %s, got %s", env.PrimaryTheme.ID, run.PrimaryThemeID)
	}
	if run.WindowCount != len(env.UpcomingWindows) {
		t.Errorf("expected %d windows, got %d", len(env.UpcomingWindows), run.WindowCount)
	}
	if !run.RecordedAt.Equal(testNow) {
		t.Errorf("expected recorded_at %v, got %v", testNow, run.RecordedAt)
	}
}

func TestDashboard_Deterministic(t *testing.T) {
	orch := New(Options{Clock: clock})
	chart := stub.SynthesizeChart(testBirth(), testNow)
	sky := stub.SynthesizeSky(testNow)

	first, err := orch.Dashboard(context.Background(), chart, sky)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	second, err := orch.Dashboard(context.Background(), chart, sky)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical envelopes for identical inputs")
	}
}
