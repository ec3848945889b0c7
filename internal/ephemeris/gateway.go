// Package ephemeris provides access to the external ephemeris/astrology service.
package ephemeris

import (
	"context"

	"transit-synth/internal/domain"
)

// Gateway defines the ephemeris service interface.
type Gateway interface {
	// ComputeNatalChart derives the natal chart for birth data.
	ComputeNatalChart(ctx context.Context, birth domain.BirthData) (*domain.NatalChart, error)

	// ComputeCurrentSky returns planetary positions and lunar metrics for now.
	ComputeCurrentSky(ctx context.Context) (*domain.DailySkyData, error)

	// ComputeAspects returns the transit aspects between sky and chart.
	ComputeAspects(ctx context.Context, chart *domain.NatalChart, sky *domain.DailySkyData) ([]domain.TransitAspect, error)
}

// Method names used for metrics and error messages.
const (
	MethodNatalChart = "natal_chart"
	MethodCurrentSky = "current_sky"
	MethodAspects    = "aspects"
)
