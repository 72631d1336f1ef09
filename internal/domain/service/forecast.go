package service

import (
	"context"

	"PriceCast/internal/domain/models"
)

// Forecaster selects and fits a model for a daily series. NaN entries are missing observations.
type Forecaster interface {
	Fit(ctx context.Context, values []float64) (Model, error)
}

// Model is a fitted forecasting model.
type Model interface {
	// Predict returns n point forecasts following the last observation.
	Predict(n int) ([]float64, error)
	// Describe returns a human-readable summary; it is never parsed.
	Describe() string
}

// ChartRenderer draws a combined view as an image.
type ChartRenderer interface {
	Render(view models.CombinedView, labels ChartLabels) ([]byte, error)
}

// ChartLabels carries the presentation strings of a chart.
type ChartLabels struct {
	Title         string
	HistoryLabel  string
	ForecastLabel string
}
