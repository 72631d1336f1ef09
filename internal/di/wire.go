//go:build wireinject
// +build wireinject

package di

import (
	"PriceCast/pkg/config"
	"PriceCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideSessionMetrics,

		// Infrastructure
		ProvideUploadStore,
		ProvideRateLimiter,

		// Services
		ProvideForecaster,
		ProvideChartRenderer,

		// Use cases
		ProvideForecastPipeline,

		// HTTP
		ProvideForecastHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
