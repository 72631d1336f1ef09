package di

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	icache "PriceCast/internal/service/cache"
	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/services/forecast"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the pipeline metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

func ProvideSessionMetrics(reg *prometheus.Registry) *svcmetrics.SessionMetrics {
	return svcmetrics.NewSessionMetrics(reg)
}

// ProvideUploadStore creates the per-session upload store (memory or redis).
func ProvideUploadStore(cfg *config.Config, log *logger.Logger) (repository.UploadStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return icache.NewUploadStore(ctx, cfg, log)
}

func ProvideForecaster(cfg *config.Config, log *logger.Logger) domsvc.Forecaster {
	return forecast.NewDomainEngine(cfg, log)
}

func ProvideChartRenderer(cfg *config.Config) domsvc.ChartRenderer {
	return chart.NewDomainRenderer(cfg)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.NewFromConfig(cfg)
}

// ProvideForecastPipeline creates the forecast use case.
func ProvideForecastPipeline(
	cfg *config.Config,
	forecaster domsvc.Forecaster,
	renderer domsvc.ChartRenderer,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.ForecastPipeline {
	return usecase.NewForecastPipeline(cfg, forecaster, renderer, m, log)
}

// ProvideForecastHandler creates the page and JSON API handler.
func ProvideForecastHandler(
	cfg *config.Config,
	log *logger.Logger,
	pipeline *usecase.ForecastPipeline,
	uploads repository.UploadStore,
	limiter *ratelimit.Limiter,
	sm *svcmetrics.SessionMetrics,
) (*api.ForecastEchoHandler, error) {
	return api.NewForecastEchoHandler(cfg, log, pipeline, uploads, limiter, sm)
}

// ProvideHTTPServer creates the Echo server with routes and middleware.
func ProvideHTTPServer(
	cfg *config.Config,
	h *api.ForecastEchoHandler,
	reg *prometheus.Registry,
	log *logger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(cfg.Server.MaxUploadBytes),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	uploads repository.UploadStore,
) *server.App {
	return server.New(cfg, log, srv, uploads)
}
