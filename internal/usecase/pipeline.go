package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
	"PriceCast/pkg/logger"
)

// Pipeline stage names, used as metric labels.
const (
	StageLoad    = "load"
	StagePrepare = "prepare"
	StageHorizon = "horizon"
	StageFit     = "fit"
	StagePredict = "predict"
	StageRender  = "render"
)

// ForecastPipeline runs load, prepare, horizon, fit, predict and render in order.
type ForecastPipeline struct {
	preparer    *SeriesPreparer
	forecaster  domsvc.Forecaster
	renderer    domsvc.ChartRenderer
	metrics     domrepo.Metrics
	log         *logger.Logger
	targetYear  int
	windowYears int
}

func NewForecastPipeline(
	cfg *config.Config,
	forecaster domsvc.Forecaster,
	renderer domsvc.ChartRenderer,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *ForecastPipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ForecastPipeline{
		preparer:    NewSeriesPreparer(cfg),
		forecaster:  forecaster,
		renderer:    renderer,
		metrics:     metrics,
		log:         log,
		targetYear:  cfg.Forecast.TargetYear,
		windowYears: cfg.Forecast.WindowYears,
	}
}

type RunParams struct {
	Asset string
	Data  io.Reader
	// SkipChart leaves RunResult.Chart empty.
	SkipChart bool
}

type RunResult struct {
	Asset      string
	TargetYear int
	Daily      models.DailySeries
	Horizon    models.Horizon
	Forecast   models.ForecastSeries
	View       models.CombinedView
	Labels     domsvc.ChartLabels
	Summary    string
	Chart      []byte // PNG
}

// Run executes the whole chain. Any failure aborts the run without a partial result.
func (uc *ForecastPipeline) Run(ctx context.Context, p RunParams) (res *RunResult, err error) {
	if p.Asset == "" {
		return nil, fmt.Errorf("asset required")
	}
	if p.Data == nil {
		return nil, fmt.Errorf("%w: no data supplied", models.ErrSchema)
	}

	log := uc.log.With(logger.String("asset", p.Asset))
	started := time.Now()
	defer func() {
		outcome := Outcome(err)
		uc.metrics.RecordRun(p.Asset, outcome)
		if err != nil {
			log.Warn("forecast run failed", logger.String("outcome", outcome), logger.Error(err),
				logger.Duration("elapsed", time.Since(started)))
		}
	}()

	var raw models.RawSeries
	if err := uc.stage(StageLoad, func() (e error) { raw, e = LoadRawSeries(p.Data); return }); err != nil {
		return nil, err
	}

	var daily models.DailySeries
	if err := uc.stage(StagePrepare, func() (e error) { daily, e = uc.preparer.Prepare(raw); return }); err != nil {
		return nil, err
	}
	log.Debug("series prepared",
		logger.Int("rows", raw.Len()),
		logger.Int("days", daily.Len()),
		logger.Int("observed", daily.Observed()),
		logger.Date("start", daily.Start),
		logger.Date("end", daily.End()),
	)

	var horizon models.Horizon
	if err := uc.stage(StageHorizon, func() (e error) { horizon, e = CalculateHorizon(daily.End(), uc.targetYear); return }); err != nil {
		return nil, err
	}
	uc.metrics.RecordHorizon(p.Asset, horizon.Count)

	var model domsvc.Model
	if err := uc.stage(StageFit, func() (e error) { model, e = uc.forecaster.Fit(ctx, daily.Values); return }); err != nil {
		return nil, err
	}

	var values []float64
	if err := uc.stage(StagePredict, func() (e error) { values, e = model.Predict(horizon.Count); return }); err != nil {
		return nil, err
	}
	if len(values) != horizon.Count {
		return nil, fmt.Errorf("%w: model returned %d values for %d steps", models.ErrPrediction, len(values), horizon.Count)
	}
	forecast := models.ForecastSeries{Dates: horizon.Dates, Values: values}

	view, err := BuildCombinedView(daily, forecast)
	if err != nil {
		return nil, err
	}

	labels := ChartLabels(p.Asset, uc.windowYears, daily, uc.targetYear)
	var chart []byte
	if !p.SkipChart && uc.renderer != nil {
		if err := uc.stage(StageRender, func() (e error) { chart, e = uc.renderer.Render(view, labels); return }); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
	}

	log.Info("forecast run complete",
		logger.Int("history_days", daily.Len()),
		logger.Int("horizon", horizon.Count),
		logger.Date("forecast_end", horizon.Dates[len(horizon.Dates)-1]),
		logger.Duration("elapsed", time.Since(started)),
	)

	return &RunResult{
		Asset:      p.Asset,
		TargetYear: uc.targetYear,
		Daily:      daily,
		Horizon:    horizon,
		Forecast:   forecast,
		View:       view,
		Labels:     labels,
		Summary:    Summary(p.Asset, model),
		Chart:      chart,
	}, nil
}

func (uc *ForecastPipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	uc.metrics.RecordStage(name, time.Since(start))
	return err
}

// Outcome classifies a run error for metrics and API error codes.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrSchema):
		return "schema"
	case errors.Is(err, models.ErrParse):
		return "parse"
	case errors.Is(err, models.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, models.ErrFit):
		return "fit"
	case errors.Is(err, models.ErrPrediction):
		return "prediction"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, string)          {}
func (nopMetrics) RecordStage(string, time.Duration) {}
func (nopMetrics) RecordHorizon(string, int)         {}
