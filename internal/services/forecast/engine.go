package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
	"PriceCast/pkg/logger"
)

// Config controls the automatic order search.
type Config struct {
	MinObservations int
	MaxP            int
	MaxD            int
	MaxQ            int
	Criterion       string // aic, aicc or bic
	Stepwise        bool
	StationTest     string // kpss or adf
}

// DefaultConfig mirrors the defaults of the application config.
func DefaultConfig() Config {
	return Config{
		MinObservations: 10,
		MaxP:            5,
		MaxD:            2,
		MaxQ:            5,
		Criterion:       "aic",
		Stepwise:        true,
		StationTest:     "kpss",
	}
}

// Engine is an auto-ARIMA Forecaster.
type Engine struct {
	cfg Config
	log *logger.Logger
}

func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// NewDomainEngine builds the engine from application config.
func NewDomainEngine(cfg *config.Config, log *logger.Logger) domsvc.Forecaster {
	f := cfg.Forecast
	return NewEngine(Config{
		MinObservations: f.MinObservations,
		MaxP:            f.MaxP,
		MaxD:            f.MaxD,
		MaxQ:            f.MaxQ,
		Criterion:       f.Criterion,
		Stepwise:        f.Stepwise,
		StationTest:     f.StationTest,
	}, log)
}

var _ domsvc.Forecaster = (*Engine)(nil)

// Fit chooses d by unit-root testing, then p and q by information criterion.
func (e *Engine) Fit(ctx context.Context, values []float64) (domsvc.Model, error) {
	started := time.Now()

	observed, constant := inspect(values)
	switch {
	case observed == 0:
		return nil, fmt.Errorf("%w: no observed values", models.ErrFit)
	case observed < e.cfg.MinObservations:
		return nil, fmt.Errorf("%w: %d observed values, need at least %d", models.ErrFit, observed, e.cfg.MinObservations)
	case constant:
		return nil, fmt.Errorf("%w: series is constant", models.ErrFit)
	}

	y, bridged := bridgeGaps(values)
	d := selectDifferencing(y, e.cfg.MaxD, e.cfg.StationTest)

	res, err := search(ctx, e.cfg, y, d)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrFit, err)
	}
	if res.model == nil {
		return nil, fmt.Errorf("%w: no candidate model converged with d=%d", models.ErrFit, d)
	}

	e.log.Info("arima model selected",
		logger.String("order", res.model.order.String()),
		logger.String("criterion", e.cfg.Criterion),
		logger.Float64("value", res.criterion),
		logger.Int("models_evaluated", res.evaluated),
		logger.Int("observed", observed),
		logger.Int("bridged", bridged),
		logger.Duration("elapsed", time.Since(started)),
	)

	return &fittedModel{
		arima:     res.model,
		search:    res,
		criterion: e.cfg.Criterion,
		observed:  observed,
		bridged:   bridged,
	}, nil
}

// inspect counts observed values and reports whether they are all equal.
func inspect(values []float64) (observed int, constant bool) {
	first := math.NaN()
	constant = true
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if observed == 0 {
			first = v
		} else if v != first {
			constant = false
		}
		observed++
	}
	return observed, constant
}

// bridgeGaps drops leading NaN, interpolates interior gaps linearly and
// carries the last observation over trailing gaps. It returns the number
// of values filled.
func bridgeGaps(values []float64) ([]float64, int) {
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	out := make([]float64, len(values)-start)
	copy(out, values[start:])

	filled := 0
	last := 0
	for i := 1; i < len(out); i++ {
		if math.IsNaN(out[i]) {
			continue
		}
		if gap := i - last; gap > 1 {
			step := (out[i] - out[last]) / float64(gap)
			for j := last + 1; j < i; j++ {
				out[j] = out[last] + step*float64(j-last)
				filled++
			}
		}
		last = i
	}
	for j := last + 1; j < len(out); j++ {
		out[j] = out[last]
		filled++
	}
	return out, filled
}

type fittedModel struct {
	arima     *arimaModel
	search    *searchResult
	criterion string
	observed  int
	bridged   int
}

var _ domsvc.Model = (*fittedModel)(nil)

func (m *fittedModel) Predict(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", models.ErrPrediction, n)
	}
	out, err := m.arima.predict(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPrediction, err)
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite forecast at step %d", models.ErrPrediction, i+1)
		}
	}
	return out, nil
}

func (m *fittedModel) Describe() string {
	return describe(m)
}
