package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/internal/services/forecast"
	"PriceCast/pkg/config"
)

type recordingMetrics struct {
	mu       sync.Mutex
	runs     map[string]int
	stages   []string
	horizons []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{runs: map[string]int{}}
}

func (m *recordingMetrics) RecordRun(asset, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[asset+"/"+outcome]++
}

func (m *recordingMetrics) RecordStage(stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *recordingMetrics) RecordHorizon(_ string, steps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.horizons = append(m.horizons, steps)
}

type stubForecaster struct {
	calls int
	model domsvc.Model
	err   error
}

func (f *stubForecaster) Fit(context.Context, []float64) (domsvc.Model, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type stubRenderer struct {
	labels domsvc.ChartLabels
	points int
}

func (r *stubRenderer) Render(view models.CombinedView, labels domsvc.ChartLabels) ([]byte, error) {
	r.labels = labels
	r.points = len(view.Points)
	return []byte("png"), nil
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := config.Default()
	metrics := newRecordingMetrics()
	renderer := &stubRenderer{}
	engine := forecast.NewEngine(forecast.DefaultConfig(), nil)
	uc := NewForecastPipeline(cfg, engine, renderer, metrics, nil)

	res, err := uc.Run(context.Background(), RunParams{
		Asset: "Bitcoin",
		Data:  strings.NewReader(dailyCSV(date(2022, 1, 1), 800)),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Daily.Len() != 732 || !res.Daily.Start.Equal(date(2022, 3, 10)) {
		t.Fatalf("unexpected history: start=%s len=%d", res.Daily.Start, res.Daily.Len())
	}
	if res.Horizon.Count != 2190 || res.Forecast.Len() != 2190 {
		t.Fatalf("expected 2190 forecast steps, got %d/%d", res.Horizon.Count, res.Forecast.Len())
	}
	if !res.Forecast.Dates[0].Equal(date(2024, 3, 11)) {
		t.Fatalf("expected forecast start 2024-03-11, got %s", res.Forecast.Dates[0])
	}
	if len(res.View.Points) != 732+2190 || renderer.points != 732+2190 {
		t.Fatalf("unexpected combined view size %d", len(res.View.Points))
	}
	if !strings.HasPrefix(res.Summary, "Bitcoin ARIMA Model Summary") {
		t.Fatalf("unexpected summary header: %q", res.Summary)
	}
	if renderer.labels.Title != "Bitcoin Price Prediction Using Last 2 Years of Data (2022 to 2030)" {
		t.Fatalf("unexpected title %q", renderer.labels.Title)
	}
	if string(res.Chart) != "png" {
		t.Fatalf("chart bytes not propagated")
	}
	if metrics.runs["Bitcoin/ok"] != 1 || len(metrics.horizons) != 1 || metrics.horizons[0] != 2190 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
	if len(metrics.stages) != 6 {
		t.Fatalf("expected 6 timed stages, got %v", metrics.stages)
	}
}

func TestPipelineSchemaErrorBeforeDates(t *testing.T) {
	metrics := newRecordingMetrics()
	f := &stubForecaster{model: stubModel{}}
	uc := NewForecastPipeline(config.Default(), f, nil, metrics, nil)

	_, err := uc.Run(context.Background(), RunParams{
		Asset: "TeraWulf",
		Data:  strings.NewReader("Date,Price\nnot-a-date,1\n"),
	})
	if !errors.Is(err, models.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("forecaster must not run on schema error")
	}
	if metrics.runs["TeraWulf/schema"] != 1 {
		t.Fatalf("expected schema outcome, got %+v", metrics.runs)
	}
}

func TestPipelineInvalidHorizonSkipsFit(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.TargetYear = 2024
	f := &stubForecaster{model: stubModel{}}
	uc := NewForecastPipeline(cfg, f, nil, nil, nil)

	_, err := uc.Run(context.Background(), RunParams{
		Asset: "Bitcoin",
		Data:  strings.NewReader(dailyCSV(date(2024, 1, 1), 30)),
	})
	if !errors.Is(err, models.ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("forecaster must not run when horizon is invalid")
	}
}

func TestPipelinePropagatesModelErrors(t *testing.T) {
	data := dailyCSV(date(2024, 1, 1), 30)
	cases := []struct {
		name string
		f    *stubForecaster
		want error
	}{
		{"fit", &stubForecaster{err: models.ErrFit}, models.ErrFit},
		{"predict", &stubForecaster{model: stubModel{err: models.ErrPrediction}}, models.ErrPrediction},
		{"short forecast", &stubForecaster{model: stubModel{values: []float64{1}}}, models.ErrPrediction},
	}
	for _, tc := range cases {
		renderer := &stubRenderer{}
		uc := NewForecastPipeline(config.Default(), tc.f, renderer, nil, nil)
		res, err := uc.Run(context.Background(), RunParams{Asset: "Bitcoin", Data: strings.NewReader(data)})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if res != nil || renderer.points != 0 {
			t.Fatalf("%s: no partial result expected", tc.name)
		}
	}
}

func TestPipelineSkipChart(t *testing.T) {
	renderer := &stubRenderer{}
	uc := NewForecastPipeline(config.Default(), &stubForecaster{model: stubModel{}}, renderer, nil, nil)
	res, err := uc.Run(context.Background(), RunParams{
		Asset:     "Bitcoin",
		Data:      strings.NewReader(dailyCSV(date(2024, 1, 1), 30)),
		SkipChart: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Chart != nil || renderer.points != 0 {
		t.Fatalf("chart should not be rendered")
	}
}

func TestOutcome(t *testing.T) {
	cases := map[error]string{
		nil:                      "ok",
		models.ErrParse:          "parse",
		models.ErrInvalidHorizon: "invalid_horizon",
		context.Canceled:         "canceled",
		errors.New("boom"):       "internal",
	}
	for err, want := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
