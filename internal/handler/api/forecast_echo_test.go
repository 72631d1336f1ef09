package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/usecase"
	pkgcache "PriceCast/pkg/cache"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

type flatModel struct{ last float64 }

func (m flatModel) Predict(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		out[i] = m.last
	}
	return out, nil
}

func (flatModel) Describe() string { return "ARIMA(0,1,0)\n" }

type flatForecaster struct{}

func (flatForecaster) Fit(_ context.Context, values []float64) (domsvc.Model, error) {
	if len(values) < 10 {
		return nil, fmt.Errorf("%w: too short", models.ErrFit)
	}
	return flatModel{last: values[len(values)-1]}, nil
}

func pricesCSV(start time.Time, n int) string {
	var b strings.Builder
	b.WriteString("Date,Close\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%d.125\n", start.AddDate(0, 0, i).Format("2006-01-02"), 100+i)
	}
	return b.String()
}

var sample = pricesCSV(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), 800)

func newTestServer(t *testing.T, mutate func(*config.Config)) *xhttp.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Chart.WidthInches, cfg.Chart.HeightInches = 4, 2
	cfg.RateLimit.Burst = 100
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	log := xlogger.NewNop()
	pipeline := usecase.NewForecastPipeline(cfg, flatForecaster{}, chart.NewDomainRenderer(cfg), nil, log)
	h, err := NewForecastEchoHandler(cfg, log, pipeline,
		pkgcache.NewMemoryStore(pkgcache.WithMemoryMaxSize(8)),
		ratelimit.NewFromConfig(cfg),
		svcmetrics.NewSessionMetrics(reg),
	)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return xhttp.NewServer(h,
		xhttp.WithBodyLimit(cfg.Server.MaxUploadBytes),
		xhttp.WithMetrics(cfg.Metrics.Path, reg, reg),
	)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if file != "" {
		fw, err := w.CreateFormFile("file", "prices.csv")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		fw.Write([]byte(file))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *xhttp.Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

type forecastEnvelope struct {
	Status int                     `json:"status"`
	Data   models.ForecastResponse `json:"data"`
}

func TestIndexListsAssets(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{pageHeading, `<option value="Bitcoin" selected>`, `<option value="TeraWulf"`, `accept=".csv"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected session cookie")
	}
}

func TestForecastAPI(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, sample))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env forecastEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := env.Data
	if d.HistoryStart != "2022-03-10" || d.HistoryEnd != "2024-03-10" || len(d.History) != 732 {
		t.Fatalf("unexpected history %s..%s (%d)", d.HistoryStart, d.HistoryEnd, len(d.History))
	}
	if d.Horizon != 2190 || len(d.Forecast) != 2190 || d.ForecastStart != "2024-03-11" {
		t.Fatalf("unexpected forecast %d from %s", d.Horizon, d.ForecastStart)
	}
	if d.History[0].Value == nil || d.History[0].Value.String() != "168.13" {
		t.Fatalf("expected price rounded to cents, got %v", d.History[0].Value)
	}
	if !strings.HasPrefix(d.Summary, "Bitcoin ARIMA Model Summary") {
		t.Fatalf("unexpected summary %q", d.Summary)
	}
}

func TestForecastReusesSessionUpload(t *testing.T) {
	s := newTestServer(t, nil)
	first := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, sample))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: %d", first.Code)
	}
	cookies := first.Result().Cookies()

	second := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "TeraWulf"}, ""), cookies...)
	if second.Code != http.StatusOK {
		t.Fatalf("reuse should succeed, got %d: %s", second.Code, second.Body.String())
	}
	if !strings.Contains(second.Body.String(), "TeraWulf ARIMA Model Summary") {
		t.Fatalf("expected TeraWulf result")
	}

	// A different session sees nothing.
	third := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, ""))
	if third.Code != http.StatusBadRequest || !strings.Contains(third.Body.String(), "ERR_NO_UPLOAD") {
		t.Fatalf("expected ERR_NO_UPLOAD, got %d %s", third.Code, third.Body.String())
	}
}

func TestForecastErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	cases := []struct {
		name   string
		asset  string
		file   string
		status int
		code   string
	}{
		{"missing close", "Bitcoin", "Date,Price\n2024-01-01,1\n", http.StatusUnprocessableEntity, "ERR_SCHEMA"},
		{"bad date", "Bitcoin", "Date,Close\nsoon,1\n", http.StatusUnprocessableEntity, "ERR_PARSE"},
		{"too short", "Bitcoin", pricesCSV(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5), http.StatusUnprocessableEntity, "ERR_FIT"},
		{"future data", "Bitcoin", pricesCSV(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 20), http.StatusUnprocessableEntity, "ERR_INVALID_HORIZON"},
		{"unknown asset", "Dogecoin", sample, http.StatusBadRequest, "ERR_ASSET"},
	}
	for _, tc := range cases {
		rec := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": tc.asset}, tc.file))
		if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.code) {
			t.Fatalf("%s: expected %d %s, got %d %s", tc.name, tc.status, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestForecastRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.PerSecond = 0.001
		c.RateLimit.Burst = 1
	})
	first := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, sample))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: %d", first.Code)
	}
	second := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, ""), first.Result().Cookies()...)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestForecastUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxUploadBytes = 1024 })
	rec := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, sample))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestPageRendersChartAndSummary(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, multipartRequest(t, "/forecast", map[string]string{"asset": "TeraWulf"}, sample))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`src="data:image/png;base64,`,
		"TeraWulf Price Prediction Using Last 2 Years of Data (2022 to 2030)",
		"TeraWulf ARIMA Model Summary",
		"ARIMA(0,1,0)",
		`<option value="TeraWulf" selected>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestPageRendersReadableError(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, multipartRequest(t, "/forecast", map[string]string{"asset": "Bitcoin"}, "Date,Open\n2024-01-01,1\n"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "missing required column(s): Close") {
		t.Fatalf("error message missing from page")
	}
	if strings.Contains(body, "data:image/png") {
		t.Fatalf("no chart expected on error")
	}
}

func TestChartPNG(t *testing.T) {
	s := newTestServer(t, nil)
	first := serve(s, multipartRequest(t, "/api/v1/forecast", map[string]string{"asset": "Bitcoin"}, sample))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/chart.png?asset=Bitcoin", nil), first.Result().Cookies()...)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
}

func TestAssets(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"assets":["Bitcoin","TeraWulf"]`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
