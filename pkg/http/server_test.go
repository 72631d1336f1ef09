package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var body map[string]interface{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		return SuccessResponse(c, body)
	})
	e.GET("/boom", func(echo.Context) error {
		panic("boom")
	})
	e.GET("/fail", func(c echo.Context) error {
		return UnprocessableError("ERR_FIT", "model could not be fitted")
	})
}

func newTestServer(opts ...ServerOption) *Server {
	reg := prometheus.NewRegistry()
	opts = append([]ServerOption{WithMetrics("/metrics", reg, reg)}, opts...)
	return NewServer(routes{}, opts...)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp.Status != http.StatusOK {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if resp.RequestID == "" || resp.RequestID != rec.Header().Get(echo.HeaderXRequestID) {
		t.Fatalf("envelope should echo the request id, got %q", resp.RequestID)
	}
}

func TestAppErrorKeepsStatus(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_FIT") {
		t.Fatalf("error code missing from body: %s", rec.Body.String())
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(WithBodyLimit(16))
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"payload":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_PAYLOAD_TOO_LARGE") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "goroutine") {
		t.Fatalf("stack trace leaked to client")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	s.Echo().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", rec.Body.String())
	}
}

type colourRequest struct {
	Colour string `query:"colour" default:"red" validate:"required,colour"`
}

func TestReadAndValidateRequestCustomTag(t *testing.T) {
	err := RegisterValidation("colour", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "red" || fl.Field().String() == "blue"
	}, "must be red or blue")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	e := echo.New()
	ok := &colourRequest{}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if verr := ReadAndValidateRequest(c, ok); verr != nil {
		t.Fatalf("default should validate, got %v", verr)
	}
	if ok.Colour != "red" {
		t.Fatalf("default not applied: %q", ok.Colour)
	}

	bad := &colourRequest{}
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?colour=green", nil), httptest.NewRecorder())
	verr := ReadAndValidateRequest(c, bad)
	errs, isList := verr.([]ValidationError)
	if !isList || len(errs) != 1 {
		t.Fatalf("expected one validation error, got %#v", verr)
	}
	if errs[0].Code != "ERR_COLOUR" || errs[0].Message != "Colour must be red or blue" {
		t.Fatalf("unexpected validation error %+v", errs[0])
	}
}
