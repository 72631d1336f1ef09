package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	models "PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const pageHeading = "Cryptocurrency Price Prediction Using ARIMA"

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

var errNoUpload = errors.New("no upload in this session")

// ForecastEchoHandler serves the forecast page and JSON API.
type ForecastEchoHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.ForecastPipeline
	uploads   domrepo.UploadStore
	limiter   *ratelimit.Limiter
	metrics   *svcmetrics.SessionMetrics
	assets    []string
	cookie    string
	ttl       time.Duration
	maxUpload int64
}

func NewForecastEchoHandler(
	cfg *config.Config,
	logger *xlogger.Logger,
	pipeline *usecase.ForecastPipeline,
	uploads domrepo.UploadStore,
	limiter *ratelimit.Limiter,
	metrics *svcmetrics.SessionMetrics,
) (*ForecastEchoHandler, error) {
	assets := slices.Clone(cfg.Assets)
	err := xhttp.RegisterValidation("asset", func(fl validator.FieldLevel) bool {
		return slices.Contains(assets, fl.Field().String())
	}, "must be one of: "+strings.Join(assets, ", "))
	if err != nil {
		return nil, fmt.Errorf("register asset validation: %w", err)
	}

	return &ForecastEchoHandler{
		logger:    logger,
		pipeline:  pipeline,
		uploads:   uploads,
		limiter:   limiter,
		metrics:   metrics,
		assets:    assets,
		cookie:    cfg.Session.CookieName,
		ttl:       cfg.Session.TTL,
		maxUpload: cfg.Server.MaxUploadBytes,
	}, nil
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.POST("/forecast", h.Page)

	g := e.Group("/api/v1")
	g.GET("/assets", h.Assets)
	g.POST("/forecast", h.Forecast)
	g.GET("/chart.png", h.Chart)
}

type pageData struct {
	Heading    string
	Assets     []string
	Selected   string
	HasUpload  bool
	Error      string
	RequestID  string
	ChartTitle string
	Chart      template.URL
	Summary    string
}

func (h *ForecastEchoHandler) Index(c echo.Context) error {
	sid := h.session(c)
	data := h.newPage(c, sid)
	if a := c.QueryParam("asset"); slices.Contains(h.assets, a) {
		data.Selected = a
	}
	return h.render(c, http.StatusOK, data)
}

// Page runs the forecast for the HTML form and renders the result or a readable error.
func (h *ForecastEchoHandler) Page(c echo.Context) error {
	sid := h.session(c)
	data := h.newPage(c, sid)

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		data.Error = validationMessage(verr)
		return h.render(c, http.StatusBadRequest, data)
	}
	data.Selected = req.Asset

	res, appErr := h.run(c, sid, req.Asset, false)
	if appErr != nil {
		data.Error = appErr.Message
		data.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
		data.HasUpload = h.hasUpload(c, sid)
		return h.render(c, appErr.Status, data)
	}

	data.HasUpload = true
	data.ChartTitle = res.Labels.Title
	data.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(res.Chart))
	data.Summary = strings.TrimPrefix(res.Summary, res.Asset+" ARIMA Model Summary\n")
	return h.render(c, http.StatusOK, data)
}

func (h *ForecastEchoHandler) Assets(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.AssetsResponse{Assets: h.assets})
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	sid := h.session(c)
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, appErr := h.run(c, sid, req.Asset, true)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, toForecastResponse(res))
}

func (h *ForecastEchoHandler) Chart(c echo.Context) error {
	sid := h.session(c)
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, appErr := h.run(c, sid, req.Asset, false)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", res.Chart)
}

// run throttles, resolves the upload and executes the pipeline.
func (h *ForecastEchoHandler) run(c echo.Context, sid, asset string, skipChart bool) (*usecase.RunResult, *xhttp.AppError) {
	if !h.limiter.Allow(sid) {
		h.metrics.RateLimited.Inc()
		return nil, xhttp.TooManyRequestsError("too many forecast requests, try again shortly")
	}

	data, err := h.upload(c, sid)
	if err != nil {
		return nil, h.uploadError(err)
	}

	res, err := h.pipeline.Run(c.Request().Context(), usecase.RunParams{
		Asset:     asset,
		Data:      bytes.NewReader(data),
		SkipChart: skipChart,
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("forecast usecase error", xlogger.String("asset", asset), xlogger.Error(err))
		}
		return nil, appErr
	}
	return res, nil
}

// upload returns the request's file, saving it for the session, or the
// session's previous upload when the request carries none.
func (h *ForecastEchoHandler) upload(c echo.Context, sid string) ([]byte, error) {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		if int64(len(data)) > h.maxUpload {
			return nil, echo.ErrStatusRequestEntityTooLarge
		}
		h.metrics.UploadBytes.Observe(float64(len(data)))
		if err := h.uploads.Save(ctx, sid, data); err != nil {
			h.metrics.StoreErrors.WithLabelValues("save").Inc()
			h.logger.Warn("upload not saved", xlogger.String("session", sid), xlogger.Error(err))
		}
		return data, nil

	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		data, ok, err := h.uploads.Load(ctx, sid)
		if err != nil {
			h.metrics.StoreErrors.WithLabelValues("load").Inc()
			return nil, fmt.Errorf("load upload: %w", err)
		}
		if !ok {
			h.metrics.UploadReuse.WithLabelValues("miss").Inc()
			return nil, errNoUpload
		}
		h.metrics.UploadReuse.WithLabelValues("hit").Inc()
		return data, nil

	default:
		return nil, err
	}
}

func (h *ForecastEchoHandler) uploadError(err error) *xhttp.AppError {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, errNoUpload):
		return xhttp.NewAppError("ERR_NO_UPLOAD", "file", "please upload a CSV file", http.StatusBadRequest)
	case errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge:
		return xhttp.PayloadTooLargeError(fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
	default:
		h.logger.Error("upload error", xlogger.Error(err))
		return xhttp.BadRequestError("could not read the uploaded file").WithError(err)
	}
}

// session returns the caller's session id, issuing a new cookie when absent or malformed.
func (h *ForecastEchoHandler) session(c echo.Context) string {
	if ck, err := c.Cookie(h.cookie); err == nil {
		if id, err := uuid.Parse(ck.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     h.cookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *ForecastEchoHandler) newPage(c echo.Context, sid string) pageData {
	data := pageData{Heading: pageHeading, Assets: h.assets}
	if len(h.assets) > 0 {
		data.Selected = h.assets[0]
	}
	data.HasUpload = h.hasUpload(c, sid)
	return data
}

func (h *ForecastEchoHandler) hasUpload(c echo.Context, sid string) bool {
	_, ok, err := h.uploads.Load(c.Request().Context(), sid)
	return err == nil && ok
}

func (h *ForecastEchoHandler) render(c echo.Context, status int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("render page", xlogger.Error(err))
		return xhttp.InternalError("could not render page").WithError(err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}

// toAppError maps pipeline failures onto 422 codes; anything unclassified is a 500.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch usecase.Outcome(err) {
	case "schema":
		appErr = xhttp.UnprocessableError("ERR_SCHEMA", err.Error())
	case "parse":
		appErr = xhttp.UnprocessableError("ERR_PARSE", err.Error())
	case "fit":
		appErr = xhttp.UnprocessableError("ERR_FIT", err.Error())
	case "prediction":
		appErr = xhttp.UnprocessableError("ERR_PREDICTION", err.Error())
	case "invalid_horizon":
		appErr = xhttp.UnprocessableError("ERR_INVALID_HORIZON", err.Error())
	case "canceled":
		appErr = xhttp.NewAppError("ERR_CANCELED", "", "request canceled", http.StatusServiceUnavailable)
	default:
		appErr = xhttp.InternalError("forecast failed")
	}
	return appErr.WithError(err)
}

func validationMessage(verr interface{}) string {
	if errs, ok := verr.([]xhttp.ValidationError); ok {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Message)
		}
		return strings.Join(msgs, "; ")
	}
	return "invalid request"
}

func toForecastResponse(res *usecase.RunResult) models.ForecastResponse {
	history := make([]models.SeriesPoint, res.Daily.Len())
	for i, v := range res.Daily.Values {
		history[i] = models.SeriesPoint{Date: models.FormatDate(res.Daily.DateAt(i)), Value: price(v)}
	}
	forecast := make([]models.SeriesPoint, res.Forecast.Len())
	for i, v := range res.Forecast.Values {
		forecast[i] = models.SeriesPoint{Date: models.FormatDate(res.Forecast.Dates[i]), Value: price(v)}
	}

	out := models.ForecastResponse{
		Asset:        res.Asset,
		TargetYear:   res.TargetYear,
		HistoryStart: models.FormatDate(res.Daily.Start),
		HistoryEnd:   models.FormatDate(res.Daily.End()),
		Horizon:      res.Horizon.Count,
		History:      history,
		Forecast:     forecast,
		Summary:      res.Summary,
	}
	if n := len(res.Forecast.Dates); n > 0 {
		out.ForecastStart = models.FormatDate(res.Forecast.Dates[0])
		out.ForecastEnd = models.FormatDate(res.Forecast.Dates[n-1])
	}
	return out
}

// price rounds to cents; missing days serialize as null.
func price(v float64) *decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	d := decimal.NewFromFloat(v).Round(2)
	return &d
}
