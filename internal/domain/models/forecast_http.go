package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requests and responses for the forecast HTTP endpoints.

type ForecastRequest struct {
	Asset string `form:"asset" query:"asset" json:"asset" default:"Bitcoin" validate:"required,asset"`
}

type ChartRequest struct {
	Asset string `query:"asset" default:"Bitcoin" validate:"required,asset"`
}

// SeriesPoint is a dated value; Value is nil for a calendar day without data.
type SeriesPoint struct {
	Date  string           `json:"date"`
	Value *decimal.Decimal `json:"value"`
}

type ForecastResponse struct {
	Asset         string        `json:"asset"`
	TargetYear    int           `json:"target_year"`
	HistoryStart  string        `json:"history_start"`
	HistoryEnd    string        `json:"history_end"`
	ForecastStart string        `json:"forecast_start"`
	ForecastEnd   string        `json:"forecast_end"`
	Horizon       int           `json:"horizon"`
	History       []SeriesPoint `json:"history"`
	Forecast      []SeriesPoint `json:"forecast"`
	Summary       string        `json:"summary"`
}

type AssetsResponse struct {
	Assets []string `json:"assets"`
}

// DateLayout is the wire format of every date in HTTP responses.
const DateLayout = "2006-01-02"

// FormatDate renders t with DateLayout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
