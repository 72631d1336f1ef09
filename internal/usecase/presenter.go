package usecase

import (
	"fmt"
	"math"
	"strings"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
)

// BuildCombinedView places history and forecast on one date axis. The forecast
// must start strictly after the last historical date.
func BuildCombinedView(daily models.DailySeries, forecast models.ForecastSeries) (models.CombinedView, error) {
	if len(forecast.Dates) != len(forecast.Values) {
		return models.CombinedView{}, fmt.Errorf("%w: forecast has %d dates and %d values",
			models.ErrOverlap, len(forecast.Dates), len(forecast.Values))
	}
	if daily.Len() > 0 && forecast.Len() > 0 && !forecast.Dates[0].After(daily.End()) {
		return models.CombinedView{}, fmt.Errorf("%w: forecast starts %s, history ends %s",
			models.ErrOverlap, models.FormatDate(forecast.Dates[0]), models.FormatDate(daily.End()))
	}

	points := make([]models.ViewPoint, 0, daily.Len()+forecast.Len())
	for i, v := range daily.Values {
		points = append(points, models.ViewPoint{Date: daily.DateAt(i), Historical: v, Predicted: math.NaN()})
	}
	for i, v := range forecast.Values {
		points = append(points, models.ViewPoint{Date: forecast.Dates[i], Historical: math.NaN(), Predicted: v})
	}

	view := models.CombinedView{Points: points}
	if forecast.Len() > 0 {
		view.ForecastStart = forecast.Dates[0]
	}
	return view, nil
}

// ChartLabels builds the title and legend entries of the forecast chart.
func ChartLabels(asset string, windowYears int, daily models.DailySeries, targetYear int) domsvc.ChartLabels {
	return domsvc.ChartLabels{
		Title: fmt.Sprintf("%s Price Prediction Using Last %d Years of Data (%d to %d)",
			asset, windowYears, daily.Start.Year(), targetYear),
		HistoryLabel:  fmt.Sprintf("%s Close Price (Last %d Years)", asset, windowYears),
		ForecastLabel: fmt.Sprintf("Future ARIMA Prediction (to %d)", targetYear),
	}
}

// Summary prefixes the model description with the asset header.
func Summary(asset string, m domsvc.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ARIMA Model Summary\n", asset)
	b.WriteString(m.Describe())
	return b.String()
}
