package usecase

import (
	"fmt"
	"math"
	"sort"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/config"
	"PriceCast/pkg/util"
)

// SeriesPreparer turns raw rows into the trailing daily window used for fitting.
type SeriesPreparer struct {
	windowYears int
}

func NewSeriesPreparer(cfg *config.Config) *SeriesPreparer {
	return &SeriesPreparer{windowYears: cfg.Forecast.WindowYears}
}

// Prepare parses dates, keeps the trailing window and reindexes it to every calendar day.
func (p *SeriesPreparer) Prepare(raw models.RawSeries) (models.DailySeries, error) {
	points, err := ParseDates(raw)
	if err != nil {
		return models.DailySeries{}, err
	}
	return Resample(Window(points, p.windowYears)), nil
}

// ParseDates converts every row; one unreadable date rejects the whole series.
func ParseDates(raw models.RawSeries) ([]models.PricePoint, error) {
	if raw.Len() == 0 {
		return nil, fmt.Errorf("%w: no data rows", models.ErrSchema)
	}
	out := make([]models.PricePoint, 0, raw.Len())
	for _, r := range raw.Rows {
		d, ok := util.ParseDate(r.Date)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: unrecognised date %q", models.ErrParse, r.Row, r.Date)
		}
		out = append(out, models.PricePoint{Row: r.Row, Date: d, Close: r.Close})
	}
	return out, nil
}

// Window keeps points dated on or after the latest date minus the given calendar years.
func Window(points []models.PricePoint, years int) []models.PricePoint {
	if len(points) == 0 {
		return nil
	}
	latest := points[0].Date
	for _, pt := range points[1:] {
		if pt.Date.After(latest) {
			latest = pt.Date
		}
	}
	cutoff := util.SubtractYears(latest, years)

	out := make([]models.PricePoint, 0, len(points))
	for _, pt := range points {
		if !pt.Date.Before(cutoff) {
			out = append(out, pt)
		}
	}
	return out
}

// Resample sorts by date and reindexes to a gap-free daily calendar. Missing
// days are NaN and, for repeated dates, the row appearing last in the file wins.
func Resample(points []models.PricePoint) models.DailySeries {
	if len(points) == 0 {
		return models.DailySeries{}
	}
	sorted := make([]models.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	start := sorted[0].Date
	n := util.DaysBetween(start, sorted[len(sorted)-1].Date) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	for _, pt := range sorted {
		values[util.DaysBetween(start, pt.Date)] = pt.Close
	}
	return models.DailySeries{Start: start, Values: values}
}
