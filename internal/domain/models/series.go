package models

import (
	"math"
	"time"
)

// Day is the calendar step of every prepared series.
const Day = 24 * time.Hour

// PricePoint is a single (date, close) row as loaded from the upload.
type PricePoint struct {
	Row   int // 1-based data row in the source file
	Date  time.Time
	Close float64 // NaN when the source cell was empty
}

// RawRow is an unparsed data row; dates are parsed by the preparer.
type RawRow struct {
	Row   int
	Date  string
	Close float64
}

// RawSeries is the uploaded table restricted to the Date and Close columns, in file order.
type RawSeries struct {
	Rows []RawRow
}

// Len returns the number of data rows.
func (s RawSeries) Len() int { return len(s.Rows) }

// DailySeries is a contiguous daily index starting at Start. Missing days hold NaN.
type DailySeries struct {
	Start  time.Time
	Values []float64
}

// Len returns the number of calendar days covered.
func (s DailySeries) Len() int { return len(s.Values) }

// DateAt returns the calendar date of entry i.
func (s DailySeries) DateAt(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// End returns the last date of the series. Zero time for an empty series.
func (s DailySeries) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.DateAt(len(s.Values) - 1)
}

// Dates materializes the daily index.
func (s DailySeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Values))
	for i := range s.Values {
		out[i] = s.DateAt(i)
	}
	return out
}

// Observed counts the entries that carry a value.
func (s DailySeries) Observed() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Horizon is the number of future daily steps and their dates.
type Horizon struct {
	Count int
	Dates []time.Time
}

// ForecastSeries pairs each horizon date with a predicted price.
type ForecastSeries struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of predicted steps.
func (f ForecastSeries) Len() int { return len(f.Values) }

// ViewPoint is one row of the combined view. Exactly one of Historical or Predicted is set
// for dates before and after the forecast start respectively; the other is NaN.
type ViewPoint struct {
	Date       time.Time
	Historical float64
	Predicted  float64
}

// CombinedView unites history and forecast on a single date axis.
type CombinedView struct {
	Points        []ViewPoint
	ForecastStart time.Time
}

// Start returns the first date of the view.
func (v CombinedView) Start() time.Time {
	if len(v.Points) == 0 {
		return time.Time{}
	}
	return v.Points[0].Date
}

// End returns the last date of the view.
func (v CombinedView) End() time.Time {
	if len(v.Points) == 0 {
		return time.Time{}
	}
	return v.Points[len(v.Points)-1].Date
}
