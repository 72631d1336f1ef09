package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	historyColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forecastColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	errEmptyView = errors.New("nothing to draw")
)

// Renderer draws combined views as PNG line charts.
type Renderer struct {
	width  vg.Length
	height vg.Length
}

func NewRenderer(widthInches, heightInches float64) *Renderer {
	return &Renderer{
		width:  vg.Length(widthInches) * vg.Inch,
		height: vg.Length(heightInches) * vg.Inch,
	}
}

func NewDomainRenderer(cfg *config.Config) domsvc.ChartRenderer {
	return NewRenderer(cfg.Chart.WidthInches, cfg.Chart.HeightInches)
}

var _ domsvc.ChartRenderer = (*Renderer)(nil)

// Render plots history as a solid line broken at missing days and the forecast as a dashed line.
func (r *Renderer) Render(view models.CombinedView, labels domsvc.ChartLabels) ([]byte, error) {
	if len(view.Points) == 0 {
		return nil, errEmptyView
	}

	p := plot.New()
	p.Title.Text = labels.Title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Min = unix(view.Start())
	p.X.Max = unix(view.End())
	p.X.Tick.Marker = calendarTicks{}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	legend := false
	for _, seg := range historySegments(view.Points) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return nil, fmt.Errorf("history line: %w", err)
		}
		line.LineStyle.Color = historyColor
		line.LineStyle.Width = vg.Points(1.2)
		p.Add(line)
		if !legend {
			p.Legend.Add(labels.HistoryLabel, line)
			legend = true
		}
	}

	if fc := forecastPoints(view.Points); len(fc) > 0 {
		line, err := plotter.NewLine(fc)
		if err != nil {
			return nil, fmt.Errorf("forecast line: %w", err)
		}
		line.LineStyle.Color = forecastColor
		line.LineStyle.Width = vg.Points(1.2)
		line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(line)
		p.Legend.Add(labels.ForecastLabel, line)
	}

	canvas := vgimg.New(r.width, r.height)
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// historySegments splits the observed history into runs of consecutive non-NaN values.
func historySegments(points []models.ViewPoint) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for _, pt := range points {
		if math.IsNaN(pt.Historical) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: unix(pt.Date), Y: pt.Historical})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func forecastPoints(points []models.ViewPoint) plotter.XYs {
	var out plotter.XYs
	for _, pt := range points {
		if !math.IsNaN(pt.Predicted) {
			out = append(out, plotter.XY{X: unix(pt.Date), Y: pt.Predicted})
		}
	}
	return out
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

// calendarTicks puts a labelled major tick on every January and a minor tick on every other month.
type calendarTicks struct{}

func (calendarTicks) Ticks(min, max float64) []plot.Tick {
	start := time.Unix(int64(min), 0).UTC()
	end := time.Unix(int64(max), 0).UTC()

	t := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if t.Before(start) {
		t = t.AddDate(0, 1, 0)
	}

	var ticks []plot.Tick
	for ; !t.After(end); t = t.AddDate(0, 1, 0) {
		tick := plot.Tick{Value: unix(t)}
		if t.Month() == time.January {
			tick.Label = t.Format("2006-01")
		}
		ticks = append(ticks, tick)
	}
	return ticks
}
