// Package charts renders dashboard datasets as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned for a spec with no labels or no series.
var ErrNoData = errors.New("nothing to plot")

// Style picks the chart type.
type Style int

const (
	// Bars draws the first series as a bar chart.
	Bars Style = iota
	// Lines draws every series as a line over the labels.
	Lines
)

// Series is one named line or bar set, parallel to Spec.Labels.
type Series struct {
	Name   string
	Values []float64
}

// Spec describes one chart.
type Spec struct {
	Title   string
	Labels  []string
	Series  []Series
	Style   Style
	Percent bool
}

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorOrange,
	chart.ColorCyan,
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	chart.ColorLightGray,
	{R: 188, G: 189, B: 34, A: 255},
}

// seriesColor honours the conventional colours of the comparison chart.
func seriesColor(name string, i int) drawing.Color {
	switch name {
	case "Ingresos":
		return chart.ColorGreen
	case "Gastos":
		return chart.ColorRed
	case "Utilidad":
		return chart.ColorBlue
	}
	return palette[i%len(palette)]
}

// Generator renders specs at a fixed size.
type Generator struct {
	Width  int
	Height int
}

func NewGenerator() *Generator {
	return &Generator{Width: 1200, Height: 600}
}

// Render draws spec as a PNG.
func (g *Generator) Render(spec Spec) ([]byte, error) {
	if len(spec.Labels) == 0 || len(spec.Series) == 0 {
		return nil, ErrNoData
	}
	for _, s := range spec.Series {
		if len(s.Values) != len(spec.Labels) {
			return nil, fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(spec.Labels))
		}
	}

	buffer := bytes.NewBuffer([]byte{})
	var err error
	if spec.Style == Bars && len(spec.Series) == 1 {
		err = g.barChart(spec).Render(chart.PNG, buffer)
	} else {
		graph := g.lineChart(spec)
		err = graph.Render(chart.PNG, buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", spec.Title, err)
	}
	return buffer.Bytes(), nil
}

func (g *Generator) background() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    50,
			Left:   50,
			Right:  50,
			Bottom: 50,
		},
		FillColor: chart.ColorWhite,
	}
}

func (g *Generator) barChart(spec Spec) chart.BarChart {
	values := spec.Series[0].Values
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		color := chart.ColorBlue
		if v < 0 {
			color = chart.ColorRed
		}
		bars[i] = chart.Value{
			Label: spec.Labels[i],
			Value: v,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
			},
		}
	}

	spacing := 10
	width := (g.Width-200)/len(bars) - spacing
	if width < 4 {
		width = 4
	}
	if width > 80 {
		width = 80
	}

	return chart.BarChart{
		Title: spec.Title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:      g.Width,
		Height:     g.Height,
		BarWidth:   width,
		BarSpacing: spacing,
		Background: g.background(),
		XAxis: chart.Style{
			FontSize:  10,
			FontColor: chart.ColorBlack,
		},
		YAxis: chart.YAxis{
			Range:          valueRange(spec.Series),
			ValueFormatter: formatter(spec.Percent),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}
}

func (g *Generator) lineChart(spec Spec) *chart.Chart {
	xs := make([]float64, len(spec.Labels))
	ticks := make([]chart.Tick, len(spec.Labels))
	for i, l := range spec.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	if len(ticks) == 1 {
		// the ticks set the x range, and one tick has no width
		ticks = []chart.Tick{{Value: -1}, ticks[0], {Value: 1}}
	}

	series := make([]chart.Series, len(spec.Series))
	for i, s := range spec.Series {
		color := seriesColor(s.Name, i)
		series[i] = chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		}
	}

	graph := &chart.Chart{
		Title:      spec.Title,
		Width:      g.Width,
		Height:     g.Height,
		Background: g.background(),
		XAxis: chart.XAxis{
			Ticks: ticks,
			Style: chart.Style{
				FontSize:  10,
				FontColor: chart.ColorBlack,
			},
		},
		YAxis: chart.YAxis{
			Range:          valueRange(spec.Series),
			ValueFormatter: formatter(spec.Percent),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(graph, chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		}),
	}
	return graph
}

// valueRange spans every value plus zero, and never collapses to a point.
func valueRange(series []Series) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo == 0 {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if lo < 0 {
		lo -= pad
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + pad}
}

func formatter(percent bool) chart.ValueFormatter {
	if percent {
		return func(v interface{}) string {
			return fmt.Sprintf("%.1f%%", v.(float64))
		}
	}
	return func(v interface{}) string {
		return fmt.Sprintf("$%.0f", v.(float64))
	}
}
