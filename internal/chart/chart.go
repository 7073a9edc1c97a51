// Package chart renders aggregates into SVG charts and HTML fragments.
package chart

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/lucasb-eyer/go-colorful"
)

// NoData is shown instead of a chart when there is nothing to plot.
const NoData = "No data"

const (
	defaultWidth  = 640
	defaultHeight = 320
	barWidth      = 28
	barSpacing    = 12
)

var (
	accent      = mustHex("#4c78a8")
	accentLight = mustHex("#9ecae9")
)

// Rendered is either an inline SVG or a placeholder message.
type Rendered struct {
	Title       string
	SVG         template.HTML
	Placeholder string
}

// Empty reports whether the chart was replaced by a placeholder.
func (r Rendered) Empty() bool {
	return r.SVG == ""
}

func placeholder(title, msg string) Rendered {
	return Rendered{Title: title, Placeholder: msg}
}

// Bar is one labelled bar.
type Bar struct {
	Label string
	Value float64
}

// BarChart renders bars as SVG. Empty input yields a NoData placeholder.
func BarChart(title string, bars []Bar) Rendered {
	if len(bars) == 0 {
		return placeholder(title, NoData)
	}
	maxVal := 0.0
	for _, b := range bars {
		maxVal = math.Max(maxVal, b.Value)
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	values := make([]gochart.Value, 0, len(bars))
	for i, b := range bars {
		// Fade the fill from the first bar to the last.
		t := 0.0
		if len(bars) > 1 {
			t = float64(i) / float64(len(bars)-1)
		}
		values = append(values, gochart.Value{
			Label: b.Label,
			Value: math.Max(b.Value, 0),
			Style: gochart.Style{
				FillColor:   toDrawing(accent.BlendLab(accentLight, t)),
				StrokeColor: toDrawing(accent),
				StrokeWidth: 1,
			},
		})
	}
	width := len(bars)*(barWidth+barSpacing) + 120
	if width < defaultWidth {
		width = defaultWidth
	}
	bc := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     defaultHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: maxVal * 1.1},
		},
		Bars: values,
	}
	var buf bytes.Buffer
	if err := bc.Render(gochart.SVG, &buf); err != nil {
		return placeholder(title, fmt.Sprintf("Chart unavailable: %v", err))
	}
	return Rendered{Title: title, SVG: template.HTML(buf.String())}
}

// LineChart renders a score series and an optional smoothed series. The x
// axis is the play number starting at 1.
func LineChart(title string, values, smoothed []float64) Rendered {
	if len(values) == 0 {
		return placeholder(title, NoData)
	}
	xs := make([]float64, len(values))
	for i := range values {
		xs[i] = float64(i + 1)
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range append(append([]float64{}, values...), smoothed...) {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	pad := (maxVal - minVal) * 0.1
	if pad == 0 {
		pad = 1
	}
	xMax := float64(len(values))
	if xMax < 2 {
		xMax = 2
	}

	series := []gochart.Series{
		gochart.ContinuousSeries{
			Name:    "Score",
			XValues: xs,
			YValues: values,
			Style: gochart.Style{
				StrokeColor: toDrawing(accent),
				StrokeWidth: 2,
				DotColor:    toDrawing(accent),
				DotWidth:    3,
			},
		},
	}
	if len(smoothed) == len(values) {
		series = append(series, gochart.ContinuousSeries{
			Name:    "Moving average",
			XValues: xs,
			YValues: smoothed,
			Style: gochart.Style{
				StrokeColor:     toDrawing(mustHex("#f58518")),
				StrokeWidth:     2,
				StrokeDashArray: []float64{5, 3},
			},
		})
	}
	ch := gochart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  "Play",
			Range: &gochart.ContinuousRange{Min: 1, Max: xMax},
		},
		YAxis: gochart.YAxis{
			Name:  "Score",
			Range: &gochart.ContinuousRange{Min: minVal - pad, Max: maxVal + pad},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(gochart.SVG, &buf); err != nil {
		return placeholder(title, fmt.Sprintf("Chart unavailable: %v", err))
	}
	return Rendered{Title: title, SVG: template.HTML(buf.String())}
}

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

func toDrawing(c colorful.Color) drawing.Color {
	r, g, b := c.Clamped().RGB255()
	return drawing.Color{R: r, G: g, B: b, A: 255}
}
