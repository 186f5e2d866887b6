// Package plot renders a goquad.SampleSet as a PNG line chart.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/njchilds90/goquad"
	chart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
)

// ErrNoSamples is returned when fewer than two finite samples remain to draw.
var ErrNoSamples = errors.New("plot: not enough finite samples to draw")

// Options controls the chart. Zero values pick the defaults below.
type Options struct {
	Title      string
	SeriesName string
	Width      int
	Height     int
}

const (
	DefaultWidth  = 800
	DefaultHeight = 480
)

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "f(x)"
	}
	if o.SeriesName == "" {
		o.SeriesName = "fun"
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Render draws samples as one line series and writes the PNG to w.
// Non-finite samples (from a singular integrand) are left out.
func Render(w io.Writer, samples goquad.SampleSet, opts Options) error {
	if samples.Len() != len(samples.Y) {
		return goquad.ErrSampleLength
	}
	opts = opts.withDefaults()
	xs, ys := finite(samples)
	if len(xs) < 2 {
		return ErrNoSamples
	}

	graph := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "x", Range: span(xs)},
		YAxis:      chart.YAxis{Name: "f(x)", Range: span(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    opts.SeriesName,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("plot: render: %w", err)
	}
	return nil
}

// RenderFile is Render into a newly created (or truncated) file.
func RenderFile(path string, samples goquad.SampleSet, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("plot: %w", cerr)
		}
	}()
	return Render(f, samples, opts)
}

func finite(s goquad.SampleSet) (xs, ys []float64) {
	for i := range s.X {
		x, y := s.X[i], s.Y[i]
		if math.IsInf(x, 0) || math.IsNaN(x) || math.IsInf(y, 0) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}

// span returns an axis range covering vs with a small margin. A flat
// series gets a unit margin so the range never collapses to zero width.
func span(vs []float64) *chart.ContinuousRange {
	lo, hi := floats.Min(vs), floats.Max(vs)
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(lo)*0.05, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
