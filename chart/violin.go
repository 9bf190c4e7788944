// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"errors"
	"image/color"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// violinPoints is the number of points at which a violin's density is
// evaluated.
const violinPoints = 100

// A Violin plots the kernel density estimate of a sample as a shape
// mirrored around X. The density is cut at the sample bounds and
// scaled so that its widest point is Width data units across.
type Violin struct {
	// X is the center of the violin in data coordinates.
	X float64

	// Width is the maximum width of the violin in data units.
	Width float64

	// Color fills the violin.
	Color color.Color

	// LineStyle outlines the violin.
	draw.LineStyle

	// MedianStyle is the style of the line marking the median.
	MedianStyle draw.LineStyle

	ys, dens []float64 // density dens[i] at ys[i], max 1
	median   float64
}

// NewViolin returns a Violin of values centered at x. Values that are
// all equal produce a flat bar.
func NewViolin(values []float64, x, width float64) (*Violin, error) {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		return nil, errors.New("violin of empty sample")
	}
	sort.Float64s(xs)
	sample := stats.Sample{Xs: xs, Sorted: true}

	v := &Violin{
		X:           x,
		Width:       width,
		Color:       color.Gray{0xa0},
		LineStyle:   draw.LineStyle{Color: color.Gray{0x40}, Width: vg.Points(0.5)},
		MedianStyle: draw.LineStyle{Color: color.White, Width: vg.Points(1.5)},
		median:      sample.Quantile(0.5),
	}
	lo, hi := sample.Bounds()
	bw := stats.BandwidthScott(sample)
	if lo == hi || bw == 0 {
		v.ys, v.dens = []float64{lo, hi}, []float64{1, 1}
		return v, nil
	}
	kde := &stats.KDE{Sample: sample, Bandwidth: bw}
	v.ys = vec.Linspace(lo, hi, violinPoints)
	v.dens = vec.Map(kde.PDF, v.ys)
	_, peak := stats.Bounds(v.dens)
	for i := range v.dens {
		v.dens[i] /= peak
	}
	return v, nil
}

// outline returns the violin's boundary in data coordinates, right
// side bottom to top, then left side top to bottom.
func (v *Violin) outline() (xs, ys []float64) {
	n := len(v.ys)
	xs = make([]float64, 2*n)
	ys = make([]float64, 2*n)
	for i, y := range v.ys {
		d := v.dens[i] * v.Width / 2
		xs[i], ys[i] = v.X+d, y
		xs[2*n-1-i], ys[2*n-1-i] = v.X-d, y
	}
	return xs, ys
}

// Plot implements the plot.Plotter interface.
func (v *Violin) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	xs, ys := v.outline()
	pts := make([]vg.Point, len(xs))
	for i := range xs {
		pts[i] = vg.Point{X: trX(xs[i]), Y: trY(ys[i])}
	}
	c.FillPolygon(v.Color, c.ClipPolygonXY(pts))
	if v.LineStyle.Width > 0 {
		c.StrokeLines(v.LineStyle, c.ClipLinesXY(append(pts, pts[0]))...)
	}

	q := v.Width / 8
	med := c.ClipLinesXY([]vg.Point{
		{X: trX(v.X - q), Y: trY(v.median)},
		{X: trX(v.X + q), Y: trY(v.median)},
	})
	c.StrokeLines(v.MedianStyle, med...)
}

// DataRange implements the plot.DataRanger interface.
func (v *Violin) DataRange() (xmin, xmax, ymin, ymax float64) {
	return v.X - v.Width/2, v.X + v.Width/2, v.ys[0], v.ys[len(v.ys)-1]
}

// Thumbnail implements the plot.Thumbnailer interface.
func (v *Violin) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(v.Color, c.ClipPolygonY(pts))
}

// A ViolinSeries is one sample per category. Empty samples are not
// drawn.
type ViolinSeries struct {
	Name    string
	Samples [][]float64
}

// AddViolins draws one violin per category and series. Categories are
// placed at 0, 1, ... and labeled with cats; multiple series are
// dodged side by side within a category.
func AddViolins(p *plot.Plot, cats []string, series []ViolinSeries) error {
	const slot = 0.8
	colors := Colors(len(series))
	w := slot / float64(len(series))
	for i, s := range series {
		var thumb *Violin
		for j, sample := range s.Samples {
			if len(sample) == 0 {
				continue
			}
			x := float64(j) - slot/2 + w*(float64(i)+0.5)
			v, err := NewViolin(sample, x, w*0.9)
			if err != nil {
				return err
			}
			if len(series) > 1 {
				v.Color = colors[i]
			}
			p.Add(v)
			thumb = v
		}
		if thumb != nil && s.Name != "" {
			p.Legend.Add(s.Name, thumb)
		}
	}
	p.NominalX(cats...)
	return nil
}
