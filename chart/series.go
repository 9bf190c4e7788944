// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// An ErrXY is a point with asymmetric Y error bar lengths.
type ErrXY struct {
	X, Y   float64
	Lo, Hi float64
}

// ErrXYs implements plotter.XYer and plotter.YErrorer.
type ErrXYs []ErrXY

func (e ErrXYs) Len() int                        { return len(e) }
func (e ErrXYs) XY(i int) (float64, float64)     { return e[i].X, e[i].Y }
func (e ErrXYs) YError(i int) (float64, float64) { return e[i].Lo, e[i].Hi }

// Finite returns the points of xys whose coordinates are all finite.
// gonum/plot rejects NaN and infinite values.
func Finite(xys plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, 0, len(xys))
	for _, p := range xys {
		if finite(p.X) && finite(p.Y) {
			out = append(out, p)
		}
	}
	return out
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// SortXYs sorts xys by X in place and returns it.
func SortXYs(xys plotter.XYs) plotter.XYs {
	sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	return xys
}

// AddLinePoints adds a line with point markers through xys to p and
// a legend entry for it. Non-finite points are dropped and the rest
// are connected in X order.
func AddLinePoints(p *plot.Plot, name string, xys plotter.XYs, clr color.Color) error {
	xys = SortXYs(Finite(xys))
	if len(xys) == 0 {
		return nil
	}
	l, s, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Color = clr
	s.Color = clr
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(1.5)
	p.Add(l, s)
	if name != "" {
		p.Legend.Add(name, l, s)
	}
	return nil
}

// AddErrorLine adds a line through pts with black Y error bars.
// Points with a non-finite center or error are dropped.
func AddErrorLine(p *plot.Plot, name string, pts ErrXYs, clr color.Color) error {
	var keep ErrXYs
	for _, e := range pts {
		if finite(e.X) && finite(e.Y) && finite(e.Lo) && finite(e.Hi) {
			keep = append(keep, e)
		}
	}
	sort.SliceStable(keep, func(i, j int) bool { return keep[i].X < keep[j].X })
	if len(keep) == 0 {
		return nil
	}
	l, err := plotter.NewLine(keep)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Color = clr
	bars, err := plotter.NewYErrorBars(keep)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	bars.Color = color.Black
	bars.CapWidth = vg.Points(3)
	p.Add(l, bars)
	p.Legend.Add(name, l)
	return nil
}

// AddDashedLine adds a dashed line through xys in X order.
func AddDashedLine(p *plot.Plot, name string, xys plotter.XYs, clr color.Color) error {
	xys = SortXYs(Finite(xys))
	if len(xys) == 0 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	l.Color = clr
	l.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	p.Add(l)
	if name != "" {
		p.Legend.Add(name, l)
	}
	return nil
}

// A BarSeries is one bar per group, all of the same color.
type BarSeries struct {
	Name   string
	Values []float64
}

// AddGroupedBars draws one cluster of bars per group, one bar per
// series within each cluster, and labels the X axis with groups.
// Each cluster spans width; series are placed side by side and
// centered on the group.
func AddGroupedBars(p *plot.Plot, groups []string, series []BarSeries, width vg.Length) error {
	colors := Colors(len(series))
	w := width / vg.Length(len(series))
	for i, s := range series {
		if len(s.Values) != len(groups) {
			return fmt.Errorf("bar series %s has %d values for %d groups", s.Name, len(s.Values), len(groups))
		}
		b, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		b.LineStyle.Width = 0
		b.Color = colors[i]
		b.Offset = w * vg.Length(float64(i)-float64(len(series)-1)/2)
		p.Add(b)
		p.Legend.Add(s.Name, b)
	}
	p.NominalX(groups...)
	return nil
}

// A Layer is one component of a stacked area chart.
type Layer struct {
	Name   string
	Values []float64
}

// StackLayers returns, for each layer, the closed polygon between the
// cumulative sum of the layers below it and that sum plus the layer.
// All layers must have one value per x.
func StackLayers(xs []float64, layers []Layer) ([]plotter.XYs, error) {
	base := make([]float64, len(xs))
	polys := make([]plotter.XYs, len(layers))
	for i, l := range layers {
		if len(l.Values) != len(xs) {
			return nil, fmt.Errorf("layer %s has %d values for %d points", l.Name, len(l.Values), len(xs))
		}
		poly := make(plotter.XYs, 0, 2*len(xs))
		for j, x := range xs {
			poly = append(poly, plotter.XY{X: x, Y: base[j] + l.Values[j]})
		}
		for j := len(xs) - 1; j >= 0; j-- {
			poly = append(poly, plotter.XY{X: xs[j], Y: base[j]})
		}
		for j := range base {
			base[j] += l.Values[j]
		}
		polys[i] = poly
	}
	return polys, nil
}

// AddStackedAreas draws layers stacked on top of one another over xs,
// which must be in ascending order.
func AddStackedAreas(p *plot.Plot, xs []float64, layers []Layer, legend bool) error {
	polys, err := StackLayers(xs, layers)
	if err != nil {
		return err
	}
	colors := Colors(len(layers))
	for i, xys := range polys {
		poly, err := plotter.NewPolygon(xys)
		if err != nil {
			return fmt.Errorf("%s: %w", layers[i].Name, err)
		}
		poly.Color = colors[i]
		poly.LineStyle.Width = 0
		p.Add(poly)
		if legend {
			p.Legend.Add(layers[i].Name, poly)
		}
	}
	return nil
}
