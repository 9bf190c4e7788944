// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slmp

import (
	"fmt"
	"image/color"

	"github.com/fpspin/benchviz/chart"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// FigureWidth is the width of every SLMP figure.
const FigureWidth = 5.125 * vg.Inch

// TputFigure plots median throughput against file length, one line per
// kind, with the confidence interval as error bars.
func TputFigure(ds *Dataset) (*chart.Figure, error) {
	f := chart.NewFigure(FigureWidth, 5.0/3, 1, 1)
	p := f.At(0, 0)
	p.X.Label.Text = "File Length (KB)"
	p.Y.Label.Text = "Throughput (Mbps)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	colors := chart.Colors(len(Kinds))
	for i, k := range Kinds {
		var pts chart.ErrXYs
		for _, r := range ds.ByKind(k) {
			pts = append(pts, chart.ErrXY{X: r.LengthKB(), Y: r.Tput, Lo: r.TputLo, Hi: r.TputHi})
		}
		if len(pts) == 0 {
			continue
		}
		if err := chart.AddErrorLine(p, k.String(), pts, colors[i]); err != nil {
			return nil, fmt.Errorf("throughput of %s: %w", k, err)
		}
	}
	return f, nil
}

// BreakdownFigure plots the handler time components of every trial as
// stacked areas against file length, one panel per kind, with the
// total handler time as a dashed line.
func BreakdownFigure(ds *Dataset) (*chart.Figure, error) {
	var kinds []Kind
	for _, k := range Kinds {
		if len(ds.ByKind(k)) > 0 {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no trials to plot")
	}

	f := chart.NewFigure(FigureWidth, 5.0/3, 1, len(kinds))
	for i, k := range kinds {
		rows := ds.ByKind(k)
		p := f.At(0, i)
		p.Title.Text = k.String()
		p.X.Label.Text = "File Length (KB)"
		if i == 0 {
			p.Y.Label.Text = "Handler Time (µs)"
		}
		chart.Log2Axis(&p.X)

		xs := make([]float64, len(rows))
		layers := make([]chart.Layer, len(ComponentNames))
		for j, name := range ComponentNames {
			layers[j].Name = name
			layers[j].Values = make([]float64, len(rows))
		}
		for j, r := range rows {
			xs[j] = r.LengthKB()
			for c, v := range r.Components() {
				layers[c].Values[j] = v
			}
		}
		if err := chart.AddStackedAreas(p, xs, layers, i == 0); err != nil {
			return nil, fmt.Errorf("breakdown of %s: %w", k, err)
		}

		total := make(plotter.XYs, len(rows))
		for j, r := range rows {
			total[j] = plotter.XY{X: xs[j], Y: r.Cycles}
		}
		name := ""
		if i == 0 {
			name = "total"
			p.Legend.Top = true
			p.Legend.Left = true
		}
		if err := chart.AddDashedLine(p, name, total, color.Black); err != nil {
			return nil, fmt.Errorf("breakdown of %s: %w", k, err)
		}
	}
	f.ShareY()
	return f, nil
}
