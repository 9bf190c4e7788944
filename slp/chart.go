// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fpspin/benchviz/chart"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	figWidth  = 5 * vg.Inch
	figAspect = 5 / 2.7
)

func figTitle(k Key) string {
	return fmt.Sprintf("VLEN=%d %s", k.VLen, k.DType)
}

// addGbpsLines draws one line of goodput against X per group, in
// ascending group order. Runs without positive goodput cannot be
// drawn on a log scale and are dropped.
func addGbpsLines(p *plot.Plot, groups map[int][]Point) (int, error) {
	keys := sortedKeys(groups)
	colors := chart.Colors(len(keys))
	n := 0
	for i, k := range keys {
		var xys plotter.XYs
		for _, pt := range Sorted(groups[k]) {
			if pt.Gbps > 0 {
				xys = append(xys, plotter.XY{X: float64(pt.X), Y: pt.Gbps})
			}
		}
		if err := chart.AddLinePoints(p, strconv.Itoa(k), xys, colors[i]); err != nil {
			return 0, err
		}
		n += len(xys)
	}
	return n, nil
}

func log2Axes(p *plot.Plot) {
	chart.Log2Axis(&p.X)
	chart.Log2Axis(&p.Y)
}

// PredictFigure plots predict goodput against packet size for each
// packet number, and against packet number for each packet size, in
// two panels sharing the Y axis.
func PredictFigure(k Key, r *Result) (*chart.Figure, error) {
	f := chart.NewFigure(figWidth, figAspect, 1, 2)
	f.Title = figTitle(k)
	left, right := f.At(0, 0), f.At(0, 1)
	left.X.Label.Text = "packet size/bytes"
	left.Y.Label.Text = "Gbps"
	right.X.Label.Text = "packet number"

	n, err := addGbpsLines(left, r.Predict.ByNumber)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no predict runs for %s", k)
	}
	if _, err := addGbpsLines(right, r.Predict.BySize); err != nil {
		return nil, err
	}
	log2Axes(left)
	log2Axes(right)
	f.ShareY()
	return f, nil
}

// FitName returns the title and file name prefix of the fit figure
// grouped by packet number (byNumber) or by packet size.
func FitName(byNumber bool) string {
	if byNumber {
		return "Fit-#packets"
	}
	return "Fit-packet size"
}

// FitFigure plots fit goodput against packet size for each packet
// number if byNumber is set, or against packet number for each packet
// size otherwise. name is FitName(byNumber).
func FitFigure(k Key, r *Result, byNumber bool) (name string, f *chart.Figure, err error) {
	name, xlabel, groups := FitName(byNumber), "packet number", r.Fit.BySize
	if byNumber {
		xlabel, groups = "packet size/bytes", r.Fit.ByNumber
	}
	f = chart.NewFigure(figWidth, figAspect, 1, 1)
	p := f.At(0, 0)
	p.Title.Text = fmt.Sprintf("%s | %s", name, figTitle(k))
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Gbps"
	n, err := addGbpsLines(p, groups)
	if err != nil {
		return "", nil, err
	}
	if n == 0 {
		return "", nil, fmt.Errorf("no fit runs for %s", k)
	}
	log2Axes(p)
	return name, f, nil
}

// SpinFigure plots, per number of handler units taking the model
// lock, the distribution of per-unit spin ratios (top) and of lock
// wait durations on a log scale split by locality (bottom).
func SpinFigure(k Key, r *Result) (*chart.Figure, error) {
	seen := make(map[int]bool)
	for n, ratios := range r.SpinRatios {
		if len(ratios) > 0 {
			seen[n] = true
		}
	}
	for _, s := range r.Spins {
		seen[s.NHPUs] = true
	}
	nhpus := sortedKeys(seen)
	if len(nhpus) == 0 {
		return nil, fmt.Errorf("no lock waits for %s", k)
	}
	cats := make([]string, len(nhpus))
	idx := make(map[int]int)
	for i, n := range nhpus {
		cats[i] = strconv.Itoa(n)
		idx[n] = i
	}

	ratios := make([][]float64, len(nhpus))
	for n, rs := range r.SpinRatios {
		for _, sr := range rs {
			ratios[idx[n]] = append(ratios[idx[n]], sr.Ratio)
		}
	}
	local := make([][]float64, len(nhpus))
	remote := make([][]float64, len(nhpus))
	for _, s := range r.Spins {
		if s.Dur <= 0 {
			continue
		}
		d := math.Log10(s.Dur)
		if s.Remote {
			remote[idx[s.NHPUs]] = append(remote[idx[s.NHPUs]], d)
		} else {
			local[idx[s.NHPUs]] = append(local[idx[s.NHPUs]], d)
		}
	}

	f := chart.NewFigure(figWidth, 5.0/4, 2, 1)
	f.Title = figTitle(k)
	top, bottom := f.At(0, 0), f.At(1, 0)
	top.Y.Label.Text = "spin_ratio"
	bottom.Y.Label.Text = "dur"
	bottom.X.Label.Text = "nhpus"

	if err := chart.AddViolins(top, cats, []chart.ViolinSeries{{Samples: ratios}}); err != nil {
		return nil, err
	}
	top.Y.Tick.Marker = chart.PercentTicks{}
	err := chart.AddViolins(bottom, cats, []chart.ViolinSeries{
		{Name: "local", Samples: local},
		{Name: "remote", Samples: remote},
	})
	if err != nil {
		return nil, err
	}
	bottom.Y.Tick.Marker = chart.ExpTicks{}
	bottom.Legend.Top = true
	f.ShareX()
	return f, nil
}

// SummaryFigure plots the highest goodput of every (vlen, dtype) pair
// as bars grouped by dtype, one bar per vector length.
func SummaryFigure(sw *Sweep, maxGbps map[Key]float64) (*chart.Figure, error) {
	groups := make([]string, len(sw.DTypes))
	for i, d := range sw.DTypes {
		groups[i] = d.Name
	}
	var series []chart.BarSeries
	for _, v := range sw.VLens {
		s := chart.BarSeries{Name: fmt.Sprintf("VLEN=%d", v)}
		for _, d := range sw.DTypes {
			s.Values = append(s.Values, maxGbps[Key{v, d.Name}])
		}
		series = append(series, s)
	}
	f := chart.NewFigure(figWidth, figAspect, 1, 1)
	p := f.At(0, 0)
	p.Y.Label.Text = "Throughput/Gbps"
	p.Legend.Top = true
	p.Legend.Left = true
	if err := chart.AddGroupedBars(p, groups, series, vg.Points(45)); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteSummary writes the highest goodput of every key, one line per
// key in sweep order.
func WriteSummary(w io.Writer, keys []Key, maxGbps map[Key]float64) error {
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "VLEN=%d\tDTYPE=%s\t%v Gbps\n", k.VLen, k.DType, maxGbps[k]); err != nil {
			return err
		}
	}
	return nil
}
