// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart holds the gonum/plot helpers shared by the SLMP and
// SLP reports: multi-panel figures, series constructors, violin plots
// and tick formatters.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// DPI is the resolution of PNG output.
const DPI = 300

// Formats lists the supported output formats.
var Formats = []string{"pdf", "png", "svg"}

// A Figure is a grid of plots drawn onto one page.
type Figure struct {
	Width, Height vg.Length

	// Title, if set, is drawn above all panels.
	Title string

	// Plots is indexed by row, then column.
	Plots [][]*plot.Plot
}

// NewFigure returns a figure width wide with the given width:height
// aspect ratio and a rows×cols grid of empty plots.
func NewFigure(width vg.Length, aspect float64, rows, cols int) *Figure {
	f := &Figure{Width: width, Height: vg.Length(float64(width) / aspect)}
	f.Plots = make([][]*plot.Plot, rows)
	for r := range f.Plots {
		f.Plots[r] = make([]*plot.Plot, cols)
		for c := range f.Plots[r] {
			p := plot.New()
			p.Title.TextStyle.Font.Size = 9
			p.X.Label.TextStyle.Font.Size = 8
			p.Y.Label.TextStyle.Font.Size = 8
			p.X.Tick.Label.Font.Size = 7
			p.Y.Tick.Label.Font.Size = 7
			p.Legend.TextStyle.Font.Size = 7
			f.Plots[r][c] = p
		}
	}
	return f
}

// At returns the plot in row r, column c.
func (f *Figure) At(r, c int) *plot.Plot {
	return f.Plots[r][c]
}

// ShareY gives every panel the union of their Y ranges. It must be
// called after all data has been added.
func (f *Figure) ShareY() {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range f.Plots {
		for _, p := range row {
			lo, hi = math.Min(lo, p.Y.Min), math.Max(hi, p.Y.Max)
		}
	}
	for _, row := range f.Plots {
		for _, p := range row {
			p.Y.Min, p.Y.Max = lo, hi
		}
	}
}

// ShareX gives every panel the union of their X ranges.
func (f *Figure) ShareX() {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range f.Plots {
		for _, p := range row {
			lo, hi = math.Min(lo, p.X.Min), math.Max(hi, p.X.Max)
		}
	}
	for _, row := range f.Plots {
		for _, p := range row {
			p.X.Min, p.X.Max = lo, hi
		}
	}
}

// widenLog widens a single-valued log axis range by a factor of two
// each way. A linear widening could reach zero.
func widenLog(a *plot.Axis) {
	if _, ok := a.Scale.(plot.LogScale); ok && a.Min == a.Max && a.Min > 0 {
		a.Min /= 2
		a.Max *= 2
	}
}

func newCanvas(w, h vg.Length, format string) (vg.CanvasWriterTo, error) {
	switch format {
	case "pdf":
		return vgpdf.New(w, h), nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "png":
		return vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h),
			vgimg.UseDPI(DPI), vgimg.UseBackgroundColor(color.White))}, nil
	}
	return nil, fmt.Errorf("unsupported chart format %q", format)
}

// WriteTo renders f in the given format ("pdf", "png" or "svg") to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	can, err := newCanvas(f.Width, f.Height, format)
	if err != nil {
		return 0, err
	}
	dc := draw.New(can)
	if f.Title != "" {
		sty := f.Plots[0][0].Title.TextStyle
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YTop
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y}, f.Title)
		dc.Max.Y -= sty.Height(f.Title) + vg.Points(4)
	}

	for _, row := range f.Plots {
		for _, p := range row {
			widenLog(&p.X)
			widenLog(&p.Y)
		}
	}
	rows, cols := len(f.Plots), len(f.Plots[0])
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 2,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter,
		PadBottom: vg.Millimeter,
		PadLeft:   vg.Millimeter,
		PadRight:  vg.Millimeter,
	}
	canvases := plot.Align(f.Plots, tiles, dc)
	for r := range f.Plots {
		for c, p := range f.Plots[r] {
			p.Draw(canvases[r][c])
		}
	}
	return can.WriteTo(w)
}

// Save writes f to dir/name.format, creating dir if needed, and
// returns the path written.
func (f *Figure) Save(dir, name, format string) (string, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"."+format)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteTo(out, format); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}
