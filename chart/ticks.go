// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
)

// Log2Axis puts axis a on a logarithmic scale with a major tick at
// every power of two, labeled as a plain number.
func Log2Axis(a *plot.Axis) {
	a.Scale = plot.LogScale{}
	a.Tick.Marker = Pow2Ticks{}
}

// Pow2Ticks marks every power of two in the axis range.
type Pow2Ticks struct{}

func (Pow2Ticks) Ticks(min, max float64) []plot.Tick {
	if min <= 0 || max < min {
		return nil
	}
	var ticks []plot.Tick
	for e := math.Floor(math.Log2(min)); ; e++ {
		v := math.Exp2(e)
		if v > max {
			break
		}
		if v >= min {
			ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}
	if len(ticks) == 0 {
		// The range lies between two powers of two.
		return []plot.Tick{{Value: min, Label: strconv.FormatFloat(min, 'g', 3, 64)}}
	}
	return ticks
}

// PercentTicks labels the default ticks of a fraction axis as
// percentages, so 0.25 is "25%".
type PercentTicks struct{}

func (PercentTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	percentLabels(ticks)
	return ticks
}

// percentLabels relabels the major ticks as percentages, using the
// fewest decimals that represent every major tick exactly.
func percentLabels(ticks []plot.Tick) {
	const maxPrec = 6
	prec := 0
	for ; prec < maxPrec; prec++ {
		scale := math.Pow10(prec)
		exact := true
		for _, t := range ticks {
			if t.Label == "" {
				continue
			}
			v := t.Value * 100 * scale
			if math.Abs(v-math.Round(v)) > 1e-6 {
				exact = false
				break
			}
		}
		if exact {
			break
		}
	}
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = strconv.FormatFloat(ticks[i].Value*100, 'f', prec, 64) + "%"
		}
	}
}

// ExpTicks labels an axis holding base-10 logarithms with their
// antilog: a major tick at every integer x, labeled "10^x".
type ExpTicks struct{}

func (ExpTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for x := math.Ceil(min); x <= max; x++ {
		ticks = append(ticks, plot.Tick{Value: x, Label: fmt.Sprintf("10^%.0f", x)})
	}
	if len(ticks) < 2 {
		// Too narrow a range for integer exponents alone.
		return plot.DefaultTicks{}.Ticks(min, max)
	}
	return ticks
}

// Colors returns n distinct colors from the ColorBrewer Set1
// palette, cycling if n exceeds its size.
func Colors(n int) []color.Color {
	const max = 9
	pal, err := brewer.GetPalette(brewer.TypeQualitative, "Set1", max)
	if err != nil {
		panic(err)
	}
	base := pal.Colors()
	cs := make([]color.Color, n)
	for i := range cs {
		cs[i] = base[i%len(base)]
	}
	return cs
}
