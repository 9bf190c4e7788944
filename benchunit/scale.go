// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"fmt"
	"math"
	"strconv"
)

type prefix struct {
	name  string
	value float64
}

// Largest first. Binary units stop at the plain byte.
var (
	decimalScale = []prefix{{"T", 1e12}, {"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"", 1}, {"m", 1e-3}, {"µ", 1e-6}, {"n", 1e-9}}
	binaryScale  = []prefix{{"Ti", 1 << 40}, {"Gi", 1 << 30}, {"Mi", 1 << 20}, {"Ki", 1 << 10}, {"", 1}}
)

// pick returns the largest prefix that leaves at least one integer
// digit in v after rounding, and the decimals that show four
// significant digits under it.
func pick(v float64, cls Class) (prefix, int) {
	scale := decimalScale
	if cls == Binary {
		scale = binaryScale
	}
	if v == 0 {
		return prefix{"", 1}, 3
	}
	for _, p := range scale {
		switch s := v / p.value; {
		case s >= 99.995:
			return p, 1
		case s >= 9.9995:
			return p, 2
		case s >= 0.99995:
			return p, 3
		}
	}
	// Below the smallest prefix, add decimals, up to ten.
	last := scale[len(scale)-1]
	s, prec := v/last.value, 4
	for t := 0.099995; s < t && prec < 10; t /= 10 {
		prec++
	}
	return last, prec
}

// Format formats val measured in unit, rescaling any prefix the unit
// already carries. For example, Format(1500, "Mbps") returns
// "1.500 Gbps" and Format(2048, "B") returns "2.000 KiB".
// NaN and infinite values are printed as is.
func Format(val float64, unit string) string {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Sprintf("%v %s", val, unit)
	}
	f, base := SplitPrefix(unit)
	val *= f
	p, prec := pick(math.Abs(val), ClassOf(base))
	return strconv.FormatFloat(val/p.value, 'f', prec, 64) + " " + p.name + base
}
