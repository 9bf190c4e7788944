// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchunit formats measurements in throughput, time and size
// units with SI or binary prefixes.
package benchunit

import (
	"fmt"
	"strings"
	"unicode"
)

// A Class specifies what class of unit prefixes are in use.
type Class int

const (
	// Decimal indicates values of a given unit should be scaled
	// by powers of 1000. Decimal units use the International
	// System of Units SI prefixes, such as "k", and "M".
	Decimal Class = iota
	// Binary indicates values of a given unit should be scaled by
	// powers of 1024. Binary units use the International
	// Electrotechnical Commission (IEC) binary prefixes, such as
	// "Ki" and "Mi".
	Binary
)

func (c Class) String() string {
	switch c {
	case Decimal:
		return "Decimal"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// ClassOf returns the Class of unit. If unit contains some measure of
// bytes in the numerator, this is Binary. Otherwise, it is Decimal.
// Bits ("b", "bps") are always Decimal, since link rates are quoted
// in powers of ten.
func ClassOf(unit string) Class {
	p := newParser(unit)
	for p.next() {
		if (p.tok == "B" || p.tok == "bytes") && !p.denom {
			return Binary
		}
	}
	return Decimal
}

// siPrefixes maps SI prefixes to their factors. Both "u" and "µ"
// spell micro.
var siPrefixes = map[string]float64{
	"T": 1e12,
	"G": 1e9,
	"M": 1e6,
	"k": 1e3,
	"K": 1e3,
	"m": 1e-3,
	"u": 1e-6,
	"µ": 1e-6,
	"n": 1e-9,
	"p": 1e-12,
}

// baseUnits are the units SplitPrefix recognizes after a prefix.
var baseUnits = map[string]bool{
	"bps":  true,
	"b":    true,
	"B":    true,
	"s":    true,
	"ops":  true,
	"IOPS": true,
	"Hz":   true,
}

// SplitPrefix splits a prefixed unit such as "Mbps" or "us" into its
// multiplier and base unit ("bps", 1e6). Units without a recognized
// prefix are returned unchanged with factor 1.
func SplitPrefix(unit string) (factor float64, base string) {
	if baseUnits[unit] {
		return 1, unit
	}
	for prefix, f := range siPrefixes {
		if rest, ok := strings.CutPrefix(unit, prefix); ok && baseUnits[rest] {
			return f, rest
		}
	}
	return 1, unit
}

type parser struct {
	rest string // unparsed unit
	rpos int    // byte consumed from original unit

	// Current token
	tok   string
	pos   int  // byte offset of tok in original unit
	denom bool // current token is in denominator
}

func newParser(unit string) *parser {
	return &parser{rest: unit}
}

func (p *parser) next() bool {
	// Consume separators.
	for i, r := range p.rest {
		if r == '*' {
			p.denom = false
		} else if r == '/' {
			p.denom = true
		} else if !(r == '-' || unicode.IsSpace(r)) {
			p.rpos += i
			p.rest = p.rest[i:]
			goto tok
		}
	}
	// End of string.
	p.rest = ""
	return false

tok:
	// Consume until separator.
	end := len(p.rest)
	for i, r := range p.rest {
		if r == '*' || r == '/' || r == '-' || unicode.IsSpace(r) {
			end = i
			break
		}
	}
	p.tok = p.rest[:end]
	p.pos = p.rpos
	p.rpos += end
	p.rest = p.rest[end:]
	return true
}
