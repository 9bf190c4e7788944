// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import "fmt"

// AssumeExact is an assumption that a value is measured exactly, such
// as an averaged hardware counter read once per trial, and thus has
// no distribution. It reports a warning if not all values in a sample
// are equal.
var AssumeExact = assumeExact{}

type assumeExact struct{}

var _ Assumption = assumeExact{}

func (assumeExact) SummaryLabel() string {
	return "exact"
}

func (assumeExact) Summary(s *Sample, confidence float64) Summary {
	if len(s.Values) == 0 {
		return nanSummary(1)
	}

	// Find the sample's mode. This checks if all samples are the
	// same, and lets us return a reasonable summary even if they
	// aren't all the same. Values are sorted, so runs are
	// contiguous.
	val, count := s.Values[0], 1
	modeVal, modeCount := val, count
	for _, v := range s.Values[1:] {
		if v == val {
			count++
		} else {
			val, count = v, 1
		}
		if count > modeCount {
			modeVal, modeCount = val, count
		}
	}
	lo, hi := s.Values[0], s.Values[len(s.Values)-1]
	summary := Summary{Center: modeVal, Lo: lo, Hi: hi, Confidence: 1, N: len(s.Values)}

	if modeCount != len(s.Values) {
		summary.Warnings = []error{fmt.Errorf("exact value expected, but values range from %v to %v", lo, hi)}
	}
	return summary
}
