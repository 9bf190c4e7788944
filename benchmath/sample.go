// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmath computes summary statistics over repeated
// benchmark trials.
//
// Callers state a distributional assumption about their measurements
// and this package picks the summary statistic and confidence
// interval that go with it. For noisy timings, AssumeBootstrap
// reports the median with a percentile-bootstrap interval. For
// counters that are measured once, AssumeExact reports the value
// itself.
//
// All analysis results contain a list of warnings, captured as an
// []error value. These aren't errors that prevent analysis, but
// should be presented to the user along with analysis results.
package benchmath

import (
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/mathx"
)

// A Sample is a set of repeated measurements of a given trial
// configuration.
type Sample struct {
	// Values are the measured values, in ascending order.
	Values []float64

	// Warnings is a list of warnings about this sample that
	// should be reported to the user.
	Warnings []error
}

// NewSample constructs a Sample from a set of measurements. NewSample
// takes ownership of values and sorts it.
func NewSample(values []float64) *Sample {
	s := &Sample{Values: values}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.Warnings = append(s.Warnings, fmt.Errorf("sample contains non-finite value %v", v))
			break
		}
	}
	// Sort values for fast order statistics.
	sort.Float64s(values)
	return s
}

// An Assumption indicates a distributional assumption about a sample.
type Assumption interface {
	// SummaryLabel returns the string name for the summary
	// statistic under this assumption. For example, "median" or
	// "exact".
	SummaryLabel() string

	// Summary returns a summary statistic and its confidence
	// interval at the given confidence level for Sample s.
	//
	// Confidence is given in the range [0,1], e.g., 0.95 for 95%
	// confidence.
	Summary(s *Sample, confidence float64) Summary
}

// A Summary summarizes a Sample.
type Summary struct {
	// Center is some measure of the central tendency of a sample.
	Center float64

	// Lo and Hi give the bounds of the confidence interval around
	// Center.
	Lo, Hi float64

	// Confidence is the confidence level of the interval given
	// by Lo, Hi.
	Confidence float64

	// N is the number of values the summary was computed from.
	N int

	// Warnings is a list of warnings about this summary or its
	// confidence interval.
	Warnings []error
}

// Err returns the lengths of the lower and upper error bars around
// Center, that is Center-Lo and Hi-Center.
func (s Summary) Err() (lo, hi float64) {
	return s.Center - s.Lo, s.Hi - s.Center
}

// Degenerate reports whether the confidence interval has zero width.
func (s Summary) Degenerate() bool {
	return s.Lo == s.Hi
}

// PctRangeString returns a string representation of the range of this
// Summary's confidence interval as a percentage.
func (s Summary) PctRangeString() string {
	if math.IsNaN(s.Center) {
		return "?"
	}
	if math.IsInf(s.Lo, 0) || math.IsInf(s.Hi, 0) {
		return "∞"
	}

	// If the signs of the bounds differ from the center, we can't
	// render it as a percent.
	var csign = mathx.Sign(s.Center)
	if csign != mathx.Sign(s.Lo) || csign != mathx.Sign(s.Hi) {
		return "?"
	}

	// Center is only 0 if lo and hi are also 0, in which case it
	// is reasonable to call this 0%.
	if s.Center == 0 {
		return "0%"
	}

	v := math.Max(s.Hi/s.Center-1, 1-s.Lo/s.Center)
	return fmt.Sprintf("%.0f%%", 100*v)
}

// nanSummary is the summary of an empty sample.
func nanSummary(confidence float64) Summary {
	nan := math.NaN()
	return Summary{
		Center:     nan,
		Lo:         nan,
		Hi:         nan,
		Confidence: confidence,
		Warnings:   []error{fmt.Errorf("no samples")},
	}
}
