// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// DefaultIterations is the number of resamples AssumeBootstrap draws
// when Iterations is zero.
const DefaultIterations = 9999

// AssumeBootstrap is an assumption that nothing is known about the
// distribution of a sample. It summarizes the sample by its median
// and computes a two-sided percentile-bootstrap confidence interval
// for the median: the sample is resampled with replacement Iterations
// times, the medians of the resamples are sorted, and the interval is
// read off at the (1-confidence)/2 and (1+confidence)/2 quantiles.
//
// Resampling is deterministic. The random source is seeded from the
// sample values mixed with Seed, so equal samples always produce equal
// intervals.
//
// Samples with fewer than two values have a degenerate, zero-width
// interval.
type AssumeBootstrap struct {
	// Iterations is the number of bootstrap resamples. If zero,
	// DefaultIterations is used.
	Iterations int

	// Seed is mixed into the per-sample random seed.
	Seed int64
}

var _ Assumption = AssumeBootstrap{}

func (AssumeBootstrap) SummaryLabel() string {
	return "median"
}

func (a AssumeBootstrap) Summary(s *Sample, confidence float64) Summary {
	n := len(s.Values)
	if n == 0 {
		return nanSummary(confidence)
	}
	center := median(s.Values)
	if n < 2 {
		return Summary{
			Center:     center,
			Lo:         center,
			Hi:         center,
			Confidence: confidence,
			N:          n,
			Warnings:   []error{fmt.Errorf("need at least 2 samples for a confidence interval, have %d", n)},
		}
	}

	iters := a.Iterations
	if iters <= 0 {
		iters = DefaultIterations
	}
	r := rand.New(rand.NewSource(hashValues(s.Values) ^ a.Seed))
	medians := make([]float64, iters)
	resample := make([]float64, n)
	for i := range medians {
		for j := range resample {
			resample[j] = s.Values[r.Intn(n)]
		}
		sort.Float64s(resample)
		medians[i] = median(resample)
	}
	sort.Float64s(medians)
	boot := stats.Sample{Xs: medians, Sorted: true}

	p := (1 - confidence) / 2
	lo, hi := boot.Quantile(p), boot.Quantile(1-p)
	// Interpolation between resampled medians can place a bound
	// just past the center on tiny samples.
	lo, hi = math.Min(lo, center), math.Max(hi, center)
	return Summary{Center: center, Lo: lo, Hi: hi, Confidence: confidence, N: n}
}

// median returns the median of sorted values a.
func median(a []float64) float64 {
	l := len(a)
	if l&1 == 1 {
		return a[l/2]
	}
	return (a[l/2] + a[l/2-1]) / 2
}

const rot = 23

// hashValues folds the bit patterns of values into a seed.
func hashValues(values []float64) int64 {
	var x int64
	for _, v := range values {
		xlow := (x >> (64 - rot)) & (1<<rot - 1)
		x = (x << rot) ^ xlow ^ int64(math.Float64bits(v))
	}
	return x
}
