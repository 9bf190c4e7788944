// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"math"
	"sort"
)

// A Point is the throughput of one run, plotted at X.
type Point struct {
	X     int     `json:"x"`
	GIOPS float64 `json:"giops"`
	Gbps  float64 `json:"gbps"`
}

// A Series groups the runs of one mode two ways.
type Series struct {
	// ByNumber maps a packet number to points at each packet
	// size.
	ByNumber map[int][]Point `json:"by_number"`

	// BySize maps a packet size to points at each packet number.
	BySize map[int][]Point `json:"by_size"`
}

func newSeries() Series {
	return Series{ByNumber: make(map[int][]Point), BySize: make(map[int][]Point)}
}

// A Spin is one lock wait of a fit run.
type Spin struct {
	NHPUs  int     `json:"nhpus"` // handler units that took the lock in the run
	Dur    float64 `json:"dur"`   // nanoseconds
	Remote bool    `json:"is_remote"`
}

// A SpinRatio is the fraction of a fit run one handler unit spent
// waiting for the lock.
type SpinRatio struct {
	Ratio float64 `json:"ratio"`
	P     int     `json:"p"`
	S     int     `json:"s"`
}

// A Result is the combined analysis of a set of runs sharing a vector
// length and dtype.
type Result struct {
	Predict Series `json:"predict"`
	Fit     Series `json:"fit"`

	Spins []Spin `json:"spins"`

	// SpinRatios maps the number of handler units that took the
	// lock in a run to the spin ratio of each of them.
	SpinRatios map[int][]SpinRatio `json:"spin_ratios"`

	// MaxGbps is the highest goodput of any run.
	MaxGbps float64 `json:"max_gbps"`
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		Predict:    newSeries(),
		Fit:        newSeries(),
		SpinRatios: make(map[int][]SpinRatio),
	}
}

// Series returns the series of mode m.
func (r *Result) Series(m Mode) *Series {
	if m == Fit {
		return &r.Fit
	}
	return &r.Predict
}

// FromMetrics returns the Result of a single run.
func FromMetrics(m *Metrics) *Result {
	r := NewResult()
	c := m.Config
	s := r.Series(c.Mode)
	s.ByNumber[c.P] = []Point{{X: c.S, GIOPS: m.GIOPS, Gbps: m.Gbps}}
	s.BySize[c.S] = []Point{{X: c.P, GIOPS: m.GIOPS, Gbps: m.Gbps}}
	r.MaxGbps = m.Gbps

	if c.Mode == Fit {
		nhpus := len(m.Locks)
		r.SpinRatios[nhpus] = nil
		for _, hpu := range sortedKeys(m.Locks) {
			durs := m.Locks[hpu]
			sum := 0.0
			for _, d := range durs {
				r.Spins = append(r.Spins, Spin{NHPUs: nhpus, Dur: d, Remote: IsRemote(hpu)})
				sum += d
			}
			r.SpinRatios[nhpus] = append(r.SpinRatios[nhpus], SpinRatio{Ratio: sum / m.TimeNS, P: c.P, S: c.S})
		}
	}
	return r
}

// Merge adds the runs of o to r.
func (r *Result) Merge(o *Result) {
	mergeLists(r.Predict.ByNumber, o.Predict.ByNumber)
	mergeLists(r.Predict.BySize, o.Predict.BySize)
	mergeLists(r.Fit.ByNumber, o.Fit.ByNumber)
	mergeLists(r.Fit.BySize, o.Fit.BySize)
	mergeLists(r.SpinRatios, o.SpinRatios)
	r.Spins = append(r.Spins, o.Spins...)
	r.MaxGbps = math.Max(r.MaxGbps, o.MaxGbps)
}

func mergeLists[V any](dst, src map[int][]V) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

// Sorted returns the points of a series key in ascending X order.
func Sorted(pts []Point) []Point {
	out := append([]Point(nil), pts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
