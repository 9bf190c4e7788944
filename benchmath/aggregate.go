// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

// A Pair is one raw measurement taken under configuration Config.
type Pair[K comparable] struct {
	Config K
	Value  float64
}

// An Aggregation holds one Summary per distinct configuration.
type Aggregation[K comparable] struct {
	keys    []K
	samples map[K]*Sample
	sums    map[K]Summary
}

// Aggregate groups pairs by configuration and summarizes each group
// under assumption a at the given confidence level. Configurations
// are kept in the order they first appear in pairs.
func Aggregate[K comparable](pairs []Pair[K], a Assumption, confidence float64) *Aggregation[K] {
	values := make(map[K][]float64)
	var keys []K
	for _, p := range pairs {
		if _, ok := values[p.Config]; !ok {
			keys = append(keys, p.Config)
		}
		values[p.Config] = append(values[p.Config], p.Value)
	}

	g := &Aggregation[K]{
		keys:    keys,
		samples: make(map[K]*Sample, len(keys)),
		sums:    make(map[K]Summary, len(keys)),
	}
	for _, k := range keys {
		s := NewSample(values[k])
		sum := a.Summary(s, confidence)
		sum.Warnings = append(s.Warnings, sum.Warnings...)
		g.samples[k] = s
		g.sums[k] = sum
	}
	return g
}

// Keys returns the configurations in g in first-seen order.
func (g *Aggregation[K]) Keys() []K {
	return g.keys
}

// Len returns the number of configurations in g.
func (g *Aggregation[K]) Len() int {
	return len(g.keys)
}

// Summary returns the summary for configuration k.
func (g *Aggregation[K]) Summary(k K) (Summary, bool) {
	s, ok := g.sums[k]
	return s, ok
}

// Sample returns the sorted sample for configuration k.
func (g *Aggregation[K]) Sample(k K) (*Sample, bool) {
	s, ok := g.samples[k]
	return s, ok
}
