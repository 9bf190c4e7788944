// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"fmt"
	"io"
	"sort"

	"github.com/fpspin/benchviz/benchunit"
	"github.com/fpspin/benchviz/internal/texttab"
	"github.com/montanaflynn/stats"
)

// A SpinSummary describes the lock waits of runs with the same number
// of participating handler units, split by locality.
type SpinSummary struct {
	NHPUs  int
	Remote bool
	Count  int

	// Median, Mean and P99 are wait durations in nanoseconds.
	Median, Mean, P99 float64
}

// SummarizeSpins groups spins by (NHPUs, Remote) and summarizes each
// group, in ascending NHPUs order with local before remote.
func SummarizeSpins(spins []Spin) ([]SpinSummary, error) {
	type key struct {
		nhpus  int
		remote bool
	}
	groups := make(map[key]stats.Float64Data)
	for _, s := range spins {
		k := key{s.NHPUs, s.Remote}
		groups[k] = append(groups[k], s.Dur)
	}
	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].nhpus != keys[j].nhpus {
			return keys[i].nhpus < keys[j].nhpus
		}
		return !keys[i].remote && keys[j].remote
	})

	var out []SpinSummary
	for _, k := range keys {
		d := groups[k]
		median, err := stats.Median(d)
		if err != nil {
			return nil, err
		}
		mean, err := stats.Mean(d)
		if err != nil {
			return nil, err
		}
		p99, err := stats.Percentile(d, 99)
		if err != nil {
			return nil, err
		}
		out = append(out, SpinSummary{
			NHPUs:  k.nhpus,
			Remote: k.remote,
			Count:  len(d),
			Median: median,
			Mean:   mean,
			P99:    p99,
		})
	}
	return out, nil
}

// WriteSpinTable writes sums as an aligned text table.
func WriteSpinTable(w io.Writer, sums []SpinSummary) error {
	var tab texttab.Table
	gap := texttab.LeftMargin("  ")
	tab.Row().Cell("nhpus").Cell("locality", gap).Cell("waits", gap, texttab.Right).
		Cell("median", gap, texttab.Right).Cell("mean", gap, texttab.Right).Cell("p99", gap, texttab.Right)
	for _, s := range sums {
		loc := "local"
		if s.Remote {
			loc = "remote"
		}
		tab.Row().Cell(fmt.Sprint(s.NHPUs), texttab.Right).Cell(loc, gap).
			Cell(fmt.Sprint(s.Count), gap, texttab.Right).
			Cell(ns(s.Median), gap, texttab.Right).
			Cell(ns(s.Mean), gap, texttab.Right).
			Cell(ns(s.P99), gap, texttab.Right)
	}
	return tab.Format(w)
}

func ns(v float64) string {
	return benchunit.Format(v, "ns")
}
