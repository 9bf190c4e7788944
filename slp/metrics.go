// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import "fmt"

// Metrics are the figures derived from a single run.
type Metrics struct {
	Config Config

	// Batch is the number of items per packet.
	Batch int

	// Payload is the goodput of the run in bytes.
	Payload float64

	// TimeNS is the run time in nanoseconds.
	TimeNS float64

	GIOPS float64
	Gbps  float64

	// Locks holds the lock wait durations of each handler unit,
	// in nanoseconds. It is empty for predict runs.
	Locks map[int][]float64
}

// Elements returns the number of vector elements moved per item: the
// feature vector, plus the label in fit mode.
func Elements(m Mode, vlen int) int {
	if m == Fit {
		return vlen + 1
	}
	return vlen
}

// Ops returns the number of arithmetic operations per item.
func Ops(m Mode, vlen int) int {
	if m == Fit {
		return 5*vlen + 4
	}
	return 2*vlen + 1
}

// Analyze derives the metrics of run c from its trace and transcript.
// elemSize is the size of c's dtype in bytes.
func Analyze(c Config, app string, elemSize int, tr *Trace, tx Transcript) (*Metrics, error) {
	start, end, err := tr.Span(app)
	if err != nil {
		return nil, err
	}
	timeNS := float64(end-start) / 1000
	if timeNS <= 0 {
		return nil, fmt.Errorf("run %s has non-positive duration %v ns", c.Base(), timeNS)
	}

	batch := tx.Batch(c.Mode)
	items := float64(batch) * float64(c.P)
	m := &Metrics{
		Config:  c,
		Batch:   batch,
		Payload: float64(Elements(c.Mode, c.VLen)*elemSize) * items,
		TimeNS:  timeNS,
		GIOPS:   float64(Ops(c.Mode, c.VLen)) * items / timeNS,
		Locks:   make(map[int][]float64),
	}
	m.Gbps = m.Payload / timeNS * 8

	if c.Mode == Fit {
		waits, err := tr.LockWaits()
		if err != nil {
			return nil, err
		}
		for _, w := range waits {
			m.Locks[w.HPU] = append(m.Locks[w.HPU], w.Dur)
		}
	}
	return m, nil
}
