// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slp analyzes simulator traces of the streaming learning
// kernel, which fits ("fit") or evaluates ("predict") a linear model
// over packets streamed through the accelerator.
//
// Each run of the evaluation sweep produces a gzipped Chrome-format
// JSON trace of every executed instruction and a transcript of the
// host program. From these, this package derives the run time,
// operation and goodput rates and, for fit runs, how long each
// handler unit waited on the model lock.
package slp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// A Mode selects the kernel's operation.
type Mode int

const (
	Predict Mode = iota
	Fit
)

func (m Mode) String() string {
	if m == Fit {
		return "fit"
	}
	return "predict"
}

// A Config identifies one run of the sweep.
type Config struct {
	VLen  int
	DType string
	P, S  int // packet number and packet size
	Mode  Mode
}

// Base returns the artifact name stem of the run, such as
// "eval-8-int8_t-p16-s128-fit".
func (c Config) Base() string {
	return fmt.Sprintf("eval-%d-%s-p%d-s%d-%s", c.VLen, c.DType, c.P, c.S, c.Mode)
}

// TraceName returns the name of the run's compressed trace.
func (c Config) TraceName() string {
	return c.Base() + ".json.gz"
}

// TranscriptName returns the name of the run's transcript.
func (c Config) TranscriptName() string {
	return c.Base() + ".transcript.txt"
}

// An Event is one trace event. Only the fields used by the analysis
// are kept.
type Event struct {
	Name  string
	TID   string
	PID   string
	TS    int64 // picoseconds
	Instr string
}

// A Trace is the list of events of one run.
type Trace struct {
	Events []Event
}

// ParseTrace parses a Chrome-format JSON trace. The simulator always
// terminates traceEvents with an empty item, which is dropped.
func ParseTrace(data []byte) (*Trace, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed trace JSON")
	}
	evs := gjson.GetBytes(data, "traceEvents")
	if !evs.IsArray() {
		return nil, fmt.Errorf("trace has no traceEvents array")
	}
	t := new(Trace)
	evs.ForEach(func(_, ev gjson.Result) bool {
		t.Events = append(t.Events, Event{
			Name:  ev.Get("name").String(),
			TID:   ev.Get("tid").String(),
			PID:   ev.Get("pid").String(),
			TS:    ev.Get("ts").Int(),
			Instr: ev.Get("args.instr").String(),
		})
		return true
	})
	if len(t.Events) > 0 {
		t.Events = t.Events[:len(t.Events)-1]
	}
	return t, nil
}

// Span returns the start and end of the run in picoseconds: the first
// event on app's host handler thread (app_hh) and the last event on
// its tail handler thread (app_th).
func (t *Trace) Span(app string) (start, end int64, err error) {
	hh, th := app+"_hh", app+"_th"
	var haveStart, haveEnd bool
	for _, ev := range t.Events {
		if ev.TID == hh && !haveStart {
			start, haveStart = ev.TS, true
		}
		if ev.TID == th {
			end, haveEnd = ev.TS, true
		}
	}
	if !haveStart {
		return 0, 0, fmt.Errorf("no events on thread %s", hh)
	}
	if !haveEnd {
		return 0, 0, fmt.Errorf("no events on thread %s", th)
	}
	return start, end, nil
}

// A LockWait is one acquisition of the model lock by a handler unit.
type LockWait struct {
	HPU int
	Dur float64 // nanoseconds
}

// LockWaits pairs, in order, every call into the unlock path of a fit
// batch (a jal on thread fit_batch) with every final spin of the lock
// loop that found the lock free (a bne on thread futex_lock_s whose
// instruction text ends in 0, i.e. x12 was zero). The handler unit is
// taken from the bne's trace file name. Unpaired events are ignored.
func (t *Trace) LockWaits() ([]LockWait, error) {
	var jals, bnes []Event
	for _, ev := range t.Events {
		switch {
		case ev.TID == "fit_batch" && ev.Name == "jal":
			jals = append(jals, ev)
		case ev.TID == "futex_lock_s" && ev.Name == "bne" && strings.HasSuffix(ev.Instr, "0"):
			bnes = append(bnes, ev)
		}
	}
	n := min(len(jals), len(bnes))
	waits := make([]LockWait, n)
	for i := range waits {
		hpu, err := ParseHPU(bnes[i].PID)
		if err != nil {
			return nil, err
		}
		waits[i] = LockWait{HPU: hpu, Dur: float64(bnes[i].TS-jals[i].TS) / 1000}
	}
	return waits, nil
}

// ParseHPU returns the global handler unit ID encoded in a trace file
// name of the form ./trace_core_0<cluster>_<core>.log. Each cluster
// has 8 cores.
func ParseHPU(pid string) (int, error) {
	rest, ok := strings.CutPrefix(pid, "./trace_core_0")
	rest, ok2 := strings.CutSuffix(rest, ".log")
	cs, hs, ok3 := strings.Cut(rest, "_")
	if !ok || !ok2 || !ok3 {
		return 0, fmt.Errorf("bad trace pid %q", pid)
	}
	cid, err := strconv.Atoi(cs)
	if err != nil {
		return 0, fmt.Errorf("bad trace pid %q: %w", pid, err)
	}
	hid, err := strconv.Atoi(hs)
	if err != nil {
		return 0, fmt.Errorf("bad trace pid %q: %w", pid, err)
	}
	return cid*8 + hid, nil
}

// IsRemote reports whether hpu is outside the first cluster.
func IsRemote(hpu int) bool {
	return hpu >= 8
}
