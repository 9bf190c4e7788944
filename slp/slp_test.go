// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/cache"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/gzip"
)

const (
	testApp        = "slp_l1"
	testTranscript = "starting host\nFit batch size: 4; predict batch size: 8\ndone\n"
)

type ev map[string]any

func hh(ts int64) ev {
	return ev{"name": "addi", "tid": testApp + "_hh", "pid": "./trace_core_00_0.log", "ts": ts}
}

func th(ts int64) ev {
	return ev{"name": "ret", "tid": testApp + "_th", "pid": "./trace_core_00_0.log", "ts": ts}
}

func jal(ts int64) ev {
	return ev{"name": "jal", "tid": "fit_batch", "pid": "./trace_core_00_3.log", "ts": ts}
}

func bne(ts int64, pid, instr string) ev {
	return ev{"name": "bne", "tid": "futex_lock_s", "pid": pid, "ts": ts, "args": ev{"instr": instr}}
}

// traceJSON encodes events as a trace, appending the empty terminator
// item the simulator writes.
func traceJSON(t *testing.T, evs ...ev) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"traceEvents": append(evs, ev{})})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// predictTrace spans 10000 ns.
func predictTrace(t *testing.T) []byte {
	return traceJSON(t, hh(1_000_000), hh(2_000_000), th(9_000_000), th(11_000_000))
}

// fitTrace spans 10000 ns with a 500 ns wait on local unit 1 and a
// 1000 ns wait on remote unit 10.
func fitTrace(t *testing.T) []byte {
	return traceJSON(t,
		hh(1_000_000),
		jal(2_000_000),
		bne(2_200_000, "./trace_core_00_1.log", "x12:00000001"),
		bne(2_500_000, "./trace_core_00_1.log", "x12:00000000"),
		jal(4_000_000),
		bne(5_000_000, "./trace_core_01_2.log", "x12:00000000"),
		th(11_000_000),
	)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

var approxOpt = cmp.Comparer(approx)

func TestDefaultSweep(t *testing.T) {
	s := DefaultSweep()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{8, 16, 32, 64, 128, 256, 512, 1024}, s.Packets); diff != "" {
		t.Errorf("packets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{8, 16, 32}, s.VLens); diff != "" {
		t.Errorf("vlens (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{8, 16, 32, 64, 128, 256}, s.FitPackets()); diff != "" {
		t.Errorf("fit packets (-want +got):\n%s", diff)
	}
	// 8 packet numbers * 4 sizes predict runs, 6 * 4 fit runs.
	if got := len(s.Configs(8, "float")); got != 56 {
		t.Errorf("got %d configs, want 56", got)
	}
	if sz, err := s.ElemSize("int16_t"); err != nil || sz != 2 {
		t.Errorf("ElemSize(int16_t) = %d, %v", sz, err)
	}
	if _, err := s.ElemSize("double"); err == nil {
		t.Errorf("want error for unknown dtype")
	}
}

func TestConfigs(t *testing.T) {
	s := &Sweep{Packets: []int{16, 512}, Sizes: []int{128}, FitCutoff: 256}
	want := []string{
		"eval-8-float-p16-s128-predict",
		"eval-8-float-p16-s128-fit",
		"eval-8-float-p512-s128-predict",
	}
	var got []string
	for _, c := range s.Configs(8, "float") {
		got = append(got, c.Base())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("configs (-want +got):\n%s", diff)
	}
	c := Config{VLen: 16, DType: "int8_t", P: 8, S: 256, Mode: Fit}
	if got := c.TraceName(); got != "eval-16-int8_t-p8-s256-fit.json.gz" {
		t.Errorf("TraceName = %q", got)
	}
	if got := c.TranscriptName(); got != "eval-16-int8_t-p8-s256-fit.transcript.txt" {
		t.Errorf("TranscriptName = %q", got)
	}
}

func TestLoadSweep(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
			t.Fatal(err)
		}
		return path
	}

	s, err := LoadSweep(write("ok.yaml", "vlens: [8]\ndtypes:\n  - {name: double, size: 8}\nworkers: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]DType{{"double", 8}}, s.DTypes); diff != "" {
		t.Errorf("dtypes (-want +got):\n%s", diff)
	}
	if s.Workers != 2 || s.App != "slp_l1" || len(s.Sizes) != 4 {
		t.Errorf("overlay gave %+v", s)
	}

	for name, content := range map[string]string{
		"zero.yaml":  "dtypes:\n  - {name: x, size: 0}\n",
		"dup.yaml":   "dtypes:\n  - {name: x, size: 1}\n  - {name: x, size: 2}\n",
		"empty.yaml": "vlens: []\n",
		"neg.yaml":   "sizes: [128, -1]\n",
		"app.yaml":   "app: \"\"\n",
		"work.yaml":  "workers: 0\n",
		"bad.yaml":   "vlens: [8\n",
	} {
		if _, err := LoadSweep(write(name, content)); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
	if _, err := LoadSweep(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestParseTrace(t *testing.T) {
	tr, err := ParseTrace(fitTrace(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Events) != 7 {
		t.Fatalf("got %d events, want 7", len(tr.Events))
	}
	want := Event{Name: "bne", TID: "futex_lock_s", PID: "./trace_core_00_1.log", TS: 2_200_000, Instr: "x12:00000001"}
	if diff := cmp.Diff(want, tr.Events[2]); diff != "" {
		t.Errorf("event (-want +got):\n%s", diff)
	}

	start, end, err := tr.Span(testApp)
	if err != nil || start != 1_000_000 || end != 11_000_000 {
		t.Errorf("Span = %d, %d, %v", start, end, err)
	}
	if _, _, err := tr.Span("other"); err == nil {
		t.Errorf("want error for absent app threads")
	}

	for _, bad := range []string{`{"traceEvents": [`, `{"events": []}`} {
		if _, err := ParseTrace([]byte(bad)); err == nil {
			t.Errorf("ParseTrace(%q): want error", bad)
		}
	}
}

func TestLockWaits(t *testing.T) {
	tr, err := ParseTrace(fitTrace(t))
	if err != nil {
		t.Fatal(err)
	}
	waits, err := tr.LockWaits()
	if err != nil {
		t.Fatal(err)
	}
	want := []LockWait{{HPU: 1, Dur: 500}, {HPU: 10, Dur: 1000}}
	if diff := cmp.Diff(want, waits); diff != "" {
		t.Errorf("waits (-want +got):\n%s", diff)
	}

	// An extra jal with no matching bne is dropped.
	tr, err = ParseTrace(traceJSON(t, jal(1), jal(2), bne(5, "./trace_core_00_2.log", "0")))
	if err != nil {
		t.Fatal(err)
	}
	waits, err = tr.LockWaits()
	if err != nil || len(waits) != 1 {
		t.Errorf("LockWaits = %v, %v", waits, err)
	}

	tr, err = ParseTrace(traceJSON(t, jal(1), bne(5, "core2", "0")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.LockWaits(); err == nil {
		t.Errorf("want error for malformed pid")
	}
}

func TestParseHPU(t *testing.T) {
	check := func(pid string, want int) {
		t.Helper()
		got, err := ParseHPU(pid)
		if err != nil {
			t.Errorf("ParseHPU(%q): %v", pid, err)
		} else if got != want {
			t.Errorf("ParseHPU(%q) = %d, want %d", pid, got, want)
		}
	}
	check("./trace_core_00_0.log", 0)
	check("./trace_core_00_7.log", 7)
	check("./trace_core_01_2.log", 10)
	check("./trace_core_03_5.log", 29)
	for _, bad := range []string{"trace_core_00_0.log", "./trace_core_00_0.txt", "./trace_core_0x_1.log", "./trace_core_00.log"} {
		if _, err := ParseHPU(bad); err == nil {
			t.Errorf("ParseHPU(%q): want error", bad)
		}
	}
	if IsRemote(7) || !IsRemote(8) {
		t.Errorf("IsRemote boundary is not at 8")
	}
}

func TestParseTranscript(t *testing.T) {
	tx, err := ParseTranscript(strings.NewReader(testTranscript))
	if err != nil {
		t.Fatal(err)
	}
	if tx.Batch(Fit) != 4 || tx.Batch(Predict) != 8 {
		t.Errorf("got %+v", tx)
	}

	tx, err = ParseTranscript(strings.NewReader("Fit batch size: 1; predict batch size: 2\nFit batch size: 3; predict batch size: 5\n"))
	if err != nil || tx != (Transcript{3, 5}) {
		t.Errorf("last line should win, got %+v, %v", tx, err)
	}

	for _, in := range []string{"", "nothing here\n", "Fit batch size: lots; predict batch size: 2\n"} {
		if _, err := ParseTranscript(strings.NewReader(in)); !errors.Is(err, ErrSkipped) {
			t.Errorf("ParseTranscript(%q) = %v, want ErrSkipped", in, err)
		}
	}
}

func TestAnalyze(t *testing.T) {
	tr, err := ParseTrace(fitTrace(t))
	if err != nil {
		t.Fatal(err)
	}
	tx := Transcript{FitBatch: 4, PredictBatch: 8}

	c := Config{VLen: 8, DType: "int8_t", P: 16, S: 128, Mode: Fit}
	m, err := Analyze(c, testApp, 1, tr, tx)
	if err != nil {
		t.Fatal(err)
	}
	// 4 items * 16 packets of 9 one-byte elements over 10000 ns.
	want := &Metrics{
		Config:  c,
		Batch:   4,
		Payload: 576,
		TimeNS:  10000,
		GIOPS:   44 * 64 / 10000.0,
		Gbps:    576 * 8 / 10000.0,
		Locks:   map[int][]float64{1: {500}, 10: {1000}},
	}
	if diff := cmp.Diff(want, m, approxOpt); diff != "" {
		t.Errorf("fit metrics (-want +got):\n%s", diff)
	}

	c.Mode = Predict
	m, err = Analyze(c, testApp, 4, tr, tx)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(m.Payload, 8*4*8*16) || !approx(m.GIOPS, 17*128/10000.0) || len(m.Locks) != 0 {
		t.Errorf("predict metrics %+v", m)
	}

	flat, err := ParseTrace(traceJSON(t, hh(5), th(5)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Analyze(c, testApp, 1, flat, tx); err == nil {
		t.Errorf("want error for zero duration")
	}
}

func TestFromMetricsMerge(t *testing.T) {
	fit := &Metrics{
		Config: Config{VLen: 8, DType: "float", P: 16, S: 128, Mode: Fit},
		TimeNS: 1000,
		GIOPS:  2,
		Gbps:   3,
		Locks:  map[int][]float64{10: {100}, 1: {50, 150}},
	}
	pred := &Metrics{
		Config: Config{VLen: 8, DType: "float", P: 32, S: 128, Mode: Predict},
		TimeNS: 1000,
		GIOPS:  4,
		Gbps:   5,
		Locks:  map[int][]float64{},
	}
	r := FromMetrics(fit)
	r.Merge(FromMetrics(pred))

	want := &Result{
		Predict: Series{
			ByNumber: map[int][]Point{32: {{X: 128, GIOPS: 4, Gbps: 5}}},
			BySize:   map[int][]Point{128: {{X: 32, GIOPS: 4, Gbps: 5}}},
		},
		Fit: Series{
			ByNumber: map[int][]Point{16: {{X: 128, GIOPS: 2, Gbps: 3}}},
			BySize:   map[int][]Point{128: {{X: 16, GIOPS: 2, Gbps: 3}}},
		},
		Spins: []Spin{
			{NHPUs: 2, Dur: 50},
			{NHPUs: 2, Dur: 150},
			{NHPUs: 2, Dur: 100, Remote: true},
		},
		SpinRatios: map[int][]SpinRatio{2: {{0.2, 16, 128}, {0.1, 16, 128}}},
		MaxGbps:    5,
	}
	if diff := cmp.Diff(want, r, approxOpt); diff != "" {
		t.Errorf("merged result (-want +got):\n%s", diff)
	}

	pts := Sorted([]Point{{X: 512}, {X: 128}, {X: 256}})
	if pts[0].X != 128 || pts[2].X != 512 {
		t.Errorf("Sorted = %v", pts)
	}
}

func TestSummarizeSpins(t *testing.T) {
	spins := []Spin{
		{NHPUs: 4, Dur: 30, Remote: true},
		{NHPUs: 2, Dur: 10},
		{NHPUs: 2, Dur: 20},
		{NHPUs: 2, Dur: 60},
		{NHPUs: 4, Dur: 5},
	}
	sums, err := SummarizeSpins(spins)
	if err != nil {
		t.Fatal(err)
	}
	want := []SpinSummary{
		{NHPUs: 2, Count: 3, Median: 20, Mean: 30, P99: 40},
		{NHPUs: 4, Count: 1, Median: 5, Mean: 5, P99: 5},
		{NHPUs: 4, Remote: true, Count: 1, Median: 30, Mean: 30, P99: 30},
	}
	if diff := cmp.Diff(want, sums); diff != "" {
		t.Errorf("summaries (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := WriteSpinTable(&buf, sums); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"nhpus", "remote", "20.00 ns", "30.00 ns"} {
		if !strings.Contains(out, s) {
			t.Errorf("table missing %q:\n%s", s, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("table has %d lines, want 4:\n%s", n, out)
	}
}

func gz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testSweep has one key and five runs: two complete runs at p16 s128,
// a skipped predict run at s256 and three runs without artifacts.
func testSweep(t *testing.T) (*Sweep, artifact.Dir) {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"eval-8-int8_t-p16-s128-predict.json.gz":        gz(t, predictTrace(t)),
		"eval-8-int8_t-p16-s128-predict.transcript.txt": []byte(testTranscript),
		"eval-8-int8_t-p16-s128-fit.json.gz":            gz(t, fitTrace(t)),
		"eval-8-int8_t-p16-s128-fit.transcript.txt":     []byte(testTranscript),
		"eval-8-int8_t-p16-s256-predict.json.gz":        gz(t, predictTrace(t)),
		"eval-8-int8_t-p16-s256-predict.transcript.txt": []byte("crashed\n"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o666); err != nil {
			t.Fatal(err)
		}
	}
	s := &Sweep{
		App:       testApp,
		DTypes:    []DType{{"int8_t", 1}},
		Packets:   []int{16, 512},
		Sizes:     []int{128, 256},
		FitCutoff: 256,
		VLens:     []int{8},
		SizeLimit: 1 << 20,
		Workers:   2,
	}
	return s, artifact.Dir(dir)
}

type logBuf struct {
	mu    sync.Mutex
	lines []string
}

func (l *logBuf) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logBuf) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestLoadAll(t *testing.T) {
	s, src := testSweep(t)
	store := cache.Files(t.TempDir())
	var logs logBuf
	l := &Loader{Src: src, Sweep: s, Cache: store, Logf: logs.logf}
	res, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{8, "int8_t"}
	r := res[key]
	if r == nil {
		t.Fatalf("no result for %v", key)
	}

	want := &Result{
		Predict: Series{
			ByNumber: map[int][]Point{16: {{X: 128, GIOPS: 17 * 128 / 10000.0, Gbps: 1024 * 8 / 10000.0}}},
			BySize:   map[int][]Point{128: {{X: 16, GIOPS: 17 * 128 / 10000.0, Gbps: 1024 * 8 / 10000.0}}},
		},
		Fit: Series{
			ByNumber: map[int][]Point{16: {{X: 128, GIOPS: 44 * 64 / 10000.0, Gbps: 576 * 8 / 10000.0}}},
			BySize:   map[int][]Point{128: {{X: 16, GIOPS: 44 * 64 / 10000.0, Gbps: 576 * 8 / 10000.0}}},
		},
		Spins:      []Spin{{NHPUs: 2, Dur: 500}, {NHPUs: 2, Dur: 1000, Remote: true}},
		SpinRatios: map[int][]SpinRatio{2: {{0.05, 16, 128}, {0.1, 16, 128}}},
		MaxGbps:    1024 * 8 / 10000.0,
	}
	if diff := cmp.Diff(want, r, approxOpt); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
	if n := logs.count("missing trace"); n != 3 {
		t.Errorf("logged %d missing traces, want 3", n)
	}
	if n := logs.count("finished for VLEN=8 DTYPE=int8_t"); n != 1 {
		t.Errorf("logged %d finished lines, want 1", n)
	}

	// A second load is served from the cache without any artifacts.
	var logs2 logBuf
	l2 := &Loader{Src: artifact.Dir(t.TempDir()), Sweep: s, Cache: store, Logf: logs2.logf}
	res2, err := l2.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r, res2[key], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached result (-first +second):\n%s", diff)
	}
	if n := logs2.count("spawning"); n != 0 {
		t.Errorf("cached load spawned %d keys", n)
	}
}

func TestLoadAllError(t *testing.T) {
	s, src := testSweep(t)
	name := filepath.Join(string(src), "eval-8-int8_t-p16-s128-fit.json.gz")
	if err := os.WriteFile(name, gz(t, []byte(`{"traceEvents": [`)), 0o666); err != nil {
		t.Fatal(err)
	}
	l := &Loader{Src: src, Sweep: s}
	_, err := l.LoadAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "eval-8-int8_t-p16-s128-fit") {
		t.Errorf("LoadAll error = %v, want one naming the fit run", err)
	}
}

func TestLoadTooLarge(t *testing.T) {
	s, src := testSweep(t)
	s.SizeLimit = 16
	var logs logBuf
	l := &Loader{Src: src, Sweep: s, Logf: logs.logf}
	res, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r := res[Key{8, "int8_t"}]; len(r.Predict.ByNumber) != 0 || r.MaxGbps != 0 {
		t.Errorf("oversized traces were parsed: %+v", r)
	}
	if n := logs.count("missing trace"); n != 6 {
		t.Errorf("logged %d missing traces, want 6", n)
	}
}

func TestFigures(t *testing.T) {
	s, src := testSweep(t)
	l := &Loader{Src: src, Sweep: s}
	res, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{8, "int8_t"}
	r := res[key]

	f, err := PredictFigure(key, r)
	if err != nil {
		t.Fatal(err)
	}
	if f.Title != "VLEN=8 int8_t" {
		t.Errorf("title = %q", f.Title)
	}
	if _, err := f.WriteTo(io.Discard, "svg"); err != nil {
		t.Error(err)
	}

	for _, byNumber := range []bool{true, false} {
		name, f, err := FitFigure(key, r, byNumber)
		if err != nil {
			t.Fatal(err)
		}
		if byNumber && name != "Fit-#packets" || !byNumber && name != "Fit-packet size" {
			t.Errorf("FitFigure(%v) name = %q", byNumber, name)
		}
		if _, err := f.WriteTo(io.Discard, "svg"); err != nil {
			t.Error(err)
		}
	}

	f, err = SpinFigure(key, r)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteTo(io.Discard, "svg"); err != nil {
		t.Error(err)
	}

	maxGbps := map[Key]float64{key: r.MaxGbps}
	f, err = SummaryFigure(s, maxGbps)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteTo(io.Discard, "png"); err != nil {
		t.Error(err)
	}

	empty := NewResult()
	if _, err := PredictFigure(key, empty); err == nil {
		t.Errorf("PredictFigure of empty result: want error")
	}
	if _, _, err := FitFigure(key, empty, true); err == nil {
		t.Errorf("FitFigure of empty result: want error")
	}
	if _, err := SpinFigure(key, empty); err == nil {
		t.Errorf("SpinFigure of empty result: want error")
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, []Key{key}, maxGbps); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "VLEN=8\tDTYPE=int8_t\t0.8192 Gbps\n" {
		t.Errorf("summary = %q", got)
	}
}

func TestSpinFigureSharedX(t *testing.T) {
	// Ratios for one handler count, lock waits for another.
	r := NewResult()
	r.SpinRatios[1] = []SpinRatio{{Ratio: 0.2}, {Ratio: 0.3}}
	r.Spins = []Spin{{NHPUs: 2, Dur: 100}, {NHPUs: 2, Dur: 1000, Remote: true}}
	f, err := SpinFigure(Key{8, "int8_t"}, r)
	if err != nil {
		t.Fatal(err)
	}
	top, bottom := f.At(0, 0), f.At(1, 0)
	if top.X.Min != bottom.X.Min || top.X.Max != bottom.X.Max {
		t.Errorf("X ranges differ: top [%v, %v], bottom [%v, %v]", top.X.Min, top.X.Max, bottom.X.Min, bottom.X.Max)
	}
	if _, err := f.WriteTo(io.Discard, "svg"); err != nil {
		t.Error(err)
	}
}
