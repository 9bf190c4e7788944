// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slmp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aclements/go-gg/table"
	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/benchmath"
	"github.com/google/go-cmp/cmp"
)

const handlerCSV = "cycles,msg,pkt,dma,notification\n400,40,80,120,160\n"

func TestLengths(t *testing.T) {
	ls := Lengths()
	if len(ls) != 15 {
		t.Fatalf("got %d lengths, want 15", len(ls))
	}
	if ls[0] != 100 || ls[len(ls)-1] != 1638400 {
		t.Errorf("lengths span %d..%d", ls[0], ls[len(ls)-1])
	}
}

func TestUnits(t *testing.T) {
	if got := CyclesToMicros(40); got != 1 {
		t.Errorf("CyclesToMicros(40) = %v, want 1", got)
	}
	check := func(length, want int) {
		t.Helper()
		if got := Packets(length); got != want {
			t.Errorf("Packets(%d) = %d, want %d", length, got, want)
		}
	}
	check(100, 1)
	check(1460, 1)
	check(1461, 2)
	check(2000000, 1370)
	if got := Throughput(1000, 0.008); got != 1 {
		t.Errorf("Throughput(1000, 0.008) = %v, want 1", got)
	}
}

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Kind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("text round trip of %v gave %v, %v", k, back, err)
		}
	}
	if _, err := ParseKind("Sometimes ACK"); err == nil {
		t.Errorf("want error for unknown kind name")
	}
	if _, err := trialBase(Kind(7), 100); err == nil {
		t.Errorf("want error for unknown kind")
	}
	if base, _ := trialBase(ForceACK, 3200); base != "1-3200" {
		t.Errorf("trialBase = %q", base)
	}
}

func TestParseHandler(t *testing.T) {
	h, err := ParseHandler(strings.NewReader(handlerCSV))
	if err != nil {
		t.Fatal(err)
	}
	want := Handler{Cycles: 10, Msg: 1, Pkt: 2, DMA: 3, Notification: 4}
	if h != want {
		t.Errorf("got %+v, want %+v", h, want)
	}

	for _, bad := range []string{
		"",
		"cycles,msg,pkt,dma\n1,2,3,4\n",
		"cycles,msg,pkt,notification,dma\n1,2,3,4,5\n",
		"cycles,msg,pkt,dma,notification\n",
		"cycles,msg,pkt,dma,notification\n1,2,x,4,5\n",
	} {
		if _, err := ParseHandler(strings.NewReader(bad)); err == nil {
			t.Errorf("ParseHandler(%q) succeeded", bad)
		}
	}
}

func TestParseSender(t *testing.T) {
	log := `File size: 3200
Elapsed: 0.25 s
Timed out!
Elapsed: 0.5 s
Elapsed: 1
`
	got, err := ParseSender(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0.25, 0.5, 1}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := ParseSender(strings.NewReader("Elapsed: fast\n")); err == nil {
		t.Errorf("want error for non-numeric elapsed time")
	}
}

// writeTrials writes the artifacts of a sweep over lengths for both
// kinds. senders maps a trial base name to its sender log; trials not
// in senders get a single 8 ms transfer.
func writeTrials(t *testing.T, lengths []int, senders map[string]string) artifact.Dir {
	t.Helper()
	dir := t.TempDir()
	for _, k := range Kinds {
		for _, l := range lengths {
			base, err := trialBase(k, l)
			if err != nil {
				t.Fatal(err)
			}
			sender, ok := senders[base]
			if !ok {
				sender = "Elapsed: 0.008 s\n"
			}
			if err := os.WriteFile(filepath.Join(dir, base+".csv"), []byte(handlerCSV), 0o666); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, base+"-sender.txt"), []byte(sender), 0o666); err != nil {
				t.Fatal(err)
			}
		}
	}
	return artifact.Dir(dir)
}

func TestCollect(t *testing.T) {
	lengths := []int{1000, 2000}
	src := writeTrials(t, lengths, map[string]string{
		"0-1000": "Elapsed: 0.001 s\nElapsed: 0.002 s\nTimed out!\nElapsed: 0.004 s\n",
	})
	var warnings []string
	ds, err := Collect(context.Background(), src, Options{
		Lengths:    lengths,
		Assumption: benchmath.AssumeBootstrap{Iterations: 1000},
		Logf: func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want default 0.95", ds.Confidence)
	}
	if len(ds.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(ds.Rows))
	}

	r := ds.Rows[0]
	if r.Kind != Default || r.Length != 1000 || r.Packets != 1 {
		t.Errorf("first row is %v %d B %d packets", r.Kind, r.Length, r.Packets)
	}
	// Throughputs are 8, 4 and 2 Mbps.
	if r.Tput != 4 {
		t.Errorf("median throughput %v, want 4", r.Tput)
	}
	if r.TputLo < 0 || r.TputHi < 0 || r.TputLo+r.TputHi == 0 {
		t.Errorf("error bars %v/%v", r.TputLo, r.TputHi)
	}
	if r.Handler.Cycles != 10 {
		t.Errorf("handler cycles %v µs, want 10", r.Handler.Cycles)
	}

	// Single-repetition trials have zero-width bars and a warning.
	r = ds.Rows[3]
	if r.Kind != ForceACK || r.Length != 2000 || r.Tput != 2 || r.TputLo != 0 || r.TputHi != 0 {
		t.Errorf("last row %+v", r)
	}
	if len(warnings) != 3 {
		t.Errorf("got warnings %q, want one per single-sample trial", warnings)
	}

	if got := ds.ByKind(ForceACK); len(got) != 2 || got[0].Length != 1000 {
		t.Errorf("ByKind(ForceACK) = %+v", got)
	}
}

func TestCollectNoSamples(t *testing.T) {
	src := writeTrials(t, []int{100}, map[string]string{"1-100": "Timed out!\n"})
	ds, err := Collect(context.Background(), src, Options{Lengths: []int{100}})
	if err != nil {
		t.Fatal(err)
	}
	r := ds.Rows[1]
	if !math.IsNaN(r.Tput) || len(r.Elapsed) != 0 {
		t.Errorf("trial without transfers: %+v", r)
	}
	if _, err := TputFigure(ds); err != nil {
		t.Errorf("TputFigure: %v", err)
	}
}

func TestCollectMissing(t *testing.T) {
	src := writeTrials(t, []int{100}, nil)
	_, err := Collect(context.Background(), src, Options{Lengths: []int{100, 200}})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("want fs.ErrNotExist, got %v", err)
	}
}

func TestTableAndCSV(t *testing.T) {
	lengths := []int{1000}
	ds, err := Collect(context.Background(), writeTrials(t, lengths, nil), Options{Lengths: lengths})
	if err != nil {
		t.Fatal(err)
	}

	g := ds.Table()
	if n := len(g.Tables()); n != 2 {
		t.Errorf("table has %d groups, want 2", n)
	}
	var buf bytes.Buffer
	if err := table.Fprint(&buf, g, TableFormats...); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Force ACK", "tput_lo", "±0%"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := ds.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := `type,len,n,tput,tput_lo,tput_hi,packets,cycles,msg,pkt,dma,notification
Default,1000,1,1,0,0,1,10,1,2,3,4
Force ACK,1000,1,1,0,0,1,10,1,2,3,4
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("CSV (-want +got):\n%s", diff)
	}
}

func TestTputRange(t *testing.T) {
	check := func(r Row, want string) {
		t.Helper()
		if got := r.TputRange(); got != want {
			t.Errorf("%+v: TputRange() = %q, want %q", r, got, want)
		}
	}
	check(Row{Tput: 100, TputLo: 5, TputHi: 10}, "10%")
	check(Row{Tput: 100, TputLo: 8, TputHi: 2}, "8%")
	check(Row{Tput: 100}, "0%")
	check(Row{Tput: math.NaN()}, "?")
	check(Row{Tput: 100, TputHi: math.Inf(1)}, "∞")
}

func TestFigures(t *testing.T) {
	lengths := []int{100, 200, 400}
	ds, err := Collect(context.Background(), writeTrials(t, lengths, nil), Options{Lengths: lengths})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	tput, err := TputFigure(ds)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tput.Save(dir, "slmp-tput", "svg"); err != nil {
		t.Fatal(err)
	}
	bd, err := BreakdownFigure(ds)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(bd.Plots[0]); n != 2 {
		t.Errorf("breakdown has %d panels, want 2", n)
	}
	if _, err := bd.Save(dir, "slmp-breakdown", "svg"); err != nil {
		t.Fatal(err)
	}

	if _, err := BreakdownFigure(&Dataset{}); err == nil {
		t.Errorf("want error for empty dataset")
	}
}
