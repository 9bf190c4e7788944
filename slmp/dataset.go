// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slmp

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aclements/go-gg/table"
	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/benchmath"
)

// A Row is the derived data of one trial.
type Row struct {
	Kind    Kind `json:"type"`
	Length  int  `json:"len"` // bytes
	Packets int  `json:"packets"`

	// Elapsed is the transfer time of each repetition in seconds.
	Elapsed []float64 `json:"elapsed"`

	Handler

	// Tput is the median throughput in Mbps. TputLo and TputHi
	// are the lengths of the error bars below and above Tput.
	Tput   float64 `json:"tput"`
	TputLo float64 `json:"tput_lo"`
	TputHi float64 `json:"tput_hi"`
}

// LengthKB returns the file length in kilobytes.
func (r Row) LengthKB() float64 {
	return float64(r.Length) / 1e3
}

// TputRange returns the half-width of the throughput error bars as a
// percentage of Tput, such as "5%".
func (r Row) TputRange() string {
	sum := benchmath.Summary{Center: r.Tput, Lo: r.Tput - r.TputLo, Hi: r.Tput + r.TputHi}
	return sum.PctRangeString()
}

// A Dataset is the derived data of a whole sweep.
type Dataset struct {
	// Confidence is the confidence level of the throughput
	// error bars.
	Confidence float64 `json:"confidence"`

	// Rows holds one row per trial, grouped by kind in the order
	// of Kinds, then by ascending length.
	Rows []Row `json:"rows"`
}

// Options configures Collect.
type Options struct {
	// Kinds and Lengths select the trials. If nil, Kinds and
	// Lengths() are used.
	Kinds   []Kind
	Lengths []int

	// Assumption summarizes throughput samples. If nil,
	// benchmath.AssumeBootstrap{} is used.
	Assumption benchmath.Assumption

	// Confidence is the confidence level of the throughput
	// interval. If zero, 0.95 is used.
	Confidence float64

	// Logf, if non-nil, is called with warnings about individual
	// trials, such as too few samples for an interval.
	Logf func(format string, args ...any)
}

type trialKey struct {
	kind   Kind
	length int
}

// Collect reads the artifacts of every trial from src and derives the
// Dataset. A missing or malformed artifact is an error.
func Collect(ctx context.Context, src artifact.Source, opts Options) (*Dataset, error) {
	kinds, lengths := opts.Kinds, opts.Lengths
	if kinds == nil {
		kinds = Kinds
	}
	if lengths == nil {
		lengths = Lengths()
	}
	assume := opts.Assumption
	if assume == nil {
		assume = benchmath.AssumeBootstrap{}
	}
	confidence := opts.Confidence
	if confidence == 0 {
		confidence = 0.95
	}

	ds := &Dataset{Confidence: confidence}
	var pairs []benchmath.Pair[trialKey]
	for _, k := range kinds {
		for _, l := range lengths {
			base, err := trialBase(k, l)
			if err != nil {
				return nil, err
			}
			h, err := readHandler(ctx, src, base+".csv")
			if err != nil {
				return nil, err
			}
			elapsed, err := readSender(ctx, src, base+"-sender.txt")
			if err != nil {
				return nil, err
			}
			key := trialKey{k, l}
			for _, e := range elapsed {
				pairs = append(pairs, benchmath.Pair[trialKey]{Config: key, Value: Throughput(l, e)})
			}
			ds.Rows = append(ds.Rows, Row{
				Kind:    k,
				Length:  l,
				Packets: Packets(l),
				Elapsed: elapsed,
				Handler: h,
			})
		}
	}

	agg := benchmath.Aggregate(pairs, assume, confidence)
	for i := range ds.Rows {
		r := &ds.Rows[i]
		sum, ok := agg.Summary(trialKey{r.Kind, r.Length})
		if !ok {
			// No repetition finished.
			sum = assume.Summary(benchmath.NewSample(nil), confidence)
		}
		r.Tput = sum.Center
		r.TputLo, r.TputHi = sum.Err()
		if opts.Logf != nil {
			for _, w := range sum.Warnings {
				opts.Logf("%s %d B: %v", r.Kind, r.Length, w)
			}
		}
	}
	return ds, nil
}

func readHandler(ctx context.Context, src artifact.Source, name string) (Handler, error) {
	r, err := artifact.OpenDecompressed(ctx, src, name, 0)
	if err != nil {
		return Handler{}, err
	}
	defer r.Close()
	h, err := ParseHandler(r)
	if err != nil {
		return Handler{}, fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func readSender(ctx context.Context, src artifact.Source, name string) ([]float64, error) {
	r, err := artifact.OpenDecompressed(ctx, src, name, 0)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	elapsed, err := ParseSender(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return elapsed, nil
}

// ByKind returns the rows of kind k in length order.
func (ds *Dataset) ByKind(k Kind) []Row {
	var rows []Row
	for _, r := range ds.Rows {
		if r.Kind == k {
			rows = append(rows, r)
		}
	}
	return rows
}

// Table returns the dataset as a table grouped by kind, with one row
// per trial. Lengths are in KB, throughput in Mbps and handler times
// in µs.
func (ds *Dataset) Table() table.Grouping {
	n := len(ds.Rows)
	var (
		kinds   = make([]string, n)
		lens    = make([]float64, n)
		samples = make([]int, n)
		tput    = make([]float64, n)
		tputLo  = make([]float64, n)
		tputHi  = make([]float64, n)
		tputPct = make([]string, n)
		pkts    = make([]int, n)
		cycles  = make([]float64, n)
		msg     = make([]float64, n)
		pkt     = make([]float64, n)
		dma     = make([]float64, n)
		notif   = make([]float64, n)
	)
	for i, r := range ds.Rows {
		kinds[i] = r.Kind.String()
		lens[i] = r.LengthKB()
		samples[i] = len(r.Elapsed)
		tput[i], tputLo[i], tputHi[i] = r.Tput, r.TputLo, r.TputHi
		tputPct[i] = "±" + r.TputRange()
		pkts[i] = r.Packets
		cycles[i], msg[i], pkt[i], dma[i], notif[i] = r.Cycles, r.Msg, r.Pkt, r.DMA, r.Notification
	}
	t := table.NewBuilder(nil).
		Add("type", kinds).
		Add("len", lens).
		Add("n", samples).
		Add("tput", tput).
		Add("tput_lo", tputLo).
		Add("tput_hi", tputHi).
		Add("±", tputPct).
		Add("packets", pkts).
		Add("cycles", cycles).
		Add("msg", msg).
		Add("pkt", pkt).
		Add("dma", dma).
		Add("notification", notif).
		Done()
	return table.GroupBy(t, "type")
}

// TableFormats are the column formats for printing Table.
var TableFormats = []string{"%v", "%.1f", "%d", "%.2f", "%.2f", "%.2f", "%v", "%d", "%.2f", "%.2f", "%.2f", "%.2f", "%.2f"}

// WriteCSV writes one CSV row per trial, with the numeric columns of
// Table. Lengths are in bytes.
func (ds *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"type", "len", "n", "tput", "tput_lo", "tput_hi", "packets", "cycles", "msg", "pkt", "dma", "notification"})
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range ds.Rows {
		cw.Write([]string{
			r.Kind.String(), strconv.Itoa(r.Length), strconv.Itoa(len(r.Elapsed)),
			f(r.Tput), f(r.TputLo), f(r.TputHi), strconv.Itoa(r.Packets),
			f(r.Cycles), f(r.Msg), f(r.Pkt), f(r.DMA), f(r.Notification),
		})
	}
	cw.Flush()
	return cw.Error()
}
