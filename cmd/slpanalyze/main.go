// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Slpanalyze analyzes the simulator traces of the streaming learning
// kernel sweep.
//
// Usage:
//
//	slpanalyze [flags]
//
// For every vector length and data type of the sweep, slpanalyze
// parses the fit and predict traces found in -data (a directory or
// gs://bucket/prefix), caches the combined result and plots goodput
// against packet size and number, and the lock wait distribution of
// the fit runs. Finally it plots and prints the best goodput of every
// configuration.
//
// The sweep defaults to the standard evaluation and can be changed
// with a YAML file given by -config, for example:
//
//	vlens: [8, 16]
//	dtypes:
//	  - {name: int8_t, size: 1}
//	  - {name: float, size: 4}
//	size_limit: 104857600
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/cache"
	_ "github.com/fpspin/benchviz/cache/sqlite3"
	"github.com/fpspin/benchviz/chart"
	"github.com/fpspin/benchviz/report"
	"github.com/fpspin/benchviz/slp"
	"google.golang.org/api/option"
)

var exit = os.Exit // replaced during testing

func usage() {
	fmt.Fprintf(os.Stderr, "usage: slpanalyze [flags]\n")
	fmt.Fprintf(os.Stderr, "flags:\n")
	flag.PrintDefaults()
	exit(2)
}

type options struct {
	data    string
	charts  string
	cache   string
	config  string
	workers int
	format  string
	html    bool
	gcsAnon bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.data, "data", "data", "read traces from `dir` or gs://bucket/prefix")
	fs.StringVar(&o.charts, "charts", "charts", "write charts to `dir`")
	fs.StringVar(&o.cache, "cache", ".", "cache `spec`: a directory, sqlite3:dsn or mysql:dsn")
	fs.StringVar(&o.config, "config", "", "read the sweep from YAML `file`")
	fs.IntVar(&o.workers, "workers", 0, "parse up to `n` traces concurrently (default from the sweep)")
	fs.StringVar(&o.format, "format", "pdf", "chart `format`: pdf, png or svg")
	fs.BoolVar(&o.html, "html", false, "write an HTML index of the charts to the -charts directory")
	fs.BoolVar(&o.gcsAnon, "gcs-anon", false, "read gs:// data without credentials")
}

func (o *options) clientOptions() []option.ClientOption {
	if o.gcsAnon {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	return nil
}

func main() {
	log.SetPrefix("slpanalyze: ")
	log.SetFlags(0)
	var o options
	o.register(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
	}
	if err := run(context.Background(), &o, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func (o *options) sweep() (*slp.Sweep, error) {
	sw := slp.DefaultSweep()
	if o.config != "" {
		var err error
		if sw, err = slp.LoadSweep(o.config); err != nil {
			return nil, err
		}
	}
	if o.workers > 0 {
		sw.Workers = o.workers
	}
	return sw, nil
}

func run(ctx context.Context, o *options, stdout io.Writer) error {
	sw, err := o.sweep()
	if err != nil {
		return err
	}
	src, err := artifact.Open(ctx, o.data, o.clientOptions()...)
	if err != nil {
		return err
	}
	store, err := cache.Open(o.cache)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Printf("analyzing %s, traces up to %s", src, humanize.IBytes(uint64(sw.SizeLimit)))
	l := &slp.Loader{Src: src, Sweep: sw, Cache: store, Logf: log.Printf}
	results, err := l.LoadAll(ctx)
	if err != nil {
		return err
	}

	p := &plotter{dir: o.charts, format: o.format}
	page := report.Page{Title: "SLP goodput"}
	keys := l.Keys()
	maxGbps := make(map[slp.Key]float64)
	for _, k := range keys {
		r := results[k]
		maxGbps[k] = r.MaxGbps
		sec := report.Section{Heading: k.String()}
		p.plotKey(k, r, &sec)
		sums, err := slp.SummarizeSpins(r.Spins)
		if err != nil {
			return err
		}
		if len(sums) > 0 {
			var buf bytes.Buffer
			if err := slp.WriteSpinTable(&buf, sums); err != nil {
				return err
			}
			sec.Tables = append(sec.Tables, buf.String())
		}
		page.Sections = append(page.Sections, sec)
	}

	summary := report.Section{Heading: "Best goodput"}
	f, err := slp.SummaryFigure(sw, maxGbps)
	if err != nil {
		return err
	}
	if err := p.save(f, "vlen-dtype-tput", &summary); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := slp.WriteSummary(io.MultiWriter(stdout, &buf), keys, maxGbps); err != nil {
		return err
	}
	summary.Tables = append(summary.Tables, buf.String())

	if o.html {
		page.Sections = append([]report.Section{summary}, page.Sections...)
		path := filepath.Join(o.charts, "index.html")
		if err := report.WriteFile(path, page); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

type plotter struct {
	dir    string
	format string
}

// save writes f as dir/name.format and links it from sec.
func (p *plotter) save(f *chart.Figure, name string, sec *report.Section) error {
	path, err := f.Save(p.dir, name, p.format)
	if err != nil {
		return err
	}
	c, err := report.NewChart(name, p.dir, path)
	if err != nil {
		return err
	}
	sec.Charts = append(sec.Charts, c)
	return nil
}

// plotKey writes the charts of one configuration. A chart that
// cannot be drawn is logged and does not stop the others.
func (p *plotter) plotKey(k slp.Key, r *slp.Result, sec *report.Section) {
	suffix := fmt.Sprintf("-%d-%s", k.VLen, k.DType)
	draw := func(name string, fig func() (*chart.Figure, error)) {
		f, err := fig()
		if err == nil {
			err = p.save(f, name+suffix, sec)
		}
		if err != nil {
			log.Printf("failed to plot %s for %s: %v", name, k, err)
		}
	}
	draw("predict", func() (*chart.Figure, error) { return slp.PredictFigure(k, r) })
	for _, byNumber := range []bool{true, false} {
		draw(slp.FitName(byNumber), func() (*chart.Figure, error) {
			_, f, err := slp.FitFigure(k, r, byNumber)
			return f, err
		})
	}
	draw("spin-violin", func() (*chart.Figure, error) { return slp.SpinFigure(k, r) })
}
