// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Slmpplot plots the results of the SLMP file transfer benchmark.
//
// Usage:
//
//	slmpplot [flags]
//
// With -data_root, slmpplot reads the handler telemetry (0-<len>.csv,
// 1-<len>.csv) and sender logs (<kind>-<len>-sender.txt) of every
// trial from the given directory or gs://bucket/prefix, derives the
// median throughput with a bootstrap confidence interval, and stores
// the dataset in the cache. Without -data_root, the cached dataset is
// used.
//
// It then writes slmp-tput.<format> and slmp-breakdown.<format> to the
// -out directory. With -query, it prints the dataset as a table and
// exits instead.
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

	"github.com/aclements/go-gg/table"
	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/benchmath"
	"github.com/fpspin/benchviz/cache"
	_ "github.com/fpspin/benchviz/cache/sqlite3"
	"github.com/fpspin/benchviz/chart"
	"github.com/fpspin/benchviz/report"
	"github.com/fpspin/benchviz/slmp"
	"google.golang.org/api/option"
)

var exit = os.Exit // replaced during testing

func usage() {
	fmt.Fprintf(os.Stderr, "usage: slmpplot [flags]\n")
	fmt.Fprintf(os.Stderr, "flags:\n")
	flag.PrintDefaults()
	exit(2)
}

// datasetKey is the cache key of the derived dataset.
const datasetKey = "data"

type options struct {
	dataRoot   string
	query      bool
	cache      string
	out        string
	format     string
	csv        string
	html       bool
	boot       int
	confidence float64
	assume     string
	gcsAnon    bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.dataRoot, "data_root", "", "read trial artifacts from `dir` or gs://bucket/prefix")
	fs.BoolVar(&o.query, "query", false, "print the dataset as a table and exit")
	fs.StringVar(&o.cache, "cache", ".", "cache `spec`: a directory, sqlite3:dsn or mysql:dsn")
	fs.StringVar(&o.out, "out", ".", "write charts to `dir`")
	fs.StringVar(&o.format, "format", "pdf", "chart `format`: pdf, png or svg")
	fs.StringVar(&o.csv, "csv", "", "also write the dataset as CSV to `file`")
	fs.BoolVar(&o.html, "html", false, "write an HTML index of the charts to the -out directory")
	fs.IntVar(&o.boot, "boot", benchmath.DefaultIterations, "number of bootstrap `resamples`")
	fs.Float64Var(&o.confidence, "confidence", 0.95, "confidence `level` of the throughput interval")
	fs.StringVar(&o.assume, "assume", "bootstrap", "throughput `summary`: bootstrap (median) or exact")
	fs.BoolVar(&o.gcsAnon, "gcs-anon", false, "read gs:// data without credentials")
}

func (o *options) clientOptions() []option.ClientOption {
	if o.gcsAnon {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	return nil
}

func (o *options) assumption() (benchmath.Assumption, error) {
	switch o.assume {
	case "bootstrap":
		return benchmath.AssumeBootstrap{Iterations: o.boot}, nil
	case "exact":
		return benchmath.AssumeExact, nil
	}
	return nil, fmt.Errorf("unknown -assume %q", o.assume)
}

func main() {
	log.SetPrefix("slmpplot: ")
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

func run(ctx context.Context, o *options, stdout io.Writer) error {
	if o.confidence <= 0 || o.confidence >= 1 {
		return fmt.Errorf("-confidence must be in (0, 1), got %v", o.confidence)
	}
	store, err := cache.Open(o.cache)
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := loadDataset(ctx, o, store)
	if err != nil {
		return err
	}
	if o.query {
		return table.Fprint(stdout, ds.Table(), slmp.TableFormats...)
	}

	if o.csv != "" {
		if err := writeCSV(o.csv, ds); err != nil {
			return err
		}
	}

	figs := []struct {
		name string
		make func(*slmp.Dataset) (*chart.Figure, error)
	}{
		{"slmp-tput", slmp.TputFigure},
		{"slmp-breakdown", slmp.BreakdownFigure},
	}
	sec := report.Section{Heading: fmt.Sprintf("%d trials", len(ds.Rows))}
	for _, fig := range figs {
		f, err := fig.make(ds)
		if err != nil {
			return fmt.Errorf("plotting %s: %w", fig.name, err)
		}
		path, err := f.Save(o.out, fig.name, o.format)
		if err != nil {
			return err
		}
		log.Printf("wrote %s", path)
		c, err := report.NewChart(fig.name, o.out, path)
		if err != nil {
			return err
		}
		sec.Charts = append(sec.Charts, c)
	}

	if o.html {
		var buf bytes.Buffer
		if err := table.Fprint(&buf, ds.Table(), slmp.TableFormats...); err != nil {
			return err
		}
		sec.Tables = append(sec.Tables, buf.String())
		path := filepath.Join(o.out, "index.html")
		if err := report.WriteFile(path, report.Page{Title: "SLMP throughput", Sections: []report.Section{sec}}); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

// loadDataset derives the dataset from -data_root and caches it, or
// loads the cached dataset if -data_root is empty.
func loadDataset(ctx context.Context, o *options, store cache.Store) (*slmp.Dataset, error) {
	if o.dataRoot == "" {
		ds := new(slmp.Dataset)
		ok, err := store.Load(datasetKey, ds)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no cached dataset in %s; run with -data_root first", o.cache)
		}
		return ds, nil
	}

	assume, err := o.assumption()
	if err != nil {
		return nil, err
	}
	src, err := artifact.Open(ctx, o.dataRoot, o.clientOptions()...)
	if err != nil {
		return nil, err
	}
	ds, err := slmp.Collect(ctx, src, slmp.Options{
		Assumption: assume,
		Confidence: o.confidence,
		Logf:       log.Printf,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Save(datasetKey, ds); err != nil {
		// Trials without any finished repetition have no finite
		// throughput and cannot be stored.
		log.Printf("caching dataset: %v", err)
	}
	return ds, nil
}

func writeCSV(path string, ds *slmp.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
