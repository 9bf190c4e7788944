// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fpspin/benchviz/artifact"
	"github.com/fpspin/benchviz/cache"
	"golang.org/x/sync/errgroup"
)

// A Key identifies the runs combined into one Result.
type Key struct {
	VLen  int
	DType string
}

func (k Key) String() string {
	return fmt.Sprintf("VLEN=%d DTYPE=%s", k.VLen, k.DType)
}

// CacheKey returns the cache key of k's Result, such as
// "dump_8_int8_t".
func (k Key) CacheKey() string {
	return cache.Key("dump", k.VLen, k.DType)
}

// A Loader parses the traces of a sweep.
type Loader struct {
	Src   artifact.Source
	Sweep *Sweep

	// Cache, if non-nil, memoizes one Result per Key.
	Cache cache.Store

	// Logf, if non-nil, receives progress messages.
	Logf func(format string, args ...any)
}

func (l *Loader) logf(format string, args ...any) {
	if l.Logf != nil {
		l.Logf(format, args...)
	}
}

// Keys returns every (vlen, dtype) pair of the sweep in order.
func (l *Loader) Keys() []Key {
	var keys []Key
	for _, v := range l.Sweep.VLens {
		for _, d := range l.Sweep.DTypes {
			keys = append(keys, Key{v, d.Name})
		}
	}
	return keys
}

// Run parses a single run. It returns a nil Result without error if
// the run's artifacts are missing or too large, or if the run was
// skipped.
func (l *Loader) Run(ctx context.Context, c Config) (*Result, error) {
	elemSize, err := l.Sweep.ElemSize(c.DType)
	if err != nil {
		return nil, err
	}
	m, err := l.analyze(ctx, c, elemSize)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, artifact.ErrTooLarge):
		l.logf("missing trace: %v", err)
		return nil, nil
	case errors.Is(err, ErrSkipped):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", c.Base(), err)
	}
	l.logf("finished parsing trace %s: %.3f Gbps", c.Base(), m.Gbps)
	return FromMetrics(m), nil
}

func (l *Loader) analyze(ctx context.Context, c Config, elemSize int) (*Metrics, error) {
	data, err := artifact.ReadAllDecompressed(ctx, l.Src, c.TraceName(), l.Sweep.SizeLimit)
	if err != nil {
		return nil, err
	}
	l.logf("parsing trace %s", c.Base())
	tr, err := ParseTrace(data)
	if err != nil {
		return nil, err
	}
	txt, err := artifact.OpenDecompressed(ctx, l.Src, c.TranscriptName(), 0)
	if err != nil {
		return nil, err
	}
	defer txt.Close()
	tx, err := ParseTranscript(txt)
	if err != nil {
		return nil, err
	}
	return Analyze(c, l.Sweep.App, elemSize, tr, tx)
}

// LoadAll returns the Result of every Key of the sweep. Cached Results
// are reused; the runs of all other keys are parsed concurrently by
// at most Sweep.Workers goroutines, combined in sweep order and
// cached.
func (l *Loader) LoadAll(ctx context.Context) (map[Key]*Result, error) {
	results := make(map[Key]*Result)
	type job struct {
		key Key
		cfg Config
		res *Result
	}
	var jobs []*job
	var pending []Key
	for _, k := range l.Keys() {
		if l.Cache != nil {
			r := NewResult()
			ok, err := l.Cache.Load(k.CacheKey(), r)
			if err != nil {
				return nil, err
			}
			if ok {
				results[k] = r
				continue
			}
			l.logf("parsed archive not found for %s, reloading", k)
		}
		l.logf("spawning for %s", k)
		pending = append(pending, k)
		for _, c := range l.Sweep.Configs(k.VLen, k.DType) {
			jobs = append(jobs, &job{key: k, cfg: c})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Sweep.Workers, 1))
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := l.Run(gctx, j.cfg)
			j.res = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, k := range pending {
		results[k] = NewResult()
	}
	for _, j := range jobs {
		if j.res != nil {
			results[j.key].Merge(j.res)
		}
	}
	for _, k := range pending {
		if l.Cache != nil {
			if err := l.Cache.Save(k.CacheKey(), results[k]); err != nil {
				return nil, err
			}
		}
		l.logf("finished for %s", k)
	}
	return results, nil
}
