// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// A DType is an element type of the kernel's vectors.
type DType struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"` // bytes
}

// A Sweep is the parameter space of an evaluation run.
type Sweep struct {
	// App is the simulated application, which names the
	// handler threads that bound a run.
	App string `yaml:"app"`

	// DTypes lists the element types in plotting order.
	DTypes []DType `yaml:"dtypes"`

	// Packets are the packet numbers P and Sizes the packet
	// sizes S of every run.
	Packets []int `yaml:"packets"`
	Sizes   []int `yaml:"sizes"`

	// FitCutoff is the largest packet number run in fit mode.
	FitCutoff int `yaml:"fit_cutoff"`

	// VLens are the vector lengths.
	VLens []int `yaml:"vlens"`

	// SizeLimit is the largest compressed trace, in bytes, that
	// will be parsed. Larger traces are reported as missing.
	SizeLimit int64 `yaml:"size_limit"`

	// Workers bounds the number of traces parsed concurrently.
	Workers int `yaml:"workers"`
}

// DefaultSweep returns the standard evaluation sweep.
func DefaultSweep() *Sweep {
	s := &Sweep{
		App: "slp_l1",
		DTypes: []DType{
			{"int8_t", 1},
			{"int16_t", 2},
			{"int32_t", 4},
			{"float", 4},
		},
		Sizes:     []int{128, 256, 512, 1024},
		FitCutoff: 256,
		SizeLimit: 80 << 20,
		Workers:   4,
	}
	for k := 3; k <= 10; k++ {
		s.Packets = append(s.Packets, 1<<k)
	}
	for k := 3; k <= 5; k++ {
		s.VLens = append(s.VLens, 1<<k)
	}
	return s
}

// LoadSweep reads a YAML sweep description from path. Fields the file
// leaves out keep their DefaultSweep values.
func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultSweep()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that s describes a non-empty sweep.
func (s *Sweep) Validate() error {
	if s.App == "" {
		return fmt.Errorf("sweep has no app name")
	}
	if len(s.DTypes) == 0 || len(s.Packets) == 0 || len(s.Sizes) == 0 || len(s.VLens) == 0 {
		return fmt.Errorf("sweep has an empty parameter list")
	}
	seen := make(map[string]bool)
	for _, d := range s.DTypes {
		if d.Size <= 0 {
			return fmt.Errorf("dtype %q has size %d", d.Name, d.Size)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dtype %q", d.Name)
		}
		seen[d.Name] = true
	}
	for _, xs := range [][]int{s.Packets, s.Sizes, s.VLens} {
		for _, x := range xs {
			if x <= 0 {
				return fmt.Errorf("sweep parameter %d is not positive", x)
			}
		}
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	return nil
}

// ElemSize returns the size in bytes of dtype.
func (s *Sweep) ElemSize(dtype string) (int, error) {
	for _, d := range s.DTypes {
		if d.Name == dtype {
			return d.Size, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", dtype)
}

// FitPackets returns the packet numbers that are run in fit mode.
func (s *Sweep) FitPackets() []int {
	var ps []int
	for _, p := range s.Packets {
		if p <= s.FitCutoff {
			ps = append(ps, p)
		}
	}
	return ps
}

// Configs returns the runs of one (vlen, dtype) pair in submission
// order: for every (P, S), the predict run, then the fit run if P is
// within the fit cutoff.
func (s *Sweep) Configs(vlen int, dtype string) []Config {
	var cs []Config
	for _, p := range s.Packets {
		for _, sz := range s.Sizes {
			cs = append(cs, Config{VLen: vlen, DType: dtype, P: p, S: sz, Mode: Predict})
			if p <= s.FitCutoff {
				cs = append(cs, Config{VLen: vlen, DType: dtype, P: p, S: sz, Mode: Fit})
			}
		}
	}
	return cs
}
