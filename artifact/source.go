// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact provides access to raw benchmark artifacts, such
// as CSV telemetry, sender logs and compressed simulator traces,
// stored either in a local directory or in a Cloud Storage bucket.
package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/option"
)

// A Source is a flat namespace of artifacts. Names use forward
// slashes regardless of the backing store.
//
// Open and Size return an error wrapping fs.ErrNotExist if the named
// artifact does not exist.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Size(ctx context.Context, name string) (int64, error)
	String() string
}

// Open returns the Source rooted at root. Roots of the form
// gs://bucket/prefix are read from Cloud Storage using opts; anything
// else is a local directory.
func Open(ctx context.Context, root string, opts ...option.ClientOption) (Source, error) {
	if strings.HasPrefix(root, "gs://") {
		return NewGCS(ctx, root, opts...)
	}
	return Dir(root), nil
}

// Dir is a Source backed by a local directory.
type Dir string

func (d Dir) path(name string) string {
	return filepath.Join(string(d), filepath.FromSlash(name))
}

func (d Dir) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(d.path(name))
}

func (d Dir) Size(ctx context.Context, name string) (int64, error) {
	fi, err := os.Stat(d.path(name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d Dir) String() string {
	return string(d)
}
