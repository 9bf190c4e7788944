// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifact

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/readahead"
	"github.com/ulikunitz/xz"
)

// ErrTooLarge is returned by OpenDecompressed for artifacts whose
// stored size exceeds the caller's limit.
var ErrTooLarge = errors.New("artifact too large")

// sniffLen is the number of leading bytes used to detect the content
// type. It matches mimetype's default read limit.
const sniffLen = 3072

// OpenDecompressed opens the named artifact and transparently
// decompresses it if its content is gzip, zstd or xz. Other content
// is returned as is.
//
// If limit is positive and the stored (compressed) size of the
// artifact exceeds it, OpenDecompressed returns an error wrapping
// ErrTooLarge without reading the artifact.
func OpenDecompressed(ctx context.Context, src Source, name string, limit int64) (io.ReadCloser, error) {
	if limit > 0 {
		size, err := src.Size(ctx, name)
		if err != nil {
			return nil, err
		}
		if size > limit {
			return nil, fmt.Errorf("%s is %s, larger than %s: %w", name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)), ErrTooLarge)
		}
	}

	f, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	raw := readahead.NewReadCloser(f)
	br := bufio.NewReaderSize(raw, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var r io.Reader = br
	var closeDec func()
	switch mime := mimetype.Detect(head); {
	case mime.Is("application/gzip"):
		zr, err := gzip.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		r, closeDec = zr, func() { zr.Close() }
	case mime.Is("application/zstd"):
		zr, err := zstd.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		r, closeDec = zr, zr.Close
	case mime.Is("application/x-xz"):
		xr, err := xz.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		r = xr
	}
	return &decompressed{Reader: r, raw: raw, closeDec: closeDec}, nil
}

type decompressed struct {
	io.Reader
	raw      io.Closer
	closeDec func()
}

func (d *decompressed) Close() error {
	if d.closeDec != nil {
		d.closeDec()
	}
	return d.raw.Close()
}

// ReadAllDecompressed reads the whole named artifact through
// OpenDecompressed.
func ReadAllDecompressed(ctx context.Context, src Source, name string, limit int64) ([]byte, error) {
	r, err := OpenDecompressed(ctx, src, name, limit)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}
