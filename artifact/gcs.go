// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS is a Source backed by objects under a prefix of a Cloud Storage
// bucket.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS returns a Source for a root of the form gs://bucket/prefix.
// To read public buckets without credentials, pass
// option.WithoutAuthentication().
func NewGCS(ctx context.Context, root string, opts ...option.ClientOption) (*GCS, error) {
	bucket, prefix, err := parseGCSRoot(root)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCS{bucket: client.Bucket(bucket), name: bucket, prefix: prefix}, nil
}

func parseGCSRoot(root string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(root, "gs://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if !ok || bucket == "" {
		return "", "", fmt.Errorf("bad Cloud Storage root %q: want gs://bucket/prefix", root)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.bucket.Object(path.Join(g.prefix, name))
}

func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.object(name).NewReader(ctx)
	if err != nil {
		return nil, g.wrap(name, err)
	}
	return r, nil
}

func (g *GCS) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := g.object(name).Attrs(ctx)
	if err != nil {
		return 0, g.wrap(name, err)
	}
	return attrs.Size, nil
}

func (g *GCS) String() string {
	return "gs://" + path.Join(g.name, g.prefix)
}

func (g *GCS) wrap(name string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return &fs.PathError{Op: "open", Path: g.String() + "/" + name, Err: fs.ErrNotExist}
	}
	return fmt.Errorf("%s/%s: %w", g, name, err)
}
