// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache memoizes derived analysis results across runs.
//
// A Store maps string keys to JSON-encoded values. A key that has
// never been saved, or whose stored value cannot be decoded, is a
// miss: Load reports false and the caller recomputes. There is no
// invalidation. Callers that change the inputs of a cached
// computation must remove the stale entry themselves.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// A Store is a persistent key/value cache.
type Store interface {
	// Load decodes the value stored under key into v. It reports
	// whether the key was present and decodable.
	Load(key string, v any) (bool, error)

	// Save stores v under key, replacing any previous value.
	Save(key string, v any) error

	// Close releases any resources held by the Store.
	Close() error
}

// Key builds a cache key from a prefix and configuration parameters,
// joined by underscores. For example, Key("dump", 8, "int8_t") is
// "dump_8_int8_t".
func Key(prefix string, params ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		fmt.Fprintf(&b, "_%v", p)
	}
	return b.String()
}

// Open opens the Store described by spec. A spec of the form
// "driver:dsn" opens a SQL store with that driver (sqlite3 or mysql);
// anything else is a directory for a Files store.
func Open(spec string) (Store, error) {
	if driver, dsn, ok := strings.Cut(spec, ":"); ok {
		switch driver {
		case "sqlite3", "mysql":
			return OpenSQL(driver, dsn)
		}
	}
	if spec == "" {
		spec = "."
	}
	return Files(spec), nil
}

// Files is a Store that keeps one JSON file per key in a directory.
type Files string

func (d Files) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("bad cache key %q", key)
	}
	return filepath.Join(string(d), key+".json"), nil
}

func (d Files) Load(key string, v any) (bool, error) {
	p, err := d.path(key)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	// A truncated or empty file from an interrupted run is a miss.
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

func (d Files) Save(key string, v any) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := os.MkdirAll(string(d), 0o777); err != nil {
		return err
	}
	f, err := os.CreateTemp(string(d), key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}

func (d Files) Close() error {
	return nil
}
