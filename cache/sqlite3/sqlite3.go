// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

// Package sqlite3 provides the sqlite3 driver for the cache package.
// It must be imported instead of go-sqlite3 to ensure connections are
// configured for the cache. Without cgo it provides nothing.
package sqlite3

import (
	"database/sql"

	"github.com/fpspin/benchviz/cache"
	sqlite3 "github.com/mattn/go-sqlite3"
)

func init() {
	cache.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// An in-memory database exists per connection, and a file
		// database serializes writers anyway.
		db.SetMaxOpenConns(1)
		db.Driver().(*sqlite3.SQLiteDriver).ConnectHook = func(c *sqlite3.SQLiteConn) error {
			_, err := c.Exec("PRAGMA busy_timeout = 5000", nil)
			return err
		}
		return nil
	})
}
