// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// golang.org/x/blockstats/storage/db. It must be imported instead of
// github.com/mattn/go-sqlite3 to keep the cache on a single
// connection; an in-memory SQLite database exists per connection.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/blockstats/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		db.SetMaxOpenConns(1)
		return nil
	})
}
