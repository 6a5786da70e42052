// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest provides testing databases for the payload cache.
package dbtest

import (
	"flag"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/blockstats/storage/db"
	_ "golang.org/x/blockstats/storage/db/sqlite3"
	"golang.org/x/net/context"
)

var mysql = flag.String("mysql", "", "connect to this MySQL `dsn` instead of in-memory SQLite")

// NewDB makes a connection to a testing database, either in-memory
// sqlite3 or MySQL depending on the -mysql flag. cleanup must be
// called when done with the testing database, instead of calling
// db.Close()
func NewDB(t *testing.T) (*db.DB, func()) {
	driverName, dataSourceName := "sqlite3", ":memory:"
	if *mysql != "" {
		driverName, dataSourceName = "mysql", *mysql
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	cleanup := func() { d.Close() }

	// Make sure the database really is empty.
	n, err := d.CountEntries(context.Background())
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	if n != 0 {
		cleanup()
		t.Fatalf("found %d row(s) in Payloads, want 0", n)
	}
	return d, cleanup
}
