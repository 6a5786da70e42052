// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Blockserver runs the blockstats HTTP server backed by a payload
// cache database. By default it uses an in-memory SQLite database;
// pass -driver and -dsn to use MySQL instead.
package main

import (
	"flag"
	"log"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/blockstats/app"
	"golang.org/x/blockstats/storage/db"
	_ "golang.org/x/blockstats/storage/db/sqlite3"
	"golang.org/x/net/context"
)

var (
	addr   = flag.String("addr", ":8080", "serve HTTP on `address`")
	driver = flag.String("driver", "sqlite3", "database/sql `driver` for the payload cache")
	dsn    = flag.String("dsn", ":memory:", "database `source` for the payload cache")
)

func main() {
	flag.Parse()

	d, err := db.OpenSQL(*driver, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	a := &app.App{DB: d}
	if err := a.LoadFromCache(context.Background()); err != nil {
		log.Fatalf("load cached payloads: %v", err)
	}
	a.RegisterOnMux(http.DefaultServeMux)

	log.Printf("Listening on %s", *addr)

	log.Fatal(http.ListenAndServe(*addr, nil))
}
