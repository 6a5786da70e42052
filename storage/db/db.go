// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db provides the SQL-backed payload cache for the blockstats
// server. Payloads are keyed by the start of their capture window;
// eviction is least-recently-used by update time once the cache
// exceeds its entry cap.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"
)

// DefaultMaxEntries is the cache entry cap used when a DB is opened.
const DefaultMaxEntries = 100

// DB is a payload cache backed by a SQL database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// MaxEntries caps the cache; the least recently updated
	// entries past it are evicted on Put.
	MaxEntries int
	// prepared statements
	selectPayload *sql.Stmt
	insertPayload *sql.Stmt
	deletePayload *sql.Stmt
	touchPayload  *sql.Stmt
	listKeys      *sql.Stmt
	listPayloads  *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db, MaxEntries: DefaultMaxEntries}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Payloads (
	StartKey VARCHAR(64) NOT NULL,
	EndKey VARCHAR(64) NOT NULL,
	Content {{if .sqlite3}}BLOB{{else}}LONGBLOB{{end}},
	UpdatedAt BIGINT NOT NULL,
	PRIMARY KEY (StartKey)
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS PayloadsUpdatedAt ON Payloads(UpdatedAt);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.selectPayload, err = db.sql.Prepare("SELECT EndKey, Content FROM Payloads WHERE StartKey = ?")
	if err != nil {
		return err
	}
	db.insertPayload, err = db.sql.Prepare("REPLACE INTO Payloads (StartKey, EndKey, Content, UpdatedAt) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.deletePayload, err = db.sql.Prepare("DELETE FROM Payloads WHERE StartKey = ?")
	if err != nil {
		return err
	}
	db.touchPayload, err = db.sql.Prepare("UPDATE Payloads SET UpdatedAt = ? WHERE StartKey = ?")
	if err != nil {
		return err
	}
	db.listKeys, err = db.sql.Prepare("SELECT StartKey FROM Payloads ORDER BY UpdatedAt ASC")
	if err != nil {
		return err
	}
	db.listPayloads, err = db.sql.Prepare("SELECT StartKey, EndKey, Content FROM Payloads ORDER BY UpdatedAt ASC")
	if err != nil {
		return err
	}
	return nil
}

// now is the clock used for entry update times; tests replace it.
var now = func() int64 { return time.Now().UnixNano() }

// Get returns the cached payload for the window [start, end], or nil
// when the window is not cached. An entry under the same start but a
// different end is stale and gets evicted. A hit refreshes the
// entry's update time.
func (db *DB) Get(ctx context.Context, start, end string) ([]byte, error) {
	var gotEnd string
	var content []byte
	err := db.selectPayload.QueryRowContext(ctx, start).Scan(&gotEnd, &content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if gotEnd != end {
		if _, err := db.deletePayload.ExecContext(ctx, start); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if _, err := db.touchPayload.ExecContext(ctx, now(), start); err != nil {
		return nil, err
	}
	return content, nil
}

// Put stores the payload for the window [start, end], replacing any
// entry under the same start, then evicts the least recently updated
// entries past MaxEntries.
func (db *DB) Put(ctx context.Context, start, end string, payload []byte) error {
	if _, err := db.insertPayload.ExecContext(ctx, start, end, payload, now()); err != nil {
		return err
	}
	return db.evict(ctx)
}

// evict removes the oldest entries until at most MaxEntries remain.
func (db *DB) evict(ctx context.Context) error {
	rows, err := db.listKeys.QueryContext(ctx)
	if err != nil {
		return err
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := 0; i < len(keys)-db.MaxEntries; i++ {
		if _, err := db.deletePayload.ExecContext(ctx, keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// An Entry is one cached payload with its window keys.
type Entry struct {
	Start, End string
	Content    []byte
}

// List returns every cached entry, least recently updated first. The
// server uses it to repopulate its in-memory state on startup.
func (db *DB) List(ctx context.Context) ([]Entry, error) {
	rows, err := db.listPayloads.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Start, &e.End, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries returns the number of cached payloads.
func (db *DB) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Payloads").Scan(&n)
	return n, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	return db.sql.Close()
}
