// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package app implements the blockstats server. Combine an App with a
// payload cache database to get an HTTP server that accepts payload
// uploads and serves recomputed statistics and the summary report.
package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/blockstats/blockfmt"
	"golang.org/x/blockstats/blockstat"
	"golang.org/x/blockstats/storage/db"
	"golang.org/x/net/context"
)

// App manages the server logic. Construct an App instance with a DB
// and call RegisterOnMux to connect it with an HTTP server.
type App struct {
	// DB is the payload cache. It may be nil, in which case
	// nothing persists across restarts and /data always misses.
	DB *db.DB

	mu sync.RWMutex
	// exps holds one entry per uploaded experiment, in upload
	// order. An upload under an existing name replaces it.
	exps []*blockstat.ExperimentStats
}

// RegisterOnMux registers the app's URLs on mux.
func (a *App) RegisterOnMux(mux *http.ServeMux) {
	mux.HandleFunc("/", a.report)
	mux.HandleFunc("/upload", a.upload)
	mux.HandleFunc("/data", a.data)
	mux.HandleFunc("/stats", a.stats)
}

// register adds an experiment's stats, replacing any previous upload
// under the same name.
func (a *App) register(es *blockstat.ExperimentStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, old := range a.exps {
		if old.ExperimentName == es.ExperimentName {
			a.exps[i] = es
			return
		}
	}
	a.exps = append(a.exps, es)
}

// experiments returns a snapshot of the registered experiments.
func (a *App) experiments() []*blockstat.ExperimentStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*blockstat.ExperimentStats(nil), a.exps...)
}

// LoadFromCache decodes every cached payload and registers it, so a
// restarted server comes back up with its experiments. Payloads that
// fail to parse are skipped.
func (a *App) LoadFromCache(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	entries, err := a.DB.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := new(blockfmt.RawPayload)
		if err := json.Unmarshal(e.Content, p); err != nil {
			continue
		}
		if p.ExperimentName == "" {
			p.ExperimentName = windowName(e.Start, e.End)
		}
		a.register(blockstat.Compute(blockfmt.Decode(p)))
	}
	return nil
}

// windowName is the experiment name given to payloads identified only
// by their capture window.
func windowName(start, end string) string {
	return fmt.Sprintf("devnet %s..%s", start, end)
}

// windowKey renders a window bound as a cache key: UTC, "Z" suffix,
// milliseconds only when the instant has a fractional second.
func windowKey(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}

// parseWindow parses the start/end query parameters. A missing or
// malformed bound, or end <= start, is an error for the client.
func parseWindow(r *http.Request) (start, end time.Time, err error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		return start, end, fmt.Errorf("missing 'start' or 'end' query parameter")
	}
	if start, err = blockfmt.ParseTime(startRaw); err != nil {
		return start, end, fmt.Errorf("invalid timestamp: %v", err)
	}
	if end, err = blockfmt.ParseTime(endRaw); err != nil {
		return start, end, fmt.Errorf("invalid timestamp: %v", err)
	}
	if !end.After(start) {
		return start, end, fmt.Errorf("end must be greater than start")
	}
	return start, end, nil
}

// jsonError writes a {"error": msg} response with the given status.
func jsonError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": fmt.Sprintf(format, args...)})
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		jsonError(w, 500, "%v", err)
	}
}
