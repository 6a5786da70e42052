// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"net/http"
	"strconv"

	"golang.org/x/blockstats/blockseries"
)

// statsEntry is one visible category in a /stats response, with the
// filter pipeline already applied to every series.
type statsEntry struct {
	Key    string                           `json:"key"`
	Label  string                           `json:"label"`
	Series map[string][]*blockseries.Series `json:"series"`
}

// statsCell is one experiment's summary column for a category; null
// in the response when the experiment lacks the category.
type statsCell struct {
	NumBlocks int                `json:"num_blocks"`
	Values    map[string]float64 `json:"values"`
}

type statsRow struct {
	Key   string         `json:"key"`
	Label string         `json:"label"`
	Cells []*statsCell   `json:"cells"`
	Best  map[string]int `json:"best"`
}

type statsResponse struct {
	Experiments []string                 `json:"experiments"`
	Filter      blockseries.FilterConfig `json:"filter"`
	Entries     []*statsEntry            `json:"entries"`
	Summary     []*statsRow              `json:"summary"`
}

// filterFromQuery builds the filter state for one request: the
// defaults for the loaded series, overridden by any query parameter
// that is present.
func filterFromQuery(r *http.Request, entries []*blockseries.UnionEntry) (blockseries.FilterConfig, error) {
	cfg := blockseries.DefaultFilterConfig(entries)
	q := r.URL.Query()

	setFloat := func(name string, dst *float64) error {
		if s := q.Get(name); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*dst = v
		}
		return nil
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"start", &cfg.WindowMin},
		{"end", &cfg.WindowMax},
		{"trim_head", &cfg.TrimHead},
		{"trim_tail", &cfg.TrimTail},
		{"bucket", &cfg.BucketWidth},
	} {
		if err := setFloat(p.name, p.dst); err != nil {
			return cfg, err
		}
	}
	if s := q.Get("min_block_size"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return cfg, err
		}
		cfg.MinBlockSize = v
	}
	if s := q.Get("trim"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return cfg, err
		}
		cfg.TrimEdges = v
	}
	return cfg, nil
}

// stats is the handler for the /stats endpoint. Every request
// recomputes the union, aggregation, and summary in full from the
// registered experiments and the request's filter state.
func (a *App) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "/stats must be called as a GET request")
		return
	}
	exps := a.experiments()
	entries := blockseries.Union(exps)
	cfg, err := filterFromQuery(r, entries)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad filter parameter: %v", err)
		return
	}

	resp := &statsResponse{Filter: cfg}
	for _, es := range exps {
		resp.Experiments = append(resp.Experiments, es.ExperimentName)
	}
	for _, e := range entries {
		if !blockseries.Visible(e, cfg) {
			continue
		}
		out := &statsEntry{
			Key:    e.Key,
			Label:  e.Label,
			Series: make(map[string][]*blockseries.Series, len(blockseries.Kinds)),
		}
		for _, kind := range blockseries.Kinds {
			for i, s := range e.Series[kind] {
				out.Series[kind] = append(out.Series[kind], &blockseries.Series{
					ExperimentName: s.ExperimentName,
					TimeOrigin:     s.TimeOrigin,
					Points:         blockseries.Aggregate(s.Points, e.BlockSizeByID[i], cfg),
				})
			}
		}
		resp.Entries = append(resp.Entries, out)
	}
	for _, row := range blockseries.Summarize(entries, cfg).Rows {
		out := &statsRow{Key: row.Key, Label: row.Label, Best: row.Best}
		for _, cell := range row.Cells {
			if !cell.Defined() {
				out.Cells = append(out.Cells, nil)
				continue
			}
			out.Cells = append(out.Cells, &statsCell{NumBlocks: cell.NumBlocks, Values: cell.Values})
		}
		resp.Summary = append(resp.Summary, out)
	}
	writeJSON(w, resp)
}
