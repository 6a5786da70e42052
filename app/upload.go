// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/blockstats/blockfmt"
	"golang.org/x/blockstats/blockstat"
)

// maxUploadBytes caps an uploaded payload after decompression.
const maxUploadBytes = 1 << 30

// upload is the handler for the /upload endpoint. It accepts a
// payload JSON body (gzip tolerated), registers the experiment, and
// persists the payload when the request names its capture window.
func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "/upload must be called as a POST request")
		return
	}

	p, err := blockfmt.ReadPayload(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad payload: %v", err)
		return
	}

	// When the uploader names the capture window, the payload goes
	// into the cache under that window and the experiment gets a
	// window-derived default name.
	var startKey, endKey string
	if r.URL.Query().Get("start") != "" || r.URL.Query().Get("end") != "" {
		start, end, err := parseWindow(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "%v", err)
			return
		}
		startKey, endKey = windowKey(start), windowKey(end)
	}
	if p.ExperimentName == "" {
		if startKey == "" {
			jsonError(w, http.StatusBadRequest, "payload has no experiment_name and no window was given")
			return
		}
		p.ExperimentName = windowName(startKey, endKey)
	}

	es := blockstat.Compute(blockfmt.Decode(p))
	a.register(es)

	if a.DB != nil && startKey != "" {
		// Store the canonical JSON, not the request body, so the
		// cache holds one shape regardless of upload encoding.
		content, err := json.Marshal(p)
		if err != nil {
			jsonError(w, 500, "%v", err)
			return
		}
		if err := a.DB.Put(r.Context(), startKey, endKey, content); err != nil {
			jsonError(w, 500, "cache payload: %v", err)
			return
		}
	}

	writeJSON(w, map[string]interface{}{
		"experiment_name": es.ExperimentName,
		"num_blocks":      len(es.Blocks),
		"num_categories":  len(es.Categories),
	})
}
