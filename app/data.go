// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
)

// data is the handler for the /data endpoint. It serves the cached
// raw payload for a capture window, gzip-compressed.
func (a *App) data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "/data must be called as a GET request")
		return
	}
	start, end, err := parseWindow(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "%v", err)
		return
	}

	var content []byte
	if a.DB != nil {
		content, err = a.DB.Get(r.Context(), windowKey(start), windowKey(end))
		if err != nil {
			jsonError(w, 500, "%v", err)
			return
		}
	}
	if content == nil {
		jsonError(w, http.StatusNotFound, "no cached payload for %s .. %s", windowKey(start), windowKey(end))
		return
	}

	var buf bytes.Buffer
	zw, _ := gzip.NewWriterLevel(&buf, 3)
	if _, err := zw.Write(content); err != nil {
		jsonError(w, 500, "%v", err)
		return
	}
	if err := zw.Close(); err != nil {
		jsonError(w, 500, "%v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Uncompressed-Length", fmt.Sprint(len(content)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.Write(buf.Bytes())
}
