// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Blockstat computes and compares block broadcast statistics from
// benchmark payload files.
//
// Usage:
//
//	blockstat [flags] payload.json...
//
// Each payload file is one experiment. The summary grid is written to
// stdout as CSV; -json dumps the full per-experiment statistics and
// -png renders charts.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"golang.org/x/blockstats/blockfmt"
	"golang.org/x/blockstats/blockseries"
	"golang.org/x/blockstats/blockstat"
)

func main() {
	var (
		start        = flag.Float64("start", math.Inf(-1), "window start in `seconds` since the experiment origin")
		end          = flag.Float64("end", math.Inf(1), "window end in `seconds` since the experiment origin")
		minBlockSize = flag.Int64("min-block-size", 0, "drop blocks smaller than `bytes`")
		trim         = flag.Bool("trim", true, "trim the startup and shutdown edges")
		trimHead     = flag.Float64("trim-head", blockseries.DefaultTrimHead, "`seconds` trimmed from the start")
		trimTail     = flag.Float64("trim-tail", blockseries.DefaultTrimTail, "`seconds` trimmed from the end")
		bucket       = flag.Float64("bucket", blockseries.DefaultBucketWidth, "bucket `width` in seconds for chart series, 0 to disable")
		csvOut       = flag.Bool("csv", true, "write the summary grid as CSV to stdout")
		jsonOut      = flag.String("json", "", "write per-experiment statistics JSON to `file`")
		pngDir       = flag.String("png", "", "write png chart(s) into `dir`")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		fail("no payload files given\n")
	}

	payloads, err := blockfmt.ReadFiles(flag.Args())
	if err != nil {
		fail("%v\n", err)
	}
	var exps []*blockstat.ExperimentStats
	for _, p := range payloads {
		es := blockstat.Compute(blockfmt.Decode(p))
		if es.TimeOrigin.IsZero() {
			warn("%s: no usable records\n", es.ExperimentName)
		}
		exps = append(exps, es)
	}

	entries := blockseries.Union(exps)
	cfg := blockseries.DefaultFilterConfig(entries)
	cfg.MinBlockSize = *minBlockSize
	cfg.TrimEdges = *trim
	cfg.TrimHead = *trimHead
	cfg.TrimTail = *trimTail
	cfg.BucketWidth = *bucket
	if !math.IsInf(*start, -1) {
		cfg.WindowMin = *start
	}
	if !math.IsInf(*end, 1) {
		cfg.WindowMax = *end
	}

	if *jsonOut != "" {
		f, err := os.Create(*jsonOut)
		if err != nil {
			fail("%v\n", err)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exps); err != nil {
			fail("%v\n", err)
		}
		f.Close()
	}

	if *csvOut {
		writeCSV(os.Stdout, blockseries.Summarize(entries, cfg))
	}

	if *pngDir != "" {
		if err := blockseries.Chart(entries, cfg, *pngDir); err != nil {
			fail("%v\n", err)
		}
	}
}

// writeCSV writes the summary grid, one line per category and metric
// with one column per experiment. A trailing asterisk marks the best
// value.
func writeCSV(f *os.File, s *blockseries.Summary) {
	w := csv.NewWriter(f)
	w.Write(append([]string{"category", "metric"}, s.Experiments...))
	for _, row := range s.Rows {
		for _, metric := range blockseries.Metrics {
			record := []string{row.Label, metric}
			bestIdx, marked := row.Best[metric]
			for i, cell := range row.Cells {
				if !cell.Defined() {
					record = append(record, "")
					continue
				}
				v := fmt.Sprintf("%g", cell.Values[metric])
				if marked && i == bestIdx {
					v += "*"
				}
				record = append(record, v)
			}
			w.Write(record)
		}
	}
	w.Flush()
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}
