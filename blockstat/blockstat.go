// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockstat derives per-category statistics and a per-block
// timeline index from decoded block telemetry.
//
// Records are grouped by category, the (type, called-from) pair, and
// then by block id. Each block with at least one compress and one
// decompress record yields broadcast-time and size points anchored at
// the block's earliest compression start; every record also yields a
// raw duration point. All times are shifted so the experiment's
// earliest instant is zero.
package blockstat

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/blockstats/blockfmt"
	"golang.org/x/blockstats/blockmath"
)

// A Point is one (time, value) sample. Time is seconds since the
// experiment's time origin. Points derived from a block carry its id;
// aggregated points do not.
type Point struct {
	T       float64
	V       float64
	BlockID string
}

// MarshalJSON writes the point as a [t, v] or [t, v, block_id] tuple,
// matching the stats JSON the capture tooling emits.
func (p Point) MarshalJSON() ([]byte, error) {
	if p.BlockID == "" {
		return json.Marshal([2]float64{p.T, p.V})
	}
	return json.Marshal([3]interface{}{p.T, p.V, p.BlockID})
}

// UnmarshalJSON reads either tuple shape.
func (p *Point) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) < 2 {
		return fmt.Errorf("point tuple has %d elements, want at least 2", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.T); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &p.V); err != nil {
		return err
	}
	p.BlockID = ""
	if len(tuple) > 2 {
		return json.Unmarshal(tuple[2], &p.BlockID)
	}
	return nil
}

// A Category classifies records by type and call-site origin. An
// empty CalledFrom means the records carried no origin.
type Category struct {
	Type       string
	CalledFrom string
}

// Key is the category's map key, "{type}__{origin}" with the literal
// "None" for an absent origin.
func (c Category) Key() string {
	cf := c.CalledFrom
	if cf == "" {
		cf = "None"
	}
	return c.Type + "__" + cf
}

// Label is the category's display name.
func (c Category) Label() string {
	if c.CalledFrom == "" || c.CalledFrom == "None" {
		return c.Type
	}
	return fmt.Sprintf("%s (%s)", c.Type, c.CalledFrom)
}

// CategoryStats holds one category's derived series for one
// experiment.
type CategoryStats struct {
	Type       string `json:"type"`
	CalledFrom string `json:"called_from,omitempty"`
	NumBlocks  int    `json:"num_blocks"`

	BlockSize          []Point `json:"block_size_points"`
	CompressionPercent []Point `json:"compression_percent_points"`
	BroadcastTimeAvg   []Point `json:"broadcast_time_avg_points"`
	BroadcastTimeFull  []Point `json:"broadcast_time_full_points"`
	BroadcastTime66p   []Point `json:"broadcast_time_66p_points"`
	CompressionTime    []Point `json:"compression_time_points"`
	DecompressionTime  []Point `json:"decompression_time_points"`

	// BlockSizeByID maps block id to its original size in bytes,
	// for size filtering of any series by block id.
	BlockSizeByID map[string]int64 `json:"block_size_by_id"`
}

// Category returns the stats' category.
func (cs *CategoryStats) Category() Category {
	return Category{Type: cs.Type, CalledFrom: cs.CalledFrom}
}

// ExperimentStats holds everything derived from one experiment's
// payload. An experiment whose payload failed to decode has a zero
// TimeOrigin and no categories.
type ExperimentStats struct {
	ExperimentName string
	TimeOrigin     time.Time
	// Categories is keyed by Category.Key.
	Categories map[string]*CategoryStats
	// Blocks is the flat block timeline index, ordered by start.
	Blocks []*BlockTimeline
}

// MarshalJSON writes the stats in the shape served to report
// consumers. A missing time origin is an explicit null.
func (es *ExperimentStats) MarshalJSON() ([]byte, error) {
	var origin interface{}
	if !es.TimeOrigin.IsZero() {
		origin = es.TimeOrigin.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(map[string]interface{}{
		"experiment_name":        es.ExperimentName,
		"earliest_ts_global":     origin,
		"type_called_from_stats": es.Categories,
		"blocks":                 es.Blocks,
	})
}

// sortPoints orders points by time, then value, then block id.
func sortPoints(points []Point) {
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.T != b.T {
			return a.T < b.T
		}
		if a.V != b.V {
			return a.V < b.V
		}
		return a.BlockID < b.BlockID
	})
}

// Compute derives the per-category statistics and the block timeline
// index from a decoded payload. An empty DataSet yields empty stats.
func Compute(ds *blockfmt.DataSet) *ExperimentStats {
	es := &ExperimentStats{
		ExperimentName: ds.ExperimentName,
		TimeOrigin:     ds.TimeOrigin,
		Categories:     make(map[string]*CategoryStats),
	}
	if ds.TimeOrigin.IsZero() {
		return es
	}

	type catBlocks struct {
		cat     Category
		order   []string
		byBlock map[string][]blockfmt.Record
	}
	grouped := make(map[Category]*catBlocks)
	var catOrder []Category
	for _, b := range ds.Blocks {
		for _, r := range b.Records {
			cat := Category{Type: r.Type, CalledFrom: r.CalledFrom}
			g := grouped[cat]
			if g == nil {
				g = &catBlocks{cat: cat, byBlock: make(map[string][]blockfmt.Record)}
				grouped[cat] = g
				catOrder = append(catOrder, cat)
			}
			if _, ok := g.byBlock[b.ID]; !ok {
				g.order = append(g.order, b.ID)
			}
			g.byBlock[b.ID] = append(g.byBlock[b.ID], r)
		}
	}

	for _, cat := range catOrder {
		g := grouped[cat]
		cs := computeCategory(g.cat, g.order, g.byBlock, ds.TimeOrigin)
		es.Categories[cat.Key()] = cs
	}
	es.Blocks = buildBlockIndex(ds)
	return es
}

// computeCategory derives one category's series. Records within a
// block keep their start order from the decoder.
func computeCategory(cat Category, order []string, byBlock map[string][]blockfmt.Record, origin time.Time) *CategoryStats {
	cs := &CategoryStats{
		Type:          cat.Type,
		CalledFrom:    cat.CalledFrom,
		NumBlocks:     len(byBlock),
		BlockSizeByID: make(map[string]int64),
	}
	sec := func(t time.Time) float64 { return t.Sub(origin).Seconds() }

	for _, blockID := range order {
		recs := byBlock[blockID]

		var compStarts, decompEnds []float64
		var origSize, compSize int64
		for _, r := range recs {
			switch r.Stage {
			case blockfmt.StageCompress:
				compStarts = append(compStarts, sec(r.Start))
				cs.CompressionTime = append(cs.CompressionTime, Point{sec(r.End), r.DurationSec, blockID})
			case blockfmt.StageDecompress:
				decompEnds = append(decompEnds, sec(r.End))
				cs.DecompressionTime = append(cs.DecompressionTime, Point{sec(r.End), r.DurationSec, blockID})
			}
			if origSize == 0 && r.OriginalSize > 0 {
				origSize = r.OriginalSize
			}
			if compSize == 0 && r.CompressedSize > 0 {
				compSize = r.CompressedSize
			}
		}
		// Broadcast and size points need the compress and
		// decompress sides both present.
		if len(compStarts) == 0 || len(decompEnds) == 0 {
			continue
		}

		anchor := compStarts[0]
		for _, t := range compStarts[1:] {
			if t < anchor {
				anchor = t
			}
		}
		latest := decompEnds[0]
		relEnds := make([]float64, len(decompEnds))
		for i, t := range decompEnds {
			if t > latest {
				latest = t
			}
			relEnds[i] = t - anchor
		}

		cs.BroadcastTimeFull = append(cs.BroadcastTimeFull, Point{anchor, latest - anchor, blockID})
		cs.BroadcastTimeAvg = append(cs.BroadcastTimeAvg, Point{anchor, blockmath.Mean(decompEnds) - anchor, blockID})
		cs.BroadcastTime66p = append(cs.BroadcastTime66p, Point{anchor, blockmath.Percentile(relEnds, 66), blockID})

		if origSize > 0 && compSize > 0 {
			cs.BlockSize = append(cs.BlockSize, Point{anchor, float64(origSize), blockID})
			cs.BlockSizeByID[blockID] = origSize
			percent := float64(origSize-compSize) / float64(origSize)
			cs.CompressionPercent = append(cs.CompressionPercent, Point{anchor, percent, blockID})
		}
	}

	sortPoints(cs.BlockSize)
	sortPoints(cs.CompressionPercent)
	sortPoints(cs.BroadcastTimeAvg)
	sortPoints(cs.BroadcastTimeFull)
	sortPoints(cs.BroadcastTime66p)
	sortPoints(cs.CompressionTime)
	sortPoints(cs.DecompressionTime)
	return cs
}
