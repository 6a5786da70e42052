// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockseries aligns per-experiment block statistics into
// comparable cross-experiment series, filters and buckets them, and
// summarizes them into a per-category grid.
package blockseries

import (
	"encoding/json"
	"sort"
	"time"

	"golang.org/x/blockstats/blockstat"
)

// The series kinds tracked per category, in display order.
const (
	KindBlockSize          = "block_size"
	KindCompressionPercent = "compression_percent"
	KindBroadcastTimeAvg   = "broadcast_time_avg"
	KindBroadcastTimeFull  = "broadcast_time_full"
	KindBroadcastTime66p   = "broadcast_time_66p"
	KindCompressionTime    = "compression_time"
	KindDecompressionTime  = "decompression_time"
)

// Kinds lists every series kind in display order.
var Kinds = []string{
	KindBlockSize,
	KindCompressionPercent,
	KindBroadcastTimeAvg,
	KindBroadcastTimeFull,
	KindBroadcastTime66p,
	KindCompressionTime,
	KindDecompressionTime,
}

// A Series is one experiment's trace of one kind within a category.
// An experiment that lacks the category still gets a Series so charts
// and tables stay aligned; its Points are empty.
type Series struct {
	ExperimentName string
	// TimeOrigin is the experiment's earliest instant, zero when
	// the experiment decoded no records.
	TimeOrigin time.Time
	Points     []blockstat.Point
}

// MarshalJSON writes the series in the report shape, with an explicit
// null base timestamp for experiments without data.
func (s *Series) MarshalJSON() ([]byte, error) {
	var base interface{}
	if !s.TimeOrigin.IsZero() {
		base = s.TimeOrigin.UTC().Format(time.RFC3339Nano)
	}
	points := s.Points
	if points == nil {
		points = []blockstat.Point{}
	}
	return json.Marshal(map[string]interface{}{
		"name":    s.ExperimentName,
		"base_ts": base,
		"points":  points,
	})
}

// A UnionEntry is one category aligned across every experiment. The
// slices under Series and BlockSizeByID are indexed by experiment
// position.
type UnionEntry struct {
	Key      string
	Category blockstat.Category
	Label    string
	Series   map[string][]*Series
	// BlockSizeByID holds each experiment's block-size lookup for
	// this category, nil for experiments lacking it.
	BlockSizeByID []map[string]int64
}

// seriesFor returns the category's points of one kind, or nil.
func seriesFor(cs *blockstat.CategoryStats, kind string) []blockstat.Point {
	if cs == nil {
		return nil
	}
	switch kind {
	case KindBlockSize:
		return cs.BlockSize
	case KindCompressionPercent:
		return cs.CompressionPercent
	case KindBroadcastTimeAvg:
		return cs.BroadcastTimeAvg
	case KindBroadcastTimeFull:
		return cs.BroadcastTimeFull
	case KindBroadcastTime66p:
		return cs.BroadcastTime66p
	case KindCompressionTime:
		return cs.CompressionTime
	case KindDecompressionTime:
		return cs.DecompressionTime
	}
	return nil
}

// Union aligns the categories of every experiment. The result is
// sorted by type, then called-from, with absent categories
// represented by empty placeholder series so every entry has one
// series per experiment per kind.
func Union(exps []*blockstat.ExperimentStats) []*UnionEntry {
	seen := make(map[blockstat.Category]bool)
	var cats []blockstat.Category
	for _, es := range exps {
		for _, cs := range es.Categories {
			cat := cs.Category()
			if !seen[cat] {
				seen[cat] = true
				cats = append(cats, cat)
			}
		}
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Type != cats[j].Type {
			return cats[i].Type < cats[j].Type
		}
		return cats[i].CalledFrom < cats[j].CalledFrom
	})

	entries := make([]*UnionEntry, 0, len(cats))
	for _, cat := range cats {
		e := &UnionEntry{
			Key:      cat.Key(),
			Category: cat,
			Label:    cat.Label(),
			Series:   make(map[string][]*Series, len(Kinds)),
		}
		for _, es := range exps {
			cs := es.Categories[cat.Key()]
			for _, kind := range Kinds {
				e.Series[kind] = append(e.Series[kind], &Series{
					ExperimentName: es.ExperimentName,
					TimeOrigin:     es.TimeOrigin,
					Points:         seriesFor(cs, kind),
				})
			}
			var sizes map[string]int64
			if cs != nil {
				sizes = cs.BlockSizeByID
			}
			e.BlockSizeByID = append(e.BlockSizeByID, sizes)
		}
		entries = append(entries, e)
	}
	return entries
}
