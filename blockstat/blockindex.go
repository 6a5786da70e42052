// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockstat

import (
	"sort"
	"time"

	"golang.org/x/blockstats/blockfmt"
)

// A BlockTimeline is one block's flattened timeline, used for
// block-level drill-down independent of the category aggregation.
// Times are seconds since the experiment's time origin.
type BlockTimeline struct {
	// UniqueKey distinguishes the same block id across
	// experiments.
	UniqueKey      string `json:"unique_key"`
	ExperimentName string `json:"experiment_name"`
	BlockID        string `json:"block_id"`
	// SizeBytes is the block's first positive original size, or 0
	// when none of its records reported one.
	SizeBytes int64   `json:"size_bytes"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	// Records keep the decoder's start order.
	Records []blockfmt.Record `json:"records"`
	// SignatureDurations maps a category key to the span
	// max(end)-min(start) over the block's records with that
	// signature. Negative spans are dropped.
	SignatureDurations map[string]float64 `json:"signature_durations"`
}

// buildBlockIndex flattens every decoded block into a timeline entry,
// ordered by start time.
func buildBlockIndex(ds *blockfmt.DataSet) []*BlockTimeline {
	sec := func(t time.Time) float64 { return t.Sub(ds.TimeOrigin).Seconds() }

	var index []*BlockTimeline
	for _, b := range ds.Blocks {
		if len(b.Records) == 0 {
			continue
		}
		bt := &BlockTimeline{
			UniqueKey:          ds.ExperimentName + "__" + b.ID,
			ExperimentName:     ds.ExperimentName,
			BlockID:            b.ID,
			Records:            b.Records,
			SignatureDurations: make(map[string]float64),
		}

		start, end := b.Records[0].Start, b.Records[0].End
		type span struct{ start, end time.Time }
		spans := make(map[Category]*span)
		for _, r := range b.Records {
			if r.Start.Before(start) {
				start = r.Start
			}
			if r.End.After(end) {
				end = r.End
			}
			if r.OriginalSize > 0 && bt.SizeBytes == 0 {
				bt.SizeBytes = r.OriginalSize
			}
			cat := Category{Type: r.Type, CalledFrom: r.CalledFrom}
			sp := spans[cat]
			if sp == nil {
				spans[cat] = &span{r.Start, r.End}
				continue
			}
			if r.Start.Before(sp.start) {
				sp.start = r.Start
			}
			if r.End.After(sp.end) {
				sp.end = r.End
			}
		}
		bt.Start, bt.End = sec(start), sec(end)
		bt.Duration = bt.End - bt.Start
		for cat, sp := range spans {
			if d := sp.end.Sub(sp.start).Seconds(); d >= 0 {
				bt.SignatureDurations[cat.Key()] = d
			}
		}
		index = append(index, bt)
	}
	sort.SliceStable(index, func(i, j int) bool {
		if index[i].Start != index[j].Start {
			return index[i].Start < index[j].Start
		}
		return index[i].UniqueKey < index[j].UniqueKey
	})
	return index
}
