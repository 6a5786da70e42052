// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockfmt

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// timeLayouts are the accepted ts0 shapes. Producers write ISO-8601
// with or without fractional seconds and with or without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses an ISO-8601 timestamp as written by the capture
// side. Zoneless timestamps are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// fieldIndex maps each field name to its tuple position. Payloads
// without their own order use the fallback.
func fieldIndex(fields, fallback []string) map[string]int {
	if len(fields) == 0 {
		fields = fallback
	}
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		m[f] = i
	}
	return m
}

// numAt returns the tuple value at the named field, or nil when the
// field is absent, out of range, or null.
func numAt(tuple []*float64, idx map[string]int, field string) *float64 {
	i, ok := idx[field]
	if !ok || i < 0 || i >= len(tuple) {
		return nil
	}
	return tuple[i]
}

// mapAt resolves a dictionary index from the tuple, or "" when the
// index is missing or out of the dictionary's range.
func mapAt(dict []string, tuple []*float64, idx map[string]int, field string) string {
	v := numAt(tuple, idx, field)
	if v == nil {
		return ""
	}
	i := int(*v)
	if i < 0 || i >= len(dict) {
		return ""
	}
	return dict[i]
}

// Decode resolves a raw payload into absolute-time records grouped by
// block. It fails soft: a bad ts0, a blocks value that is not a list,
// or a payload whose records all get skipped yields a DataSet with no
// blocks and a zero TimeOrigin. Individual malformed blocks or
// records are skipped without affecting the rest.
func Decode(p *RawPayload) *DataSet {
	ds := &DataSet{ExperimentName: p.ExperimentName}

	ts0, err := ParseTime(p.TS0)
	if err != nil {
		return ds
	}
	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(p.Blocks, &rawBlocks); err != nil {
		return ds
	}

	recIdx := fieldIndex(p.RecordFields, defaultRecordFields)
	blockIdx := fieldIndex(p.BlockFields, defaultBlockFields)
	sizeIdx := fieldIndex(p.SizeFields, defaultSizeFields)

	var origin time.Time
	seen := func(t time.Time) {
		if origin.IsZero() || t.Before(origin) {
			origin = t
		}
	}

	for _, rawBlock := range rawBlocks {
		var tuple []json.RawMessage
		if err := json.Unmarshal(rawBlock, &tuple); err != nil {
			continue
		}
		id := blockID(tuple, blockIdx)
		sizes := sizeTable(tuple, blockIdx, sizeIdx)
		recs := rawRecords(tuple, blockIdx)

		b := &Block{ID: id}
		for _, rec := range recs {
			startUS := numAt(rec, recIdx, "start_us")
			durUS := numAt(rec, recIdx, "duration_us")
			if startUS == nil || durUS == nil {
				continue
			}
			start := ts0.Add(time.Duration(*startUS * float64(time.Microsecond)))
			end := start.Add(time.Duration(*durUS * float64(time.Microsecond)))

			r := Record{
				BlockID:     id,
				NodeID:      -1,
				Start:       start,
				End:         end,
				DurationSec: *durUS / 1e6,
				Stage:       mapAt(p.Maps.Stage, rec, recIdx, "stage_idx"),
				Type:        mapAt(p.Maps.Type, rec, recIdx, "type_idx"),
				CalledFrom:  mapAt(p.Maps.CalledFrom, rec, recIdx, "called_from_idx"),
				Compression: mapAt(p.Maps.Compression, rec, recIdx, "compression_idx"),
			}
			if v := numAt(rec, recIdx, "node_idx"); v != nil {
				r.NodeID = int(*v)
			}
			if v := numAt(rec, recIdx, "size_idx"); v != nil {
				if i := int(*v); i >= 0 && i < len(sizes) {
					r.OriginalSize = sizes[i][0]
					r.CompressedSize = sizes[i][1]
				}
			}
			seen(start)
			seen(end)
			b.Records = append(b.Records, r)
		}
		if len(b.Records) == 0 {
			continue
		}
		sort.SliceStable(b.Records, func(i, j int) bool {
			return b.Records[i].Start.Before(b.Records[j].Start)
		})
		ds.Blocks = append(ds.Blocks, b)
	}
	ds.TimeOrigin = origin
	return ds
}

// blockID extracts the block id from a block tuple. Producers write a
// string, but a bare number is tolerated and used verbatim.
func blockID(tuple []json.RawMessage, idx map[string]int) string {
	i, ok := idx["block_id"]
	if !ok || i < 0 || i >= len(tuple) {
		return ""
	}
	var s string
	if err := json.Unmarshal(tuple[i], &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(tuple[i]))
}

// sizeTable extracts the block's size-pair table. Unknown sizes
// (null or missing) become 0.
func sizeTable(tuple []json.RawMessage, blockIdx, sizeIdx map[string]int) [][2]int64 {
	i, ok := blockIdx["size_map"]
	if !ok || i < 0 || i >= len(tuple) {
		return nil
	}
	var raw [][]*int64
	if err := json.Unmarshal(tuple[i], &raw); err != nil {
		return nil
	}
	oi, ci := sizeIdx["original_size"], sizeIdx["compressed_size"]
	sizes := make([][2]int64, len(raw))
	for j, pair := range raw {
		if oi >= 0 && oi < len(pair) && pair[oi] != nil {
			sizes[j][0] = *pair[oi]
		}
		if ci >= 0 && ci < len(pair) && pair[ci] != nil {
			sizes[j][1] = *pair[ci]
		}
	}
	return sizes
}

// rawRecords extracts the block's record tuples. Every tuple element
// is numeric or null on the wire.
func rawRecords(tuple []json.RawMessage, idx map[string]int) [][]*float64 {
	i, ok := idx["records"]
	if !ok || i < 0 || i >= len(tuple) {
		return nil
	}
	var recs [][]*float64
	if err := json.Unmarshal(tuple[i], &recs); err != nil {
		return nil
	}
	return recs
}
