// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockfmt

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"testing"
	"time"
)

func parsePayload(t *testing.T, src string) *RawPayload {
	t.Helper()
	p := new(RawPayload)
	if err := json.Unmarshal([]byte(src), p); err != nil {
		t.Fatalf("payload does not parse: %v", err)
	}
	return p
}

const samplePayload = `{
  "experiment_name": "run-a",
  "ts0": "2026-01-13T21:16:11+00:00",
  "maps": {
    "stage": ["compress", "decompress"],
    "type": ["shred", "entry"],
    "called_from": ["replay"]
  },
  "blocks": [
    ["blk1",
     [[1000, 400], [null, 7]],
     [[3, 1000000, 500000, 0, 0, 0, null, 0],
      [5, 2500000, 250000, 1, 0, null, null, null],
      [4, 500000, 100000, 1, 0, 9, null, 1]]],
    ["blk2", [], [[1, null, 1000, 0, 1, 0, null, null]]],
    ["blk3", [], "not a list"]
  ]
}`

func TestDecode(t *testing.T) {
	ds := Decode(parsePayload(t, samplePayload))

	if ds.ExperimentName != "run-a" {
		t.Errorf("experiment name = %q, want run-a", ds.ExperimentName)
	}
	if len(ds.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1: %+v", len(ds.Blocks), ds.Blocks)
	}
	b := ds.Blocks[0]
	if b.ID != "blk1" {
		t.Errorf("block id = %q, want blk1", b.ID)
	}
	if len(b.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(b.Records))
	}

	ts0 := time.Date(2026, 1, 13, 21, 16, 11, 0, time.UTC)

	// Records come back sorted by start, so the 0.5s decompress
	// record is first.
	r := b.Records[0]
	if want := ts0.Add(500 * time.Millisecond); !r.Start.Equal(want) {
		t.Errorf("start = %v, want %v", r.Start, want)
	}
	if want := ts0.Add(600 * time.Millisecond); !r.End.Equal(want) {
		t.Errorf("end = %v, want %v", r.End, want)
	}
	if r.Stage != StageDecompress || r.Type != "shred" || r.NodeID != 4 {
		t.Errorf("resolved record = %+v", r)
	}
	if r.CalledFrom != "" {
		t.Errorf("out-of-range called_from resolved to %q, want empty", r.CalledFrom)
	}
	if r.DurationSec != 0.1 {
		t.Errorf("duration = %v, want 0.1", r.DurationSec)
	}
	// Second size pair has a null original size.
	if r.OriginalSize != 0 || r.CompressedSize != 7 {
		t.Errorf("sizes = (%d, %d), want (0, 7)", r.OriginalSize, r.CompressedSize)
	}

	r = b.Records[1]
	if r.Stage != StageCompress || r.CalledFrom != "replay" {
		t.Errorf("resolved record = %+v", r)
	}
	if r.OriginalSize != 1000 || r.CompressedSize != 400 {
		t.Errorf("sizes = (%d, %d), want (1000, 400)", r.OriginalSize, r.CompressedSize)
	}

	r = b.Records[2]
	if r.OriginalSize != 0 || r.CompressedSize != 0 {
		t.Errorf("record without size_idx got sizes (%d, %d)", r.OriginalSize, r.CompressedSize)
	}

	// Origin is the earliest instant anywhere in the payload, here
	// the first record's start.
	if want := ts0.Add(500 * time.Millisecond); !ds.TimeOrigin.Equal(want) {
		t.Errorf("time origin = %v, want %v", ds.TimeOrigin, want)
	}
}

func TestDecodeSkipsIncompleteRecords(t *testing.T) {
	// blk2 in samplePayload has only a record with a null start_us.
	ds := Decode(parsePayload(t, samplePayload))
	for _, b := range ds.Blocks {
		if b.ID == "blk2" {
			t.Errorf("block with only skipped records survived: %+v", b)
		}
	}
}

func TestDecodeSoftFailure(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad ts0", `{"ts0": "not a time", "blocks": []}`},
		{"blocks not a list", `{"ts0": "2026-01-13T21:16:11+00:00", "blocks": {"a": 1}}`},
		{"blocks missing", `{"ts0": "2026-01-13T21:16:11+00:00"}`},
		{"all records skipped", `{"ts0": "2026-01-13T21:16:11+00:00", "blocks": [["b", [], [[1, null, null, 0, 0, 0, null, null]]]]}`},
	}
	for _, test := range tests {
		ds := Decode(parsePayload(t, test.src))
		if len(ds.Blocks) != 0 || !ds.TimeOrigin.IsZero() {
			t.Errorf("%s: got %d blocks, origin %v; want empty sentinel", test.name, len(ds.Blocks), ds.TimeOrigin)
		}
	}
}

func TestDecodeCustomFieldOrder(t *testing.T) {
	const src = `{
  "ts0": "2026-01-13T21:16:11+00:00",
  "record_fields": ["start_us", "duration_us", "stage_idx", "type_idx"],
  "block_fields": ["records", "block_id"],
  "maps": {"stage": ["compress"], "type": ["shred"]},
  "blocks": [[[[1000000, 2000000, 0, 0]], "blk9"]]
}`
	ds := Decode(parsePayload(t, src))
	if len(ds.Blocks) != 1 || ds.Blocks[0].ID != "blk9" {
		t.Fatalf("custom field order not honored: %+v", ds.Blocks)
	}
	r := ds.Blocks[0].Records[0]
	if r.Stage != StageCompress || r.DurationSec != 2 {
		t.Errorf("record = %+v", r)
	}
	if r.NodeID != -1 {
		t.Errorf("node id = %d, want -1 for absent field", r.NodeID)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 1, 13, 21, 16, 11, 352179000, time.UTC)
	for _, s := range []string{
		"2026-01-13T21:16:11.352179+00:00",
		"2026-01-13T21:16:11.352179Z",
		"2026-01-13T21:16:11.352179",
		"2026-01-13 21:16:11.352179",
	} {
		got, err := ParseTime(s)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("ParseTime accepted garbage")
	}
}

func TestReadPayloadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(samplePayload))
	zw.Close()

	p, err := ReadPayload(&buf)
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if p.ExperimentName != "run-a" {
		t.Errorf("experiment name = %q, want run-a", p.ExperimentName)
	}
}
