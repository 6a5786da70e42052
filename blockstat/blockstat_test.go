// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockstat

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"golang.org/x/blockstats/blockfmt"
)

var base = time.Date(2026, 1, 13, 21, 0, 0, 0, time.UTC)

// rec builds a record spanning [start, end) seconds after base.
func rec(blockID string, start, end float64, stage, typ, calledFrom string, origSize, compSize int64) blockfmt.Record {
	return blockfmt.Record{
		BlockID:        blockID,
		NodeID:         1,
		Start:          base.Add(time.Duration(start * float64(time.Second))),
		End:            base.Add(time.Duration(end * float64(time.Second))),
		DurationSec:    end - start,
		Stage:          stage,
		Type:           typ,
		CalledFrom:     calledFrom,
		OriginalSize:   origSize,
		CompressedSize: compSize,
	}
}

func dataSet(blocks ...*blockfmt.Block) *blockfmt.DataSet {
	ds := &blockfmt.DataSet{ExperimentName: "run-a", Blocks: blocks}
	for _, b := range blocks {
		for _, r := range b.Records {
			if ds.TimeOrigin.IsZero() || r.Start.Before(ds.TimeOrigin) {
				ds.TimeOrigin = r.Start
			}
		}
	}
	return ds
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeBroadcastTimes(t *testing.T) {
	// Compress records start at t=10 and t=12; decompress records
	// end at t=20, 25 and 30. A leading record pins the time
	// origin at base so the numbers stay readable.
	ds := dataSet(
		&blockfmt.Block{ID: "warm", Records: []blockfmt.Record{
			rec("warm", 0, 1, blockfmt.StageCompress, "shred", "", 0, 0),
		}},
		&blockfmt.Block{ID: "blk1", Records: []blockfmt.Record{
			rec("blk1", 10, 11, blockfmt.StageCompress, "shred", "", 900, 300),
			rec("blk1", 12, 13, blockfmt.StageCompress, "shred", "", 800, 0),
			rec("blk1", 18, 20, blockfmt.StageDecompress, "shred", "", 0, 0),
			rec("blk1", 21, 25, blockfmt.StageDecompress, "shred", "", 0, 0),
			rec("blk1", 28, 30, blockfmt.StageDecompress, "shred", "", 0, 0),
		}},
	)
	es := Compute(ds)

	cs := es.Categories["shred__None"]
	if cs == nil {
		t.Fatalf("category shred__None missing; have %v", es.Categories)
	}
	if cs.NumBlocks != 2 {
		t.Errorf("num blocks = %d, want 2", cs.NumBlocks)
	}

	wantOne := func(name string, points []Point, wantT, wantV float64) {
		t.Helper()
		if len(points) != 1 {
			t.Fatalf("%s has %d points, want 1: %v", name, len(points), points)
		}
		p := points[0]
		if !near(p.T, wantT) || !near(p.V, wantV) || p.BlockID != "blk1" {
			t.Errorf("%s point = %+v, want (%v, %v, blk1)", name, p, wantT, wantV)
		}
	}
	wantOne("broadcast_time_full", cs.BroadcastTimeFull, 10, 20)
	wantOne("broadcast_time_avg", cs.BroadcastTimeAvg, 10, 15)
	wantOne("broadcast_time_66p", cs.BroadcastTime66p, 10, 16.6)
	wantOne("block_size", cs.BlockSize, 10, 900)
	// First positive sizes win: original 900, compressed 300.
	wantOne("compression_percent", cs.CompressionPercent, 10, (900.0-300.0)/900.0)

	if got := cs.BlockSizeByID["blk1"]; got != 900 {
		t.Errorf("block size by id = %d, want 900", got)
	}
	if len(cs.CompressionTime) != 3 || len(cs.DecompressionTime) != 3 {
		t.Errorf("duration series lengths = %d, %d, want 3, 3",
			len(cs.CompressionTime), len(cs.DecompressionTime))
	}
	// Duration points sit at the record's end and carry its own
	// duration.
	if p := cs.DecompressionTime[0]; !near(p.T, 20) || !near(p.V, 2) {
		t.Errorf("decompression_time[0] = %+v, want (20, 2)", p)
	}
}

func TestComputeRequiresBothStages(t *testing.T) {
	ds := dataSet(
		&blockfmt.Block{ID: "conly", Records: []blockfmt.Record{
			rec("conly", 0, 1, blockfmt.StageCompress, "shred", "", 100, 50),
		}},
		&blockfmt.Block{ID: "donly", Records: []blockfmt.Record{
			rec("donly", 2, 3, blockfmt.StageDecompress, "shred", "", 100, 50),
		}},
	)
	cs := Compute(ds).Categories["shred__None"]
	if cs == nil {
		t.Fatal("category missing")
	}
	if len(cs.BroadcastTimeFull) != 0 || len(cs.BlockSize) != 0 || len(cs.CompressionPercent) != 0 {
		t.Errorf("one-sided blocks produced broadcast/size points: %+v", cs)
	}
	if len(cs.CompressionTime) != 1 || len(cs.DecompressionTime) != 1 {
		t.Errorf("duration series = %d, %d, want 1, 1", len(cs.CompressionTime), len(cs.DecompressionTime))
	}
	if cs.NumBlocks != 2 {
		t.Errorf("num blocks = %d, want 2", cs.NumBlocks)
	}
}

func TestComputeCategorySplit(t *testing.T) {
	ds := dataSet(
		&blockfmt.Block{ID: "b", Records: []blockfmt.Record{
			rec("b", 0, 1, blockfmt.StageCompress, "shred", "replay", 10, 5),
			rec("b", 1, 2, blockfmt.StageDecompress, "shred", "replay", 0, 0),
			rec("b", 3, 4, blockfmt.StageCompress, "entry", "", 0, 0),
		}},
	)
	es := Compute(ds)
	if len(es.Categories) != 2 {
		t.Fatalf("got %d categories, want 2: %v", len(es.Categories), es.Categories)
	}
	if es.Categories["shred__replay"] == nil || es.Categories["entry__None"] == nil {
		t.Errorf("unexpected category keys: %v", es.Categories)
	}
}

func TestComputeEmptyDataSet(t *testing.T) {
	es := Compute(&blockfmt.DataSet{ExperimentName: "empty"})
	if len(es.Categories) != 0 || len(es.Blocks) != 0 || !es.TimeOrigin.IsZero() {
		t.Errorf("empty data set produced stats: %+v", es)
	}
	data, err := json.Marshal(es)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["earliest_ts_global"] != nil {
		t.Errorf("earliest_ts_global = %v, want null", out["earliest_ts_global"])
	}
}

func TestBlockIndex(t *testing.T) {
	ds := dataSet(
		&blockfmt.Block{ID: "late", Records: []blockfmt.Record{
			rec("late", 50, 60, blockfmt.StageCompress, "shred", "", 0, 0),
		}},
		&blockfmt.Block{ID: "early", Records: []blockfmt.Record{
			rec("early", 5, 8, blockfmt.StageCompress, "shred", "replay", 0, 0),
			rec("early", 7, 12, blockfmt.StageDecompress, "shred", "replay", 700, 100),
			rec("early", 9, 10, blockfmt.StageDecompress, "entry", "", 0, 0),
		}},
	)
	blocks := Compute(ds).Blocks
	if len(blocks) != 2 {
		t.Fatalf("got %d index entries, want 2", len(blocks))
	}
	// Ordered by shifted start time.
	bt := blocks[0]
	if bt.BlockID != "early" || bt.UniqueKey != "run-a__early" {
		t.Fatalf("first entry = %+v", bt)
	}
	if !near(bt.Start, 0) || !near(bt.End, 7) || !near(bt.Duration, 7) {
		t.Errorf("span = [%v, %v] dur %v, want [0, 7] dur 7", bt.Start, bt.End, bt.Duration)
	}
	if bt.SizeBytes != 700 {
		t.Errorf("size = %d, want 700", bt.SizeBytes)
	}
	want := map[string]float64{
		"shred__replay": 7,
		"entry__None":   1,
	}
	if !reflect.DeepEqual(bt.SignatureDurations, want) {
		t.Errorf("signature durations = %v, want %v", bt.SignatureDurations, want)
	}
	if got := blocks[1].Start; !near(got, 45) {
		t.Errorf("second entry start = %v, want 45", got)
	}
}

func TestPointJSON(t *testing.T) {
	points := []Point{{1.5, 900, "blk1"}, {2, 0.25, ""}}
	data, err := json.Marshal(points)
	if err != nil {
		t.Fatal(err)
	}
	if want := `[[1.5,900,"blk1"],[2,0.25]]`; string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
	var back []Point
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, points) {
		t.Errorf("round trip = %+v, want %+v", back, points)
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		cat   Category
		key   string
		label string
	}{
		{Category{"shred", ""}, "shred__None", "shred"},
		{Category{"shred", "None"}, "shred__None", "shred"},
		{Category{"shred", "replay"}, "shred__replay", "shred (replay)"},
	}
	for _, test := range tests {
		if got := test.cat.Key(); got != test.key {
			t.Errorf("Key(%+v) = %q, want %q", test.cat, got, test.key)
		}
		if got := test.cat.Label(); got != test.label {
			t.Errorf("Label(%+v) = %q, want %q", test.cat, got, test.label)
		}
	}
}
