// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockfmt reads the dictionary-encoded block telemetry
// payload format.
//
// A payload is a single JSON object holding every record captured
// during one experiment. To keep the files small, records are
// positional tuples of small integers: string values are indexes into
// the payload's maps and timestamps are microsecond offsets from the
// payload's base timestamp. Decode resolves the indirection and
// returns absolute-time Records grouped by block.
package blockfmt

import (
	"encoding/json"
	"time"
)

// A RawPayload is the wire form of one experiment's telemetry, as
// produced by the capture side and uploaded to the server.
type RawPayload struct {
	ExperimentName string `json:"experiment_name"`
	// TS0 is the base timestamp. All record times are microsecond
	// offsets from it.
	TS0 string `json:"ts0"`
	// Field orders for the positional tuples below. Empty slices
	// fall back to the default orders.
	RecordFields []string `json:"record_fields"`
	BlockFields  []string `json:"block_fields"`
	SizeFields   []string `json:"size_fields"`
	Maps         Maps     `json:"maps"`
	// Blocks is a list of block tuples. It is kept raw because
	// older producers emitted other shapes here; anything that is
	// not a list decodes to an empty DataSet.
	Blocks json.RawMessage `json:"blocks"`
}

// Maps holds the string dictionaries indexed by record tuples.
type Maps struct {
	Stage       []string `json:"stage"`
	Type        []string `json:"type"`
	CalledFrom  []string `json:"called_from"`
	Compression []string `json:"compression"`
}

// Default tuple field orders, used when the payload does not carry
// its own.
var (
	defaultRecordFields = []string{"node_idx", "start_us", "duration_us", "stage_idx", "type_idx", "called_from_idx", "compression_idx", "size_idx"}
	defaultBlockFields  = []string{"block_id", "size_map", "records"}
	defaultSizeFields   = []string{"original_size", "compressed_size"}
)

// Stage values a Record can carry after dictionary resolution.
const (
	StageCompress   = "compress"
	StageDecompress = "decompress"
)

// A Record is one resolved telemetry record: a single compress or
// decompress operation observed on one node.
type Record struct {
	BlockID string    `json:"block_id"`
	NodeID  int       `json:"node_id"`
	Start   time.Time `json:"start_ts"`
	End     time.Time `json:"end_ts"`
	// DurationSec is the record's own duration in seconds.
	DurationSec float64 `json:"duration_sec"`
	Stage       string  `json:"stage"`
	Type        string  `json:"type"`
	// CalledFrom is the call-site label, or "" when the record
	// carried none.
	CalledFrom  string `json:"called_from,omitempty"`
	Compression string `json:"compression,omitempty"`
	// Sizes are in bytes. Values <= 0 mean the record did not
	// report that size.
	OriginalSize   int64 `json:"original_size"`
	CompressedSize int64 `json:"compressed_size"`
}

// A Block is one block's records, ordered by start time.
type Block struct {
	ID      string
	Records []Record
}

// A DataSet is the decoded form of one payload. A payload whose base
// timestamp or block list cannot be decoded yields a DataSet with no
// blocks and a zero TimeOrigin.
type DataSet struct {
	ExperimentName string
	// TimeOrigin is the earliest instant (start or end) seen in
	// any record, and is zero when no record decoded.
	TimeOrigin time.Time
	// Blocks are in payload order. Only blocks with at least one
	// decodable record appear.
	Blocks []*Block
}

// NumRecords returns the total record count across all blocks.
func (ds *DataSet) NumRecords() int {
	n := 0
	for _, b := range ds.Blocks {
		n += len(b.Records)
	}
	return n
}
