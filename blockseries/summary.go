// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockseries

import (
	"golang.org/x/blockstats/blockmath"
	"golang.org/x/blockstats/blockstat"
)

// Summary metric names, in display order.
const (
	MetricNumBlocks          = "num_blocks"
	MetricBlockSize          = "avg_block_size_bytes"
	MetricCompressionPercent = "avg_compression_percent"
	MetricBroadcastTimeAvg   = "avg_broadcast_time_avg_s"
	MetricBroadcastTime66p   = "avg_broadcast_time_66p_s"
	MetricBroadcastTimeFull  = "avg_broadcast_time_full_s"
	MetricCompressionTime    = "avg_compression_time_s"
	MetricDecompressionTime  = "avg_decompression_time_s"
)

// Metrics lists every summary metric in display order.
var Metrics = []string{
	MetricNumBlocks,
	MetricBlockSize,
	MetricCompressionPercent,
	MetricBroadcastTimeAvg,
	MetricBroadcastTime66p,
	MetricBroadcastTimeFull,
	MetricCompressionTime,
	MetricDecompressionTime,
}

// metricKinds maps each averaged metric to its source series kind.
var metricKinds = map[string]string{
	MetricBlockSize:          KindBlockSize,
	MetricCompressionPercent: KindCompressionPercent,
	MetricBroadcastTimeAvg:   KindBroadcastTimeAvg,
	MetricBroadcastTime66p:   KindBroadcastTime66p,
	MetricBroadcastTimeFull:  KindBroadcastTimeFull,
	MetricCompressionTime:    KindCompressionTime,
	MetricDecompressionTime:  KindDecompressionTime,
}

// A SummaryCell holds one experiment's averages for one category. A
// nil or undefined cell means the experiment lacks the category.
type SummaryCell struct {
	NumBlocks int
	Values    map[string]float64
}

// Defined reports whether the cell's experiment has the category at
// all. Undefined cells render as absent, not as zero.
func (c *SummaryCell) Defined() bool {
	return c != nil && c.Values != nil
}

// A SummaryRow is one visible category across every experiment.
// Cells align with Summary.Experiments.
type SummaryRow struct {
	Key   string
	Label string
	Cells []*SummaryCell
	// Best maps a metric name to the winning experiment index.
	// Metrics without a winner are absent.
	Best map[string]int
}

// A Summary is the cross-experiment comparison grid over the visible
// categories.
type Summary struct {
	Experiments []string
	Rows        []*SummaryRow
}

// summaryFilter is the filter used for summary statistics: size and
// window only, no edge trim and no bucketing.
func summaryFilter(points []blockstat.Point, sizeByID map[string]int64, cfg FilterConfig) []blockstat.Point {
	return windowFilter(sizeFilter(points, sizeByID, cfg.MinBlockSize), cfg.WindowMin, cfg.WindowMax)
}

// Visible reports whether a category survives the size filter. The
// rule is deliberately strict: at least one experiment must keep a
// block_size point, and an experiment that has block_size points but
// keeps none of them hides the category for everyone. The time
// window does not participate.
func Visible(e *UnionEntry, cfg FilterConfig) bool {
	any := false
	for i, s := range e.Series[KindBlockSize] {
		if len(s.Points) == 0 {
			continue
		}
		if len(sizeFilter(s.Points, e.BlockSizeByID[i], cfg.MinBlockSize)) == 0 {
			return false
		}
		any = true
	}
	return any
}

// hasCategory reports whether the experiment at index i contributed
// any points to the entry.
func hasCategory(e *UnionEntry, i int) bool {
	for _, kind := range Kinds {
		if len(e.Series[kind][i].Points) > 0 {
			return true
		}
	}
	return false
}

// Summarize builds the summary grid for the visible categories under
// cfg. Averages are the arithmetic mean of values surviving the size
// and window filters, or 0 when none survive.
func Summarize(entries []*UnionEntry, cfg FilterConfig) *Summary {
	s := new(Summary)
	if len(entries) > 0 {
		for _, ser := range entries[0].Series[KindBlockSize] {
			s.Experiments = append(s.Experiments, ser.ExperimentName)
		}
	}
	for _, e := range entries {
		if !Visible(e, cfg) {
			continue
		}
		row := &SummaryRow{
			Key:   e.Key,
			Label: e.Label,
			Best:  make(map[string]int),
		}
		for i := range s.Experiments {
			if !hasCategory(e, i) {
				row.Cells = append(row.Cells, nil)
				continue
			}
			sizeByID := e.BlockSizeByID[i]
			cell := &SummaryCell{Values: make(map[string]float64, len(Metrics))}
			cell.NumBlocks = len(summaryFilter(e.Series[KindBlockSize][i].Points, sizeByID, cfg))
			cell.Values[MetricNumBlocks] = float64(cell.NumBlocks)
			for metric, kind := range metricKinds {
				pts := summaryFilter(e.Series[kind][i].Points, sizeByID, cfg)
				values := make([]float64, len(pts))
				for j, p := range pts {
					values[j] = p.V
				}
				cell.Values[metric] = blockmath.Mean(values)
			}
			row.Cells = append(row.Cells, cell)
		}
		markBest(row)
		s.Rows = append(s.Rows, row)
	}
	return s
}

// markBest fills row.Best: the highest compression percent wins, and
// the lowest strictly-positive broadcast time wins. Other metrics
// have no winner.
func markBest(row *SummaryRow) {
	best := -1
	for i, c := range row.Cells {
		if c.Defined() && (best < 0 || c.Values[MetricCompressionPercent] > row.Cells[best].Values[MetricCompressionPercent]) {
			best = i
		}
	}
	if best >= 0 {
		row.Best[MetricCompressionPercent] = best
	}
	for _, metric := range []string{MetricBroadcastTimeAvg, MetricBroadcastTime66p, MetricBroadcastTimeFull} {
		best := -1
		for i, c := range row.Cells {
			if !c.Defined() {
				continue
			}
			v := c.Values[metric]
			if v <= 0 {
				continue
			}
			if best < 0 || v < row.Cells[best].Values[metric] {
				best = i
			}
		}
		if best >= 0 {
			row.Best[metric] = best
		}
	}
}
