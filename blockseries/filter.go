// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockseries

import (
	"math"
	"sort"

	"golang.org/x/blockstats/blockstat"
)

// Default filter parameters. The trim offsets excise the startup and
// shutdown transients of a benchmark run.
const (
	DefaultTrimHead    = 300
	DefaultTrimTail    = 120
	DefaultBucketWidth = 10
)

// A FilterConfig is one immutable snapshot of the filter state.
// Changing any parameter means building a new config and re-running
// the aggregation in full; nothing is recomputed incrementally.
type FilterConfig struct {
	// WindowMin and WindowMax bound point times in seconds.
	WindowMin, WindowMax float64
	// MinBlockSize drops points whose block is smaller, in bytes.
	// 0 disables the size filter.
	MinBlockSize int64
	// TrimEdges restricts surviving points to
	// [min+TrimHead, max-TrimTail] around their own extent.
	TrimEdges          bool
	TrimHead, TrimTail float64
	// BucketWidth is the averaging bucket width in seconds. 0
	// disables bucketing.
	BucketWidth float64
}

// DefaultFilterConfig returns the initial filter state for a set of
// union entries: the full observed time range, no size filter, edge
// trimming on, and the default bucket width.
func DefaultFilterConfig(entries []*UnionEntry) FilterConfig {
	min, max := math.Inf(1), math.Inf(-1)
	for _, e := range entries {
		for _, kind := range Kinds {
			for _, s := range e.Series[kind] {
				for _, p := range s.Points {
					if p.T < min {
						min = p.T
					}
					if p.T > max {
						max = p.T
					}
				}
			}
		}
	}
	if min > max {
		min, max = 0, 0
	}
	return FilterConfig{
		WindowMin:   min,
		WindowMax:   max,
		TrimEdges:   true,
		TrimHead:    DefaultTrimHead,
		TrimTail:    DefaultTrimTail,
		BucketWidth: DefaultBucketWidth,
	}
}

// sizeFilter drops points whose block id maps to a size below the
// configured minimum. A zero minimum passes everything through.
func sizeFilter(points []blockstat.Point, sizeByID map[string]int64, min int64) []blockstat.Point {
	if min <= 0 {
		return points
	}
	out := make([]blockstat.Point, 0, len(points))
	for _, p := range points {
		if size, ok := sizeByID[p.BlockID]; ok && size >= min {
			out = append(out, p)
		}
	}
	return out
}

// windowFilter keeps points with min <= t <= max. The input must be
// sorted by time; the output is as well.
func windowFilter(points []blockstat.Point, min, max float64) []blockstat.Point {
	out := make([]blockstat.Point, 0, len(points))
	for _, p := range points {
		if p.T >= min && p.T <= max {
			out = append(out, p)
		}
	}
	return out
}

// Aggregate applies the filter pipeline to one raw series: size
// filter, window filter, edge trim, then bucket averaging. It is a
// pure function of its inputs; every filter change re-runs it in
// full. Degenerate inputs yield an empty series.
func Aggregate(points []blockstat.Point, sizeByID map[string]int64, cfg FilterConfig) []blockstat.Point {
	points = sizeFilter(points, sizeByID, cfg.MinBlockSize)
	points = windowFilter(points, cfg.WindowMin, cfg.WindowMax)
	if len(points) == 0 {
		return nil
	}

	min, max := points[0].T, points[len(points)-1].T
	if cfg.TrimEdges {
		min += cfg.TrimHead
		max -= cfg.TrimTail
		if max < min {
			return nil
		}
		points = windowFilter(points, min, max)
	}
	if cfg.BucketWidth <= 0 {
		return points
	}

	type bucket struct {
		sumT, sumV float64
		count      int
	}
	buckets := make(map[int64]*bucket)
	var order []int64
	for _, p := range points {
		i := int64(math.Floor(p.T / cfg.BucketWidth))
		b := buckets[i]
		if b == nil {
			b = new(bucket)
			buckets[i] = b
			order = append(order, i)
		}
		b.sumT += p.T
		b.sumV += p.V
		b.count++
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]blockstat.Point, 0, len(order))
	for _, i := range order {
		b := buckets[i]
		n := float64(b.count)
		out = append(out, blockstat.Point{T: b.sumT / n, V: b.sumV / n})
	}
	return out
}
