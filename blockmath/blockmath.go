// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockmath provides the small sample statistics used when
// summarizing block telemetry.
package blockmath

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// Percentile returns the p'th percentile of values, 0 <= p <= 100,
// using linear interpolation between adjacent order statistics. The
// rank is (p/100)*(len(values)-1); a fractional rank interpolates
// between the values at the floor and ceiling ranks. An empty sample
// yields 0 and a single-element sample yields its element for any p.
func Percentile(values []float64, p float64) float64 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Mean returns the arithmetic mean of values, or 0 for an empty
// sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stats.Sample{Xs: values}.Mean()
}
