// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db

// SetNow replaces the update-time clock for tests and returns a
// restore function.
func SetNow(f func() int64) (restore func()) {
	old := now
	now = f
	return func() { now = old }
}
