// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blockfmt

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadPayload reads one payload from r. Gzipped input is detected by
// its magic bytes and decompressed transparently.
func ReadPayload(r io.Reader) (*RawPayload, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return decodePayload(zr)
	}
	return decodePayload(br)
}

func decodePayload(r io.Reader) (*RawPayload, error) {
	p := new(RawPayload)
	if err := json.NewDecoder(r).Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadFile reads the payload stored at path. If the payload carries
// no experiment name, the file's base name without extensions is
// used.
func ReadFile(path string) (*RawPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ReadPayload(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if p.ExperimentName == "" {
		name := filepath.Base(path)
		name = strings.TrimSuffix(name, ".gz")
		name = strings.TrimSuffix(name, filepath.Ext(name))
		p.ExperimentName = name
	}
	return p, nil
}

// ReadFiles reads one payload per path, in order.
func ReadFiles(paths []string) ([]*RawPayload, error) {
	payloads := make([]*RawPayload, 0, len(paths))
	for _, path := range paths {
		p, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}
