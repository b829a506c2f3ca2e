// sketch.go: Count-Min Sketch frequency estimator (C2)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"math"

	"github.com/dolthub/maphash"
)

// countMinSketch is a fixed-size width x depth counter table estimating
// access frequency. It is not safe for concurrent use on its own: it lives
// inside a tinyLFU cache, which is in turn protected by its owning shard's
// single exclusive lock (§5), so no internal locking is needed here.
type countMinSketch struct {
	table  [][]uint32 // depth rows x width columns
	width  uint64
	depth  int
	size   uint64
	hasher maphash.Hasher[string]
}

func newCountMinSketch(width, depth int) *countMinSketch {
	if width <= 0 {
		width = DefaultSketchWidth
	}
	if depth <= 0 {
		depth = DefaultSketchDepth
	}
	rows := make([][]uint32, depth)
	for i := range rows {
		rows[i] = make([]uint32, width)
	}
	return &countMinSketch{
		table:  rows,
		width:  uint64(width),
		depth:  depth,
		hasher: maphash.NewHasher[string](),
	}
}

// rowHashes derives depth independent bucket indices from a single maphash
// hash via double hashing (h_i = h1 + i*h2 mod width), the standard
// technique for avoiding depth separate hash computations per operation.
func (s *countMinSketch) rowHashes(key []byte) []uint64 {
	h := s.hasher.Hash(string(key))
	h1 := h >> 32
	h2 := h & 0xffffffff
	if h2 == 0 {
		h2 = 1
	}
	positions := make([]uint64, s.depth)
	for i := 0; i < s.depth; i++ {
		positions[i] = (h1 + uint64(i)*h2) % s.width
	}
	return positions
}

// increment bumps the estimate for key in every row, saturating at the
// counter's maximum value.
func (s *countMinSketch) increment(key []byte) {
	for r, pos := range s.rowHashes(key) {
		if s.table[r][pos] != math.MaxUint32 {
			s.table[r][pos]++
		}
	}
	s.size++
}

// estimate returns the minimum cell across rows: an upper bound on the true frequency.
func (s *countMinSketch) estimate(key []byte) uint32 {
	var min uint32 = math.MaxUint32
	for r, pos := range s.rowHashes(key) {
		v := s.table[r][pos]
		if v < min {
			min = v
		}
	}
	if min == math.MaxUint32 && s.depth == 0 {
		return 0
	}
	return min
}

// reset zeroes every counter and the operation count.
func (s *countMinSketch) reset() {
	for r := range s.table {
		for i := range s.table[r] {
			s.table[r][i] = 0
		}
	}
	s.size = 0
}

// shouldReset reports whether size has reached threshold.
func (s *countMinSketch) shouldReset(threshold uint64) bool {
	return s.size >= threshold
}
