// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package merkle maintains a rolling Merkle tree over the frames of a
// ledger. Leaves are SHA-256 hashes of raw frame bytes, indexed from zero in
// append order; retention is bounded by MaxHistoryLen, and the retained window
// can be persisted as a witness to resume verified replay at an offset.
package merkle

import (
	"github.com/0xsoniclabs/chronicle/common"
)

// MaxHistoryLen is the maximum number of leaves retained in a history.
// Older leaves are flushed when commit versions move past the window.
const MaxHistoryLen = 1000

// History is an append-only, bounded-capacity Merkle tree of 32-byte
// leaves. It is private to a single reader and not safe for concurrent use.
type History struct {
	leaves []common.Hash
	first  uint64 // global index of leaves[0]

	// Cached peak stack over the current window. Peaks are the roots of
	// the maximal perfect subtrees covering the window left to right.
	peaks []peak

	// A resumed history must not flush until the window has accumulated
	// naturally, so that roots match those of a from-zero replay.
	resumed bool
}

type peak struct {
	height int
	hash   common.Hash
}

// NewHistory creates an empty history starting at leaf index zero.
func NewHistory() *History {
	return &History{}
}

// Append adds a leaf at the next index.
func (h *History) Append(leaf common.Hash) {
	h.leaves = append(h.leaves, leaf)
	h.push(leaf)
}

// Root returns the Merkle root over the retained window. The root of an
// empty history is the zero hash.
func (h *History) Root() common.Hash {
	if len(h.peaks) == 0 {
		return common.Hash{}
	}
	// Bag the peaks right to left.
	root := h.peaks[len(h.peaks)-1].hash
	for i := len(h.peaks) - 2; i >= 0; i-- {
		root = common.Sha256(h.peaks[i].hash[:], root[:])
	}
	return root
}

// Flush drops all leaves with index <= through. Subsequent roots cover the
// remaining window only.
func (h *History) Flush(through uint64) {
	if through < h.first {
		return
	}
	drop := through - h.first + 1
	if drop >= uint64(len(h.leaves)) {
		h.first += uint64(len(h.leaves))
		h.leaves = h.leaves[:0]
		h.peaks = h.peaks[:0]
		return
	}
	remaining := len(h.leaves) - int(drop)
	copy(h.leaves, h.leaves[drop:])
	h.leaves = h.leaves[:remaining]
	h.first += drop
	h.rebuild()
}

// Compact applies the retention policy after observing the given commit
// version: once versions reach MaxHistoryLen, all leaves with an index at or
// below version - MaxHistoryLen are flushed, so no more than MaxHistoryLen
// leaves up to index version remain. On a resumed history flushing is
// suppressed until the window has accumulated naturally.
func (h *History) Compact(version uint64) {
	if version < MaxHistoryLen {
		return
	}
	if h.resumed {
		if len(h.leaves) < MaxHistoryLen {
			return
		}
		h.resumed = false
	}
	h.Flush(version - MaxHistoryLen)
}

// Len returns the number of retained leaves.
func (h *History) Len() int {
	return len(h.leaves)
}

// FirstIndex returns the global index of the oldest retained leaf.
func (h *History) FirstIndex() uint64 {
	return h.first
}

// NextIndex returns the global index the next appended leaf will receive.
func (h *History) NextIndex() uint64 {
	return h.first + uint64(len(h.leaves))
}

// push integrates a leaf into the peak stack, merging equal-height peaks.
func (h *History) push(leaf common.Hash) {
	h.peaks = append(h.peaks, peak{height: 0, hash: leaf})
	for len(h.peaks) >= 2 {
		a := h.peaks[len(h.peaks)-2]
		b := h.peaks[len(h.peaks)-1]
		if a.height != b.height {
			break
		}
		h.peaks = h.peaks[:len(h.peaks)-2]
		h.peaks = append(h.peaks, peak{
			height: a.height + 1,
			hash:   common.Sha256(a.hash[:], b.hash[:]),
		})
	}
}

// rebuild recomputes the peak stack from the retained leaves.
func (h *History) rebuild() {
	h.peaks = h.peaks[:0]
	for _, leaf := range h.leaves {
		h.push(leaf)
	}
}
