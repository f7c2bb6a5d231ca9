// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"sync"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/ethereum/go-ethereum/log"
)

// indexKey ranks snapshots by index value; the version breaks ties so that
// snapshots with equal index values can coexist.
type indexKey struct {
	value   common.TimePoint
	version uint64
}

func compareIndexKeys(a, b interface{}) int {
	ka, kb := a.(indexKey), b.(indexKey)
	switch {
	case ka.value < kb.value:
		return -1
	case ka.value > kb.value:
		return 1
	case ka.version < kb.version:
		return -1
	case ka.version > kb.version:
		return 1
	default:
		return 0
	}
}

// Index is an ordered container of snapshot records ranked by index value.
// It is safe for concurrent readers with a single writer; records are
// immutable once appended.
type Index struct {
	mu   sync.RWMutex
	tree *redblacktree.Tree
}

func NewIndex() *Index {
	return &Index{tree: redblacktree.NewWith(compareIndexKeys)}
}

// Append inserts a snapshot. Snapshots without an index value cannot be
// ranked; they are logged and ignored.
func (i *Index) Append(s *Snapshot) {
	if !s.HasIndexValue() {
		log.Warn("Ignoring snapshot without index value", "version", s.Version, "path", s.Path)
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tree.Put(indexKey{value: s.IndexValue, version: s.Version}, s)
}

// Len returns the number of indexed snapshots.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tree.Size()
}

// LowerBound returns the first snapshot with an index value >= v.
func (i *Index) LowerBound(v common.TimePoint) (*Snapshot, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	node, found := i.tree.Ceiling(indexKey{value: v})
	if !found {
		return nil, false
	}
	return node.Value.(*Snapshot), true
}

// Predecessor returns the last snapshot with an index value strictly
// below v.
func (i *Index) Predecessor(v common.TimePoint) (*Snapshot, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	// Commit versions are strictly positive, so the probe key sorts below
	// every snapshot whose index value equals v.
	node, found := i.tree.Floor(indexKey{value: v})
	if !found {
		return nil, false
	}
	return node.Value.(*Snapshot), true
}

// First returns the snapshot with the smallest index value.
func (i *Index) First() (*Snapshot, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	node := i.tree.Left()
	if node == nil {
		return nil, false
	}
	return node.Value.(*Snapshot), true
}

// Ascend visits the snapshots in ascending index-value order until the
// callback returns false.
func (i *Index) Ascend(visit func(*Snapshot) bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	it := i.tree.Iterator()
	for it.Next() {
		if !visit(it.Value().(*Snapshot)) {
			return
		}
	}
}
