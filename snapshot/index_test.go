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
	"testing"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/stretchr/testify/require"
)

func indexed(version uint64, value common.TimePoint) *Snapshot {
	return &Snapshot{Version: version, IndexValue: value, Indexed: true}
}

func TestIndex_IterationIsOrderedByIndexValue(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	index.Append(indexed(3, 300))
	index.Append(indexed(1, 100))
	index.Append(indexed(2, 200))

	var values []common.TimePoint
	index.Ascend(func(s *Snapshot) bool {
		values = append(values, s.IndexValue)
		return true
	})
	require.Equal([]common.TimePoint{100, 200, 300}, values)
}

func TestIndex_SupportsDuplicateIndexValues(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	index.Append(indexed(1, 100))
	index.Append(indexed(2, 100))
	require.Equal(2, index.Len())
}

func TestIndex_LowerBoundReturnsFirstAtOrAbove(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	index.Append(indexed(1, 100))
	index.Append(indexed(2, 200))
	index.Append(indexed(3, 300))

	s, found := index.LowerBound(150)
	require.True(found)
	require.Equal(uint64(2), s.Version)

	s, found = index.LowerBound(200)
	require.True(found)
	require.Equal(uint64(2), s.Version)

	_, found = index.LowerBound(301)
	require.False(found)
}

func TestIndex_PredecessorReturnsLastStrictlyBelow(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	index.Append(indexed(1, 100))
	index.Append(indexed(2, 200))

	s, found := index.Predecessor(200)
	require.True(found)
	require.Equal(uint64(1), s.Version)

	s, found = index.Predecessor(1000)
	require.True(found)
	require.Equal(uint64(2), s.Version)

	_, found = index.Predecessor(100)
	require.False(found)
}

func TestIndex_RejectsSnapshotsWithoutIndexValue(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	index.Append(&Snapshot{Version: 1})
	require.Equal(0, index.Len())
}

func TestIndex_FirstReturnsSmallestIndexValue(t *testing.T) {
	require := require.New(t)

	index := NewIndex()
	_, found := index.First()
	require.False(found)

	index.Append(indexed(2, 200))
	index.Append(indexed(1, 100))
	s, found := index.First()
	require.True(found)
	require.Equal(uint64(1), s.Version)
}
