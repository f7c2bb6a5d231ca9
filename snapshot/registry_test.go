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
	"path/filepath"
	"testing"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RecordsSurviveReopening(t *testing.T) {
	require := require.New(t)

	dir := filepath.Join(t.TempDir(), "registry")
	registry, err := OpenRegistry(dir)
	require.NoError(err)

	want := &Snapshot{
		Version:      7,
		LedgerOffset: 1234,
		Path:         "snapshot_v7",
		ContentHash:  common.Sha256([]byte("content")),
		IndexValue:   100,
		Indexed:      true,
		WitnessPath:  "snapshot_v7.witness",
	}
	require.NoError(registry.Put(want))
	require.NoError(registry.Close())

	registry, err = OpenRegistry(dir)
	require.NoError(err)
	defer registry.Close()

	snapshots, err := registry.Snapshots()
	require.NoError(err)
	require.Len(snapshots, 1)
	require.Equal(want, snapshots[0])
}

func TestRegistry_SnapshotsAreOrderedByVersion(t *testing.T) {
	require := require.New(t)

	registry, err := OpenRegistry(filepath.Join(t.TempDir(), "registry"))
	require.NoError(err)
	defer registry.Close()

	for _, version := range []uint64{300, 1, 20} {
		require.NoError(registry.Put(&Snapshot{Version: version, Indexed: true, IndexValue: common.TimePoint(version)}))
	}

	snapshots, err := registry.Snapshots()
	require.NoError(err)
	require.Len(snapshots, 3)
	require.Equal(uint64(1), snapshots[0].Version)
	require.Equal(uint64(20), snapshots[1].Version)
	require.Equal(uint64(300), snapshots[2].Version)
}

func TestRegistry_LoadIndexSkipsUnindexedRecords(t *testing.T) {
	require := require.New(t)

	registry, err := OpenRegistry(filepath.Join(t.TempDir(), "registry"))
	require.NoError(err)
	defer registry.Close()

	require.NoError(registry.Put(&Snapshot{Version: 1, Indexed: true, IndexValue: 100}))
	require.NoError(registry.Put(&Snapshot{Version: 2}))

	index, err := registry.LoadIndex()
	require.NoError(err)
	require.Equal(1, index.Len())
}
