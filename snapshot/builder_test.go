// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot_test

import (
	"path/filepath"
	"testing"

	"github.com/0xsoniclabs/chronicle/entities"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/ledgertest"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/0xsoniclabs/chronicle/snapshot"
	"github.com/stretchr/testify/require"
)

func newHistoryBuilder(t *testing.T, ledgerPath string, certs replay.CertLookup, dir string) *snapshot.Builder {
	t.Helper()
	return snapshot.NewBuilder(ledgerPath, certs, dir, entities.HistoryTable, entities.HistoryIndexValue)
}

func TestBuilder_SnapshotCoversOnlyFoldedBatches(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	builder.Append(t, ledgertest.Table{
		Name:   entities.HistoryTable,
		Writes: []ledgertest.KV{{Key: entities.HistoryID(1), Value: entry(1, "2024-01-01 00:00:00")}},
	})
	cutVersion := builder.Sign(t, signer)
	cutOffset := builder.Offset()
	builder.Append(t, ledgertest.Table{
		Name:   entities.HistoryTable,
		Writes: []ledgertest.KV{{Key: entities.HistoryID(2), Value: entry(2, "2024-01-02 00:00:00")}},
	})
	builder.Sign(t, signer)

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "0.ledger")
	builder.WriteFile(t, ledgerPath)

	s, err := newHistoryBuilder(t, ledgerPath, signer.Lookup(), dir).Build(cutVersion)
	require.NoError(err)
	require.Equal(cutVersion, s.Version)
	require.Equal(cutOffset, s.LedgerOffset)
	require.True(s.HasIndexValue())

	reader, err := snapshot.OpenReader(s)
	require.NoError(err)
	entries, err := snapshot.Table[entities.HistoryID, entities.History](reader, entities.HistoryTable)
	require.NoError(err)
	require.Len(entries, 1)
	require.Equal(uint64(1), entries[0].Value.Customer)
}

func TestBuilder_ResumedReplayFromSnapshotVerifies(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	for i := uint64(1); i <= 6; i++ {
		builder.Append(t, ledgertest.Table{
			Name:   entities.HistoryTable,
			Writes: []ledgertest.KV{{Key: entities.HistoryID(i), Value: entry(i, "2024-01-01 00:00:00")}},
		})
		if i%2 == 0 {
			builder.Sign(t, signer)
		}
	}

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "0.ledger")
	builder.WriteFile(t, ledgerPath)

	s, err := newHistoryBuilder(t, ledgerPath, signer.Lookup(), dir).Build(3)
	require.NoError(err)

	reader, err := replay.NewReaderAt(ledgerPath, ledger.NewInterestSet(entities.HistoryTable),
		signer.Lookup(), s.LedgerOffset, s.WitnessPath)
	require.NoError(err)
	defer reader.Close()

	batches := 0
	for reader.HasNext() {
		batch, err := reader.ReadBatch()
		require.NoError(err)
		require.NotEmpty(batch.Domains)
		batches++
	}
	require.Equal(2, batches)
}

func TestBuilder_RegistersSnapshotInRegistryAndIndex(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	builder.Append(t, ledgertest.Table{
		Name:   entities.HistoryTable,
		Writes: []ledgertest.KV{{Key: entities.HistoryID(1), Value: entry(1, "2024-01-01 00:00:00")}},
	})
	cut := builder.Sign(t, signer)

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "0.ledger")
	builder.WriteFile(t, ledgerPath)

	registry, err := snapshot.OpenRegistry(filepath.Join(dir, "registry"))
	require.NoError(err)
	defer registry.Close()
	index := snapshot.NewIndex()

	s, err := newHistoryBuilder(t, ledgerPath, signer.Lookup(), dir).BuildAndRegister(cut, registry, index)
	require.NoError(err)
	require.Equal(1, index.Len())

	reloaded, err := registry.LoadIndex()
	require.NoError(err)
	require.Equal(1, reloaded.Len())
	stored, found := reloaded.LowerBound(s.IndexValue)
	require.True(found)
	require.Equal(s.ContentHash, stored.ContentHash)
}
