// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package replay_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xsoniclabs/chronicle/entities"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/ledgertest"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var histories = ledger.NewInterestSet(entities.HistoryTable)

func entry(customer uint64, date string) entities.History {
	return entities.History{Customer: customer, Warehouse: 1, Date: date, Amount: 5}
}

func appendHistory(t *testing.T, b *ledgertest.Builder, id entities.HistoryID, customer uint64, date string) {
	t.Helper()
	b.Append(t, ledgertest.Table{
		Name:   entities.HistoryTable,
		Writes: []ledgertest.KV{{Key: id, Value: entry(customer, date)}},
	})
}

func TestReader_EmptyLedgerHasNoBatches(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "0.ledger")
	require.NoError(os.WriteFile(path, nil, 0644))

	reader, err := replay.NewReader(path, histories, replay.StaticLookup{})
	require.NoError(err)
	defer reader.Close()
	require.False(reader.HasNext())
}

func TestReader_ReadsVerifiedBatches(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	appendHistory(t, builder, 1, 7, "2024-01-01 10:00:00")
	appendHistory(t, builder, 2, 8, "2024-01-02 10:00:00")
	builder.Sign(t, signer)
	appendHistory(t, builder, 3, 9, "2024-01-03 10:00:00")
	builder.Sign(t, signer)

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	reader, err := replay.NewReader(path, histories, signer.Lookup())
	require.NoError(err)
	defer reader.Close()

	require.True(reader.HasNext())
	batch, err := reader.ReadBatch()
	require.NoError(err)
	require.Len(batch.Domains, 3)
	require.False(batch.Domains[0].IsSignature())
	require.False(batch.Domains[1].IsSignature())
	require.True(batch.Domains[2].IsSignature())

	batch, err = reader.ReadBatch()
	require.NoError(err)
	require.Len(batch.Domains, 2)
	require.True(batch.Domains[1].IsSignature())

	require.False(reader.HasNext())
}

func TestReader_DomainsAppearInCursorOrder(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	for i := uint64(1); i <= 4; i++ {
		appendHistory(t, builder, entities.HistoryID(i), i, "2024-01-01 10:00:00")
	}
	builder.Sign(t, signer)

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	reader, err := replay.NewReader(path, histories, signer.Lookup())
	require.NoError(err)
	defer reader.Close()

	batch, err := reader.ReadBatch()
	require.NoError(err)
	last := uint64(0)
	for _, domain := range batch.Domains {
		require.Greater(domain.Version(), last)
		last = domain.Version()
	}
}

func TestReader_TamperedFrameFailsVerification(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	appendHistory(t, builder, 1, 7, "2024-01-01 10:00:00")
	appendHistory(t, builder, 2, 8, "2024-01-02 10:00:00")
	builder.Sign(t, signer)

	// Flip one bit inside the second frame's encrypted header. The public
	// domain still decodes, but the raw frame bytes no longer match the
	// signed Merkle root.
	data := builder.Bytes()
	first, err := ledger.ReadFrame(data, 0)
	require.NoError(err)
	data[first.End()+6] ^= 0x01

	path := filepath.Join(t.TempDir(), "0.ledger")
	require.NoError(os.WriteFile(path, data, 0644))

	reader, err := replay.NewReader(path, histories, signer.Lookup())
	require.NoError(err)
	defer reader.Close()

	_, err = reader.ReadBatch()
	require.ErrorIs(err, replay.ErrVerificationFailed)

	// The reader must not be reusable after a failed batch.
	_, err = reader.ReadBatch()
	require.ErrorIs(err, replay.ErrVerificationFailed)
}

func TestReader_MissingCertificateIsFatal(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 3)
	builder := ledgertest.NewBuilder()
	appendHistory(t, builder, 1, 7, "2024-01-01 10:00:00")
	builder.Sign(t, signer)

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	ctrl := gomock.NewController(t)
	certs := replay.NewMockCertLookup(ctrl)
	certs.EXPECT().Cert(replay.NodeID(3)).Return(nil, replay.ErrMissingNodeCert)

	reader, err := replay.NewReader(path, histories, certs)
	require.NoError(err)
	defer reader.Close()

	_, err = reader.ReadBatch()
	require.ErrorIs(err, replay.ErrMissingNodeCert)
}

func TestReader_LedgerEndingWithoutSignatureFailsVerification(t *testing.T) {
	require := require.New(t)

	builder := ledgertest.NewBuilder()
	appendHistory(t, builder, 1, 7, "2024-01-01 10:00:00")

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	reader, err := replay.NewReader(path, histories, replay.StaticLookup{})
	require.NoError(err)
	defer reader.Close()

	_, err = reader.ReadBatch()
	require.ErrorIs(err, replay.ErrVerificationFailed)
}

func TestReader_ResumesVerifiedReplayFromWitness(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	appendHistory(t, builder, 1, 7, "2024-01-01 10:00:00")
	builder.Sign(t, signer)

	// Capture the resume point after the first batch.
	offset := builder.Offset()
	witnessPath := filepath.Join(t.TempDir(), "merkle.witness")
	require.NoError(builder.History().Witness().WriteFile(witnessPath))

	appendHistory(t, builder, 2, 8, "2024-01-02 10:00:00")
	appendHistory(t, builder, 3, 9, "2024-01-03 10:00:00")
	builder.Sign(t, signer)

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	reader, err := replay.NewReaderAt(path, histories, signer.Lookup(), offset, witnessPath)
	require.NoError(err)
	defer reader.Close()

	require.True(reader.HasNext())
	batch, err := reader.ReadBatch()
	require.NoError(err)
	require.Len(batch.Domains, 3)
	require.True(batch.Domains[2].IsSignature())
	require.False(reader.HasNext())
}

func TestReader_BatchesAreVerifiedAgainstTheSignedRoot(t *testing.T) {
	require := require.New(t)

	// Many small batches keep the reader's history and the builder's
	// history in lock step; each signature must check out.
	signer := ledgertest.NewSigner(t, 0)
	builder := ledgertest.NewBuilder()
	for i := uint64(1); i <= 30; i++ {
		appendHistory(t, builder, entities.HistoryID(i), i, "2024-01-01 10:00:00")
		if i%3 == 0 {
			builder.Sign(t, signer)
		}
	}

	path := filepath.Join(t.TempDir(), "0.ledger")
	builder.WriteFile(t, path)

	reader, err := replay.NewReader(path, histories, signer.Lookup())
	require.NoError(err)
	defer reader.Close()

	batches := 0
	for reader.HasNext() {
		batch, err := reader.ReadBatch()
		require.NoError(err)
		require.NotEmpty(batch.Domains)
		batches++
	}
	require.Equal(10, batches)
}
