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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/ethereum/go-ethereum/log"
)

// Builder creates snapshots by verified replay: it folds whole batches of
// the ledger into a writer and cuts the snapshot at a batch boundary, so
// that only verified transactions enter the snapshot file.
type Builder struct {
	ledgerPath string
	certs      replay.CertLookup
	dir        string
	indexTable string
	indexOf    IndexFunc
}

// NewBuilder prepares a builder placing snapshot and witness files into
// dir. The index value of created snapshots is derived from the given
// table through indexOf.
func NewBuilder(ledgerPath string, certs replay.CertLookup, dir, indexTable string, indexOf IndexFunc) *Builder {
	return &Builder{
		ledgerPath: ledgerPath,
		certs:      certs,
		dir:        dir,
		indexTable: indexTable,
		indexOf:    indexOf,
	}
}

// Build folds verified batches until the batch containing the given
// version (inclusive) and creates a snapshot at the version of the last
// folded frame. The returned record carries the content hash, the resume
// offset, and the path of the persisted Merkle witness.
func (b *Builder) Build(upTo uint64) (*Snapshot, error) {
	reader, err := replay.NewReader(b.ledgerPath, ledger.NewInterestSet(), b.certs)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	writer := NewWriter(b.dir, b.indexTable, b.indexOf)
	version := uint64(0)
	for reader.HasNext() && version < upTo {
		batch, err := reader.ReadBatch()
		if err != nil {
			return nil, err
		}
		for i, raw := range batch.Raws {
			if err := writer.AppendTransaction(raw); err != nil {
				return nil, err
			}
			version = batch.Domains[i].Version()
		}
	}
	if version == 0 {
		return nil, fmt.Errorf("ledger %s holds no verified batches to snapshot", b.ledgerPath)
	}

	witnessPath := filepath.Join(b.dir, fmt.Sprintf("snapshot_v%d.witness", version))
	if err := reader.History().Witness().WriteFile(witnessPath); err != nil {
		return nil, err
	}

	snapshot, err := writer.Create(version, witnessPath)
	if err != nil {
		return nil, err
	}
	log.Info("Created snapshot", "version", version, "offset", snapshot.LedgerOffset,
		"indexed", snapshot.Indexed, "hash", snapshot.ContentHash)
	return snapshot, nil
}

// BuildAndRegister builds a snapshot and records it in both the registry
// and the live index.
func (b *Builder) BuildAndRegister(upTo uint64, registry *Registry, index *Index) (*Snapshot, error) {
	snapshot, err := b.Build(upTo)
	if err != nil {
		return nil, err
	}
	if registry != nil {
		if err := registry.Put(snapshot); err != nil {
			return nil, errors.Join(fmt.Errorf("registering snapshot v%d", snapshot.Version), err)
		}
	}
	if index != nil {
		index.Append(snapshot)
	}
	return snapshot, nil
}
