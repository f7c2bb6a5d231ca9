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
	"encoding/binary"
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/vmihailenco/msgpack/v5"
)

// Registry persists snapshot records so that the index can be rebuilt
// across restarts. Records are keyed by version; snapshot and witness
// files referenced by a record are expected to outlive it.
type Registry struct {
	db *leveldb.DB
}

// record is the persisted form of a Snapshot.
type record struct {
	Version      uint64
	LedgerOffset uint64
	Path         string
	ContentHash  []byte
	IndexValue   int64
	Indexed      bool
	WitnessPath  string
}

// OpenRegistry opens (or creates) a registry under the given directory.
func OpenRegistry(dir string) (*Registry, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// Put stores one snapshot record.
func (r *Registry) Put(s *Snapshot) error {
	encoded, err := msgpack.Marshal(record{
		Version:      s.Version,
		LedgerOffset: s.LedgerOffset,
		Path:         s.Path,
		ContentHash:  s.ContentHash[:],
		IndexValue:   int64(s.IndexValue),
		Indexed:      s.Indexed,
		WitnessPath:  s.WitnessPath,
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot record: %w", err)
	}
	return r.db.Put(registryKey(s.Version), encoded, nil)
}

// Snapshots loads all stored records in version order.
func (r *Registry) Snapshots() ([]*Snapshot, error) {
	var res []*Snapshot
	it := r.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		var rec record
		if err := msgpack.Unmarshal(it.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding snapshot record: %w", err)
		}
		res = append(res, &Snapshot{
			Version:      rec.Version,
			LedgerOffset: rec.LedgerOffset,
			Path:         rec.Path,
			ContentHash:  common.HashFromBytes(rec.ContentHash),
			IndexValue:   common.TimePoint(rec.IndexValue),
			Indexed:      rec.Indexed,
			WitnessPath:  rec.WitnessPath,
		})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterating snapshot registry: %w", err)
	}
	return res, nil
}

// LoadIndex rebuilds the ordered index from the stored records.
func (r *Registry) LoadIndex() (*Index, error) {
	snapshots, err := r.Snapshots()
	if err != nil {
		return nil, err
	}
	index := NewIndex()
	for _, s := range snapshots {
		index.Append(s)
	}
	return index, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

func registryKey(version uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], version)
	return key[:]
}
