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
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/packed"
	"golang.org/x/exp/constraints"
)

// ErrSnapshotCorrupt is reported when a snapshot file does not match its
// trusted content hash or cannot be parsed.
const ErrSnapshotCorrupt = common.ConstError("snapshot corrupt")

// Reader provides access to the materialized tables of a snapshot file.
// The file's content digest is recomputed on open and checked against the
// trusted hash of the owning snapshot record before any data is exposed.
type Reader struct {
	tableNames []string
	tables     map[string][]byte // packed (key,value) stream per table
}

// OpenReader loads and verifies the snapshot file of the given record.
func OpenReader(s *Snapshot) (*Reader, error) {
	buf, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}

	digest := sha256.New()
	reader := &Reader{tables: map[string][]byte{}}

	offset := 0
	for offset < len(buf) {
		if offset+8 > len(buf) {
			return nil, fmt.Errorf("%w: truncated block header size", ErrSnapshotCorrupt)
		}
		headerSize := binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		if uint64(len(buf)-offset) < headerSize {
			return nil, fmt.Errorf("%w: truncated block header", ErrSnapshotCorrupt)
		}
		header := buf[offset : offset+int(headerSize)]
		offset += int(headerSize)

		hr := packed.NewReader(header)
		name, err := hr.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		dataSize, err := hr.ReadUint64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		if uint64(len(buf)-offset) < dataSize {
			return nil, fmt.Errorf("%w: truncated block data", ErrSnapshotCorrupt)
		}
		data := buf[offset : offset+int(dataSize)]
		offset += int(dataSize)

		digest.Write(header)
		digest.Write(data)
		reader.tableNames = append(reader.tableNames, name)
		reader.tables[name] = data
	}

	if common.HashFromBytes(digest.Sum(nil)) != s.ContentHash {
		return nil, fmt.Errorf("%w: content hash of %s does not match its record", ErrSnapshotCorrupt, s.Path)
	}
	return reader, nil
}

// TableNames lists the tables found in the snapshot, in file order.
func (r *Reader) TableNames() []string {
	return r.tableNames
}

// Table decodes a snapshot block into typed entries ordered by key. Packed
// decoding is deferred until this call; unknown tables yield no entries.
func Table[K constraints.Ordered, V any](r *Reader, name string) ([]ledger.Entry[K, V], error) {
	data, found := r.tables[name]
	if !found {
		return nil, nil
	}
	var entries []ledger.Entry[K, V]
	pr := packed.NewReader(data)
	for !pr.Done() {
		var entry ledger.Entry[K, V]
		raw, err := pr.ReadRaw()
		if err != nil {
			return nil, err
		}
		if err := packed.Unmarshal(raw, &entry.Key); err != nil {
			return nil, err
		}
		raw, err = pr.ReadRaw()
		if err != nil {
			return nil, err
		}
		if err := packed.Unmarshal(raw, &entry.Value); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}
