// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package snapshot folds committed transactions into content-addressed
// snapshot files, reads them back under digest verification, and maintains
// the ordered index used to pick the resume point of a time-range query.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/packed"
	"github.com/ethereum/go-ethereum/log"
)

// Action classifies one update absorbed by the writer.
type Action uint8

const (
	Write Action = iota
	Remove
)

// keyValueUpdate is one byte-level update of a table. Key and value remain
// in their packed encoding; they are re-emitted into the snapshot file
// without being decoded.
type keyValueUpdate struct {
	key    []byte
	value  []byte
	action Action
}

// IndexFunc extracts the domain-defined index value from a packed table
// value. For the history table this parses the date field.
type IndexFunc func(value []byte) (common.TimePoint, error)

// Snapshot is the registration record of one snapshot file.
type Snapshot struct {
	Version      uint64
	LedgerOffset uint64 // offset of the next frame after the folded prefix
	Path         string
	ContentHash  common.Hash
	IndexValue   common.TimePoint
	Indexed      bool
	WitnessPath  string
}

// HasIndexValue reports whether the snapshot carries a usable index value.
// Snapshots without one are rejected by the index.
func (s *Snapshot) HasIndexValue() bool {
	return s.Indexed
}

// Writer accumulates the updates of a transaction stream in commit order
// and reduces them to a per-table set of latest values on Create.
type Writer struct {
	dir        string
	indexTable string
	indexOf    IndexFunc

	// Per-table updates in absorption order; reduction walks them from the
	// back so that the newest write of each key is seen first.
	updates      map[string][]keyValueUpdate
	ledgerOffset uint64
}

// NewWriter creates a writer placing snapshot files into dir. The index
// value of a snapshot is extracted from the newest retained value of the
// given table.
func NewWriter(dir, indexTable string, indexOf IndexFunc) *Writer {
	return &Writer{
		dir:        dir,
		indexTable: indexTable,
		indexOf:    indexOf,
		updates:    map[string][]keyValueUpdate{},
	}
}

// AppendTransaction absorbs one raw frame (the size-prefixed region) in
// commit order. Key and value bytes are copied; the input buffer is not
// retained.
func (w *Writer) AppendTransaction(raw []byte) error {
	if len(raw) < 4+28+8 {
		return fmt.Errorf("%w: transaction of %d bytes cannot hold a frame header", packed.ErrDecode, len(raw))
	}
	publicSize := binary.LittleEndian.Uint64(raw[4+28:])
	body := raw[4+28+8:]
	if publicSize > uint64(len(body)) {
		return fmt.Errorf("%w: public payload size %d exceeds frame", packed.ErrDecode, publicSize)
	}

	r := packed.NewReader(body[:publicSize])
	if err := r.Skip(); err != nil { // version
		return err
	}
	for !r.Done() {
		if err := r.Skip(); err != nil { // map start marker
			return err
		}
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		if err := r.Skip(); err != nil { // read version
			return err
		}
		if err := r.Skip(); err != nil { // read count
			return err
		}

		writeCount, err := r.ReadUint64()
		if err != nil {
			return err
		}
		for i := uint64(0); i < writeCount; i++ {
			key, err := r.ReadRaw()
			if err != nil {
				return err
			}
			value, err := r.ReadRaw()
			if err != nil {
				return err
			}
			w.append(name, keyValueUpdate{
				key:    bytes.Clone(key),
				value:  bytes.Clone(value),
				action: Write,
			})
		}

		removeCount, err := r.ReadUint64()
		if err != nil {
			return err
		}
		for i := uint64(0); i < removeCount; i++ {
			key, err := r.ReadRaw()
			if err != nil {
				return err
			}
			w.append(name, keyValueUpdate{key: bytes.Clone(key), action: Remove})
		}
	}

	w.ledgerOffset += uint64(len(raw))
	return nil
}

func (w *Writer) append(table string, update keyValueUpdate) {
	w.updates[table] = append(w.updates[table], update)
}

// LedgerOffset returns the end position of the last absorbed frame.
func (w *Writer) LedgerOffset() uint64 {
	return w.ledgerOffset
}

// Create reduces the absorbed updates to their latest values, writes the
// snapshot file, and returns its registration record. The witness path is
// recorded as the Merkle resume point belonging to this snapshot.
func (w *Writer) Create(version uint64, witnessPath string) (*Snapshot, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("snapshot_v%d", version))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot file: %w", err)
	}

	// Table blocks are written in name order to make content hashes
	// independent of absorption order.
	names := make([]string, 0, len(w.updates))
	for name := range w.updates {
		names = append(names, name)
	}
	sort.Strings(names)

	digest := sha256.New()
	snapshot := &Snapshot{
		Version:      version,
		LedgerOffset: w.ledgerOffset,
		Path:         path,
		WitnessPath:  witnessPath,
	}

	for _, name := range names {
		retained := reduce(w.updates[name])

		if name == w.indexTable && len(retained) > 0 {
			// The first retained update is the newest one.
			value, err := w.indexOf(retained[0].value)
			if err != nil {
				log.Warn("Snapshot index value extraction failed", "table", name, "err", err)
			} else {
				snapshot.IndexValue = value
				snapshot.Indexed = true
			}
		}

		var data packed.Writer
		for _, update := range retained {
			data.WriteRaw(update.key)
			data.WriteRaw(update.value)
		}

		var header packed.Writer
		if err := header.Write(name); err != nil {
			return nil, errors.Join(err, file.Close())
		}
		if err := header.Write(uint64(data.Len())); err != nil {
			return nil, errors.Join(err, file.Close())
		}

		var headerSize [8]byte
		binary.LittleEndian.PutUint64(headerSize[:], uint64(header.Len()))
		if _, err := file.Write(headerSize[:]); err != nil {
			return nil, errors.Join(fmt.Errorf("writing snapshot block: %w", err), file.Close())
		}
		if _, err := file.Write(header.Bytes()); err != nil {
			return nil, errors.Join(fmt.Errorf("writing snapshot block: %w", err), file.Close())
		}
		if _, err := file.Write(data.Bytes()); err != nil {
			return nil, errors.Join(fmt.Errorf("writing snapshot block: %w", err), file.Close())
		}
		digest.Write(header.Bytes())
		digest.Write(data.Bytes())
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing snapshot file: %w", err)
	}
	snapshot.ContentHash = common.HashFromBytes(digest.Sum(nil))
	return snapshot, nil
}

// reduce walks the update queue newest to oldest; the first sighting of a
// key wins, which makes the result the last-write-wins live view. Keys
// whose newest action is a remove are consumed but not emitted.
func reduce(updates []keyValueUpdate) []keyValueUpdate {
	seen := make(map[string]struct{}, len(updates))
	retained := make([]keyValueUpdate, 0, len(updates))
	for i := len(updates) - 1; i >= 0; i-- {
		update := updates[i]
		if _, found := seen[string(update.key)]; found {
			continue
		}
		seen[string(update.key)] = struct{}{}
		if update.action == Remove {
			continue
		}
		retained = append(retained, update)
	}
	return retained
}
