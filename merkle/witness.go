// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package merkle

import (
	"fmt"
	"os"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// ErrCorruptWitness is reported when a witness file fails to decode.
const ErrCorruptWitness = common.ConstError("corrupt merkle witness")

// Witness is the persisted state of a history: the retained leaf window at
// a given point of the ledger. Resuming from a witness reproduces the roots
// a from-zero replay would have produced past that point.
type Witness struct {
	FirstIndex uint64
	Leaves     []common.Hash
}

// Witness captures the current retained window of the history.
func (h *History) Witness() *Witness {
	leaves := make([]common.Hash, len(h.leaves))
	copy(leaves, h.leaves)
	return &Witness{FirstIndex: h.first, Leaves: leaves}
}

// Resume creates a history seeded from a witness. The history suppresses
// retention flushes until the window has accumulated naturally.
func Resume(w *Witness) *History {
	h := &History{
		leaves:  make([]common.Hash, len(w.Leaves)),
		first:   w.FirstIndex,
		resumed: true,
	}
	copy(h.leaves, w.Leaves)
	h.rebuild()
	return h
}

// WriteFile persists the witness as an RLP-encoded, snappy-compressed file.
func (w *Witness) WriteFile(path string) error {
	encoded, err := rlp.EncodeToBytes(w)
	if err != nil {
		return fmt.Errorf("encoding witness: %w", err)
	}
	if err := os.WriteFile(path, snappy.Encode(nil, encoded), 0644); err != nil {
		return fmt.Errorf("writing witness: %w", err)
	}
	return nil
}

// ReadWitnessFile loads a witness persisted by WriteFile.
func ReadWitnessFile(path string) (*Witness, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading witness: %w", err)
	}
	encoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptWitness, err)
	}
	var w Witness
	if err := rlp.DecodeBytes(encoded, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptWitness, err)
	}
	return &w, nil
}
