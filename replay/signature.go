// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package replay composes the ledger cursor, the Merkle history, and node
// certificates into a verified batch reader: frames are exposed batch by
// batch, and a batch is emitted only after the signature closing it has
// been checked against the cumulative Merkle root.
package replay

import (
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/packed"
)

// NodeID identifies the node that produced a signature.
type NodeID uint64

// RawSignature carries the signature bytes. It is kept as a separate type
// because signature values nest it as their first array element on the
// wire.
type RawSignature struct {
	_msgpack struct{} `msgpack:",as_array"`

	Sig []byte
}

// Signature is the value stored in the reserved signature table. The wire
// shape is [[sig], node, index, term, commit, root, tree]; this package
// consumes the signature bytes and the signing node id.
type Signature struct {
	_msgpack struct{} `msgpack:",as_array"`

	Raw    RawSignature
	Node   NodeID
	Index  uint64
	Term   uint64
	Commit uint64
	Root   []byte
	Tree   []byte
}

// signatureOf extracts the signature value from a signature frame's domain.
func signatureOf(domain *ledger.Domain) (Signature, error) {
	updates := domain.Updates(ledger.SignatureTable)
	if len(updates) == 0 {
		return Signature{}, packed.ErrDecode
	}
	// Only one signature exists per signature frame; take the first entry.
	var sig Signature
	if err := packed.Unmarshal(updates[0].Value, &sig); err != nil {
		return Signature{}, err
	}
	return sig, nil
}
