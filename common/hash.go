// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a 32-byte SHA-256 digest. It is used for Merkle tree leaves and
// roots as well as for snapshot content hashes.
type Hash [32]byte

// Sha256 computes the SHA-256 hash of the concatenation of the given byte
// slices.
func Sha256(data ...[]byte) Hash {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var res Hash
	h.Sum(res[:0])
	return res
}

// HashFromBytes converts a 32-byte slice into a Hash. Slices of any other
// length produce the zero hash.
func HashFromBytes(data []byte) Hash {
	var res Hash
	if len(data) == len(res) {
		copy(res[:], data)
	}
	return res
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
