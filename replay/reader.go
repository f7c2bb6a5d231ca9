// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package replay

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/merkle"
	"github.com/ethereum/go-ethereum/log"
)

// Batch is a verified run of frames: the decoded domains in cursor order,
// with the signature frame last. Raws holds the size-prefixed frame bytes
// in the same order; the slices borrow from the ledger mapping.
type Batch struct {
	Domains []*ledger.Domain
	Raws    [][]byte
}

// Reader iterates a ledger batch by batch, appending every frame to a
// Merkle history and checking batch signatures against its root. A reader
// must not be reused after a failed ReadBatch.
type Reader struct {
	ledger  *ledger.Ledger
	cursor  *ledger.Cursor
	history *merkle.History
	certs   CertLookup
	failed  bool
}

// NewReader opens a verified reader over the whole ledger. The signature
// table is added to the interest set so that batch boundaries are visible.
func NewReader(path string, interest ledger.InterestSet, certs CertLookup) (*Reader, error) {
	l, err := ledger.Open(path, interest.With(ledger.SignatureTable))
	if err != nil {
		return nil, err
	}
	return &Reader{
		ledger:  l,
		cursor:  l.Begin(),
		history: merkle.NewHistory(),
		certs:   certs,
	}, nil
}

// NewReaderAt opens a verified reader resuming at the given byte offset,
// seeding the Merkle history from the witness persisted at witnessPath.
func NewReaderAt(path string, interest ledger.InterestSet, certs CertLookup, offset uint64, witnessPath string) (*Reader, error) {
	witness, err := merkle.ReadWitnessFile(witnessPath)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(path, interest.With(ledger.SignatureTable))
	if err != nil {
		return nil, err
	}
	return &Reader{
		ledger:  l,
		cursor:  l.BeginAt(offset),
		history: merkle.Resume(witness),
		certs:   certs,
	}, nil
}

// HasNext reports whether frames remain to be read.
func (r *Reader) HasNext() bool {
	return !r.failed && r.cursor.Offset() < r.ledger.Size()
}

// Offset returns the byte position after the last consumed frame.
func (r *Reader) Offset() uint64 {
	return r.cursor.Offset()
}

// History exposes the reader's Merkle history, e.g. to capture a witness
// at a snapshot cut point.
func (r *Reader) History() *merkle.History {
	return r.history
}

// ReadBatch advances the cursor up to and including the next signature
// frame, appending each frame's hash to the Merkle history. The batch is
// returned only if the signature verifies against the history's root; no
// partial results are emitted on failure. A ledger that ends without a
// closing signature frame fails verification.
func (r *Reader) ReadBatch() (*Batch, error) {
	if r.failed {
		return nil, fmt.Errorf("%w: reader is not reusable after a failed batch", ErrVerificationFailed)
	}

	batch := &Batch{}
	for r.cursor.Next() {
		domain, err := r.cursor.Domain()
		if err != nil {
			r.failed = true
			return nil, err
		}

		if domain.IsSignature() {
			// The signed root covers all frames up to, but excluding, the
			// signature frame itself; its leaf joins the history afterwards.
			r.history.Compact(domain.Version())
			if err := r.verify(domain); err != nil {
				r.failed = true
				return nil, err
			}
			r.history.Append(common.Sha256(r.cursor.Raw()))
			batch.Domains = append(batch.Domains, domain)
			batch.Raws = append(batch.Raws, r.cursor.Raw())
			return batch, nil
		}

		r.history.Append(common.Sha256(r.cursor.Raw()))
		batch.Domains = append(batch.Domains, domain)
		batch.Raws = append(batch.Raws, r.cursor.Raw())
	}

	if err := r.cursor.Err(); err != nil {
		r.failed = true
		return nil, err
	}
	if len(batch.Domains) == 0 {
		return batch, nil
	}
	r.failed = true
	log.Warn("Ledger ended before a signature frame", "frames", len(batch.Domains))
	return nil, fmt.Errorf("%w: ledger ended before a signature frame", ErrVerificationFailed)
}

func (r *Reader) verify(domain *ledger.Domain) error {
	sig, err := signatureOf(domain)
	if err != nil {
		return err
	}
	cert, err := r.certs.Cert(sig.Node)
	if err != nil {
		if errors.Is(err, ErrMissingNodeCert) {
			return err
		}
		return fmt.Errorf("%w: node %d: %v", ErrMissingNodeCert, sig.Node, err)
	}
	ok, err := VerifyRoot(cert, r.history.Root(), sig.Raw.Sig)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: signature of node %d does not match the merkle root at version %d",
			ErrVerificationFailed, sig.Node, domain.Version())
	}
	return nil
}

func (r *Reader) Close() error {
	return r.ledger.Close()
}
