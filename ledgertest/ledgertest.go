// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledgertest builds ledger files for tests: frames with packed
// public payloads, batches closed by signature frames, and the node keys
// and certificates needed to verify them.
package ledgertest

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/merkle"
	"github.com/0xsoniclabs/chronicle/packed"
	"github.com/0xsoniclabs/chronicle/replay"
)

// Signer holds a node's signing key and self-signed certificate.
type Signer struct {
	Node replay.NodeID
	Cert []byte // DER encoded
	key  *ecdsa.PrivateKey
}

// NewSigner generates a fresh P-256 key and certificate for the given node.
func NewSigner(t *testing.T, node replay.NodeID) *Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating node key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(int64(node) + 1),
		Subject:      pkix.Name{CommonName: "node"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	cert, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating node certificate: %v", err)
	}
	return &Signer{Node: node, Cert: cert, key: key}
}

// Sign produces an ASN.1 ECDSA signature over the given Merkle root.
func (s *Signer) Sign(t *testing.T, root common.Hash) []byte {
	t.Helper()
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, root[:])
	if err != nil {
		t.Fatalf("signing merkle root: %v", err)
	}
	return sig
}

// Lookup returns a certificate lookup resolving this signer's node.
func (s *Signer) Lookup() replay.StaticLookup {
	return replay.StaticLookup{s.Node: s.Cert}
}

// KV is one typed write of a table section.
type KV struct {
	Key   any
	Value any
}

// Table is one table section of a frame's public payload.
type Table struct {
	Name    string
	Writes  []KV
	Removes []any
}

// Builder accumulates ledger frames in memory, mirroring the Merkle
// history and retention policy a verified reader applies, so that emitted
// signature frames verify.
type Builder struct {
	buf     bytes.Buffer
	history *merkle.History
	version uint64
}

func NewBuilder() *Builder {
	return &Builder{history: merkle.NewHistory()}
}

// Append emits one frame carrying the given table sections and returns its
// commit version.
func (b *Builder) Append(t *testing.T, tables ...Table) uint64 {
	t.Helper()
	b.version++
	raw := b.frame(t, b.version, tables)
	b.buf.Write(raw)
	b.history.Append(common.Sha256(raw))
	return b.version
}

// Sign closes the current batch: it compacts the history the way a reader
// would, signs the resulting root, and appends the signature frame.
func (b *Builder) Sign(t *testing.T, signer *Signer) uint64 {
	t.Helper()
	version := b.version + 1
	b.history.Compact(version)
	root := b.history.Root()

	sig := replay.Signature{
		Raw:   replay.RawSignature{Sig: signer.Sign(t, root)},
		Node:  signer.Node,
		Index: version,
		Root:  root[:],
	}
	return b.Append(t, Table{
		Name:   "ccf.signatures",
		Writes: []KV{{Key: uint64(0), Value: sig}},
	})
}

// Bytes returns the ledger file content built so far.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// Offset returns the current end of the ledger, the resume offset of the
// frame appended next.
func (b *Builder) Offset() uint64 {
	return uint64(b.buf.Len())
}

// Version returns the commit version of the last appended frame.
func (b *Builder) Version() uint64 {
	return b.version
}

// History exposes the builder's Merkle history, e.g. to capture witnesses.
func (b *Builder) History() *merkle.History {
	return b.history
}

// WriteFile stores the ledger under the given path.
func (b *Builder) WriteFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("writing ledger file: %v", err)
	}
}

// frame encodes one size-prefixed frame. The encrypted header is zeroed;
// only the public domain carries data in these fixtures.
func (b *Builder) frame(t *testing.T, version uint64, tables []Table) []byte {
	t.Helper()

	var payload packed.Writer
	b.write(t, &payload, version)
	for _, table := range tables {
		b.write(t, &payload, uint32(2)) // map start marker
		b.write(t, &payload, table.Name)
		b.write(t, &payload, uint64(0)) // read version
		b.write(t, &payload, uint64(0)) // read count
		b.write(t, &payload, uint64(len(table.Writes)))
		for _, kv := range table.Writes {
			b.write(t, &payload, kv.Key)
			b.write(t, &payload, kv.Value)
		}
		b.write(t, &payload, uint64(len(table.Removes)))
		for _, key := range table.Removes {
			b.write(t, &payload, key)
		}
	}

	public := payload.Bytes()
	frameSize := 28 + 8 + len(public)

	var frame bytes.Buffer
	frame.Grow(4 + frameSize)
	var sizeField [4]byte
	binary.LittleEndian.PutUint32(sizeField[:], uint32(frameSize))
	frame.Write(sizeField[:])
	frame.Write(make([]byte, 28)) // GCM tag + IV
	var publicSize [8]byte
	binary.LittleEndian.PutUint64(publicSize[:], uint64(len(public)))
	frame.Write(publicSize[:])
	frame.Write(public)
	return frame.Bytes()
}

func (b *Builder) write(t *testing.T, w *packed.Writer, value any) {
	t.Helper()
	if err := w.Write(value); err != nil {
		t.Fatalf("packing %v: %v", value, err)
	}
}
