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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
)

//go:generate mockgen -source verifier.go -destination cert_lookup_mocks.go -package replay

// ErrMissingNodeCert is reported when the certificate of a signing node
// cannot be resolved; the batch cannot be trusted.
const ErrMissingNodeCert = common.ConstError("missing node certificate")

// ErrVerificationFailed is reported when a batch's signature does not match
// the cumulative Merkle root.
const ErrVerificationFailed = common.ConstError("verification failed")

// CertLookup resolves the certificate of a node. Certificates are consumed
// as opaque PEM or DER blobs; issuance and distribution are external.
type CertLookup interface {
	// Cert returns the encoded certificate of the given node.
	Cert(node NodeID) ([]byte, error)
}

// StaticLookup is a CertLookup over a fixed node table.
type StaticLookup map[NodeID][]byte

func (l StaticLookup) Cert(node NodeID) ([]byte, error) {
	cert, found := l[node]
	if !found {
		return nil, fmt.Errorf("%w: node %d", ErrMissingNodeCert, node)
	}
	return cert, nil
}

// VerifyRoot checks that sig is a valid signature over the given Merkle
// root by the holder of the given certificate.
func VerifyRoot(cert []byte, root common.Hash, sig []byte) (bool, error) {
	parsed, err := parseCert(cert)
	if err != nil {
		return false, err
	}
	switch key := parsed.PublicKey.(type) {
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(key, root[:], sig), nil
	case ed25519.PublicKey:
		return ed25519.Verify(key, root[:], sig), nil
	default:
		return false, fmt.Errorf("unsupported public key type %T in node certificate", key)
	}
}

func parseCert(cert []byte) (*x509.Certificate, error) {
	der := cert
	if block, _ := pem.Decode(cert); block != nil {
		der = block.Bytes
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing node certificate: %w", err)
	}
	return parsed, nil
}
