// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package replay_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xsoniclabs/chronicle/ledgertest"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/stretchr/testify/require"
)

func TestDirLookup_FindsCertificateFiles(t *testing.T) {
	require := require.New(t)

	signer := ledgertest.NewSigner(t, 4)
	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "4.der"), signer.Cert, 0644))

	lookup := replay.NewDirLookup(dir)
	cert, err := lookup.Cert(4)
	require.NoError(err)
	require.Equal(signer.Cert, cert)
}

func TestDirLookup_UnknownNodeIsMissingCert(t *testing.T) {
	require := require.New(t)

	lookup := replay.NewDirLookup(t.TempDir())
	_, err := lookup.Cert(9)
	require.ErrorIs(err, replay.ErrMissingNodeCert)
}
