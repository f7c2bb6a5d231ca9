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
	"io/fs"
	"os"
	"path/filepath"
)

// DirLookup resolves node certificates from a directory of files named
// "<node>.pem" or "<node>.der".
type DirLookup struct {
	dir string
}

func NewDirLookup(dir string) DirLookup {
	return DirLookup{dir: dir}
}

func (l DirLookup) Cert(node NodeID) ([]byte, error) {
	for _, name := range []string{fmt.Sprintf("%d.pem", node), fmt.Sprintf("%d.der", node)} {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading node certificate: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: node %d", ErrMissingNodeCert, node)
}
