// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/urfave/cli/v2"
)

var Verify = cli.Command{
	Action:    verify,
	Name:      "verify",
	Usage:     "replays a ledger and checks every batch signature",
	ArgsUsage: "<ledger>",
	Flags: []cli.Flag{
		&certsFlag,
	},
}

func verify(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing ledger file argument")
	}
	path := context.Args().Get(0)

	reader, err := replay.NewReader(path, ledger.NewInterestSet(), replay.NewDirLookup(context.String(certsFlag.Name)))
	if err != nil {
		return err
	}

	batches, frames := 0, 0
	for reader.HasNext() {
		batch, err := reader.ReadBatch()
		if err != nil {
			return errors.Join(err, reader.Close())
		}
		if len(batch.Domains) == 0 {
			break
		}
		batches++
		frames += len(batch.Domains)
	}
	fmt.Printf("Verified %d batches covering %d frames\n", batches, frames)
	return reader.Close()
}
