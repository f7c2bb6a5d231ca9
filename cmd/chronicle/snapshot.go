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
	"fmt"

	"github.com/0xsoniclabs/chronicle/entities"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/0xsoniclabs/chronicle/snapshot"
	"github.com/urfave/cli/v2"
)

var Snapshot = cli.Command{
	Action:    createSnapshot,
	Name:      "snapshot",
	Usage:     "folds the verified prefix of a ledger into a snapshot file",
	ArgsUsage: "<ledger>",
	Flags: []cli.Flag{
		&certsFlag,
		&registryFlag,
		&cli.Uint64Flag{
			Name:     "version",
			Usage:    "commit version up to which the ledger is folded",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "output directory for snapshot and witness files",
			Value: ".",
		},
	},
}

func createSnapshot(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing ledger file argument")
	}
	path := context.Args().Get(0)

	builder := snapshot.NewBuilder(
		path,
		replay.NewDirLookup(context.String(certsFlag.Name)),
		context.String("dir"),
		entities.HistoryTable,
		entities.HistoryIndexValue,
	)

	var registry *snapshot.Registry
	if dir := context.String(registryFlag.Name); dir != "" {
		var err error
		registry, err = snapshot.OpenRegistry(dir)
		if err != nil {
			return err
		}
		defer registry.Close()
	}

	s, err := builder.BuildAndRegister(context.Uint64("version"), registry, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s at version %d (offset %d, hash %s)\n", s.Path, s.Version, s.LedgerOffset, s.ContentHash)
	return nil
}
