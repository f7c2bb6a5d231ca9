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
	"os"

	"github.com/urfave/cli/v2"
)

var certsFlag = cli.StringFlag{
	Name:     "certs",
	Usage:    "directory holding <node>.pem node certificates",
	Required: true,
}

var registryFlag = cli.StringFlag{
	Name:  "registry",
	Usage: "directory of the snapshot registry",
}

func main() {
	app := &cli.App{
		Name:  "chronicle",
		Usage: "verifiable time-range queries over an append-only ledger",
		Commands: []*cli.Command{
			&Verify,
			&Snapshot,
			&Query,
			&Dump,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
