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

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/query"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/0xsoniclabs/chronicle/snapshot"
	"github.com/urfave/cli/v2"
)

var Query = cli.Command{
	Action:    runQuery,
	Name:      "query",
	Usage:     "answers a time-range history query by verified replay",
	ArgsUsage: "<ledger>",
	Flags: []cli.Flag{
		&certsFlag,
		&registryFlag,
		&cli.StringFlag{
			Name:     "from",
			Usage:    "start of the range, \"2006-01-02 15:04:05\"",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "end of the range, \"2006-01-02 15:04:05\"",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "replay | snapshot (the kv strategy needs the live store)",
			Value: "replay",
		},
	},
}

func runQuery(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing ledger file argument")
	}
	path := context.Args().Get(0)

	from, err := common.ParseTimePoint(context.String("from"))
	if err != nil {
		return fmt.Errorf("parsing --from: %w", err)
	}
	to, err := common.ParseTimePoint(context.String("to"))
	if err != nil {
		return fmt.Errorf("parsing --to: %w", err)
	}

	var strategy query.Strategy
	index := snapshot.NewIndex()
	switch context.String("strategy") {
	case "replay":
		strategy = query.Replay
	case "snapshot":
		strategy = query.Snapshot
		dir := context.String(registryFlag.Name)
		if dir == "" {
			return fmt.Errorf("the snapshot strategy needs --registry")
		}
		registry, err := snapshot.OpenRegistry(dir)
		if err != nil {
			return err
		}
		defer registry.Close()
		index, err = registry.LoadIndex()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown strategy %q", context.String("strategy"))
	}

	engine := query.NewEngine(path, replay.NewDirLookup(context.String(certsFlag.Name)), nil, index)
	results, err := engine.Query(from, to, strategy)
	if err != nil {
		return err
	}
	fmt.Printf("%d matching history entries\n", len(results))
	for _, customer := range results {
		fmt.Printf("customer %d\n", customer)
	}
	return nil
}
