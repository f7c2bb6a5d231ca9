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
	"strings"

	"github.com/0xsoniclabs/chronicle/entities"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/urfave/cli/v2"
)

var Dump = cli.Command{
	Action:    dump,
	Name:      "dump",
	Usage:     "walks a ledger without verification and prints its frames",
	ArgsUsage: "<ledger>",
}

func dump(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing ledger file argument")
	}
	path := context.Args().Get(0)

	l, err := ledger.Open(path, ledger.NewInterestSet(entities.HistoryTable, ledger.SignatureTable))
	if err != nil {
		return err
	}

	cur := l.Begin()
	for cur.Next() {
		domain, err := cur.Domain()
		if err != nil {
			return errors.Join(err, l.Close())
		}
		frame := cur.Frame()
		kind := "txn"
		if domain.IsSignature() {
			kind = "signature"
		}
		fmt.Printf("offset %8d size %6d version %6d %-9s tables [%s]\n",
			frame.Offset, frame.Size, domain.Version(), kind,
			strings.Join(domain.TableNames(), ", "))

		entries, err := ledger.TableUpdates[entities.HistoryID, entities.History](domain, entities.HistoryTable)
		if err != nil {
			return errors.Join(err, l.Close())
		}
		for _, entry := range entries {
			fmt.Printf("  history %d: customer %d at %s\n", entry.Key, entry.Value.Customer, entry.Value.Date)
		}
	}
	if err := cur.Err(); err != nil {
		return errors.Join(err, l.Close())
	}
	return l.Close()
}
