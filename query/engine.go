// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package query answers bounded time-range queries over the history table
// using one of three strategies: a scan of the live table, a full verified
// replay of the ledger, or a snapshot-accelerated replay resuming at a
// persisted checkpoint.
package query

import (
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/entities"
	"github.com/0xsoniclabs/chronicle/ledger"
	"github.com/0xsoniclabs/chronicle/replay"
	"github.com/0xsoniclabs/chronicle/snapshot"
	"github.com/ethereum/go-ethereum/log"
)

// ErrRangePrecedesSnapshots signals that a query range lies before every
// registered snapshot. It is a non-fatal condition; the engine answers
// such queries with an empty result.
const ErrRangePrecedesSnapshots = common.ConstError("range precedes all snapshots")

// Strategy selects how a time-range query is executed.
type Strategy int

const (
	// KV scans the live materialized table; fast but unverified.
	KV Strategy = iota
	// Replay re-reads the whole ledger under Merkle verification.
	Replay
	// Snapshot resumes verified replay from the best registered snapshot.
	Snapshot
)

func (s Strategy) String() string {
	switch s {
	case KV:
		return "kv"
	case Replay:
		return "replay"
	case Snapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Engine orchestrates time-range queries. Its collaborators are injected:
// the live table view, the node certificate lookup, and (for the snapshot
// strategy) the snapshot index. An engine is safe for concurrent queries.
type Engine struct {
	ledgerPath string
	certs      replay.CertLookup
	view       View
	index      *snapshot.Index
}

func NewEngine(ledgerPath string, certs replay.CertLookup, view View, index *snapshot.Index) *Engine {
	return &Engine{
		ledgerPath: ledgerPath,
		certs:      certs,
		view:       view,
		index:      index,
	}
}

// Query returns the customer ids of all history entries with a date in
// [from, to], in the order encountered by the chosen strategy. Duplicates
// are preserved; a customer with several entries in range appears once per
// entry. Results are complete or an error is raised; there is no partial
// outcome.
func (e *Engine) Query(from, to common.TimePoint, strategy Strategy) ([]uint64, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range: from %v is after to %v", from.Format(), to.Format())
	}
	log.Debug("Processing history query", "strategy", strategy, "from", from.Format(), "to", to.Format())
	switch strategy {
	case KV:
		return e.queryKV(from, to)
	case Replay:
		return e.queryReplay(from, to)
	case Snapshot:
		return e.querySnapshot(from, to)
	default:
		return nil, fmt.Errorf("unknown query strategy %d", int(strategy))
	}
}

// queryKV filters every entry of the live table; no ordering assumption is
// made on iteration.
func (e *Engine) queryKV(from, to common.TimePoint) ([]uint64, error) {
	results := []uint64{}
	var failure error
	e.view.ForEach(func(_ entities.HistoryID, value entities.History) bool {
		date, err := value.Time()
		if err != nil {
			failure = err
			return false
		}
		if from <= date && date <= to {
			results = append(results, value.Customer)
		}
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return results, nil
}

// queryReplay runs a full verified replay over the ledger.
func (e *Engine) queryReplay(from, to common.TimePoint) ([]uint64, error) {
	reader, err := replay.NewReader(e.ledgerPath, ledger.NewInterestSet(entities.HistoryTable), e.certs)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return e.replay(reader, from, to, []uint64{})
}

// querySnapshot resumes verified replay from the largest snapshot below
// the queried range, after harvesting the snapshot's own entries.
func (e *Engine) querySnapshot(from, to common.TimePoint) ([]uint64, error) {
	start, err := e.startSnapshot(from, to)
	if err != nil {
		log.Info("Answering snapshot query with empty result", "reason", err)
		return []uint64{}, nil
	}

	reader, err := snapshot.OpenReader(start)
	if err != nil {
		return nil, err
	}

	results := []uint64{}
	entries, err := snapshot.Table[entities.HistoryID, entities.History](reader, entities.HistoryTable)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		date, err := entry.Value.Time()
		if err != nil {
			return nil, err
		}
		if from <= date && date <= to {
			results = append(results, entry.Value.Customer)
		}
	}

	replayReader, err := replay.NewReaderAt(e.ledgerPath, ledger.NewInterestSet(entities.HistoryTable),
		e.certs, start.LedgerOffset, start.WitnessPath)
	if err != nil {
		return nil, err
	}
	defer replayReader.Close()
	return e.replay(replayReader, from, to, results)
}

// startSnapshot picks the resume snapshot for the given range: the largest
// snapshot with an index value below from, or the very first snapshot when
// it already reaches into the range.
func (e *Engine) startSnapshot(from, to common.TimePoint) (*snapshot.Snapshot, error) {
	if s, found := e.index.Predecessor(from); found {
		return s, nil
	}
	first, found := e.index.First()
	if !found || first.IndexValue >= to {
		return nil, ErrRangePrecedesSnapshots
	}
	return first, nil
}

// replay drains the reader batch by batch until the range is exceeded.
func (e *Engine) replay(reader *replay.Reader, from, to common.TimePoint, results []uint64) ([]uint64, error) {
	for reader.HasNext() {
		batch, err := reader.ReadBatch()
		if err != nil {
			return nil, err
		}
		for _, domain := range batch.Domains {
			exceeded, err := processDomain(domain, from, to, &results)
			if err != nil {
				return nil, err
			}
			if exceeded {
				return results, nil
			}
		}
	}
	return results, nil
}

// processDomain collects the matching history entries of one domain. It
// reports true once an entry beyond the range's upper bound is seen:
// history ids are assigned monotonically in time order, so nothing later
// in the ledger can still fall into the range.
func processDomain(domain *ledger.Domain, from, to common.TimePoint, results *[]uint64) (bool, error) {
	if !domain.HasTable(entities.HistoryTable) {
		return false, nil
	}
	entries, err := ledger.TableUpdates[entities.HistoryID, entities.History](domain, entities.HistoryTable)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		date, err := entry.Value.Time()
		if err != nil {
			return false, err
		}
		if date < from {
			continue
		}
		if date > to {
			return true, nil
		}
		*results = append(*results, entry.Value.Customer)
	}
	return false, nil
}
