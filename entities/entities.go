// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package entities defines the domain records stored in the tables this
// engine queries. Values are packed as positional arrays on the wire.
package entities

import (
	"github.com/0xsoniclabs/chronicle/common"
	"github.com/0xsoniclabs/chronicle/packed"
)

// HistoryTable is the indexed table time-range queries run against.
const HistoryTable = "histories"

// HistoryID identifies a history entry. Ids are assigned monotonically in
// time order, which is what makes early termination of replay scans sound.
type HistoryID uint64

// History is one customer history entry. The wire shape is the positional
// array [c_id, c_d_id, c_w_id, d_id, w_id, date, amount, data].
type History struct {
	_msgpack struct{} `msgpack:",as_array"`

	Customer          uint64
	CustomerDistrict  uint64
	CustomerWarehouse uint64
	District          uint64
	Warehouse         uint64
	Date              string
	Amount            float64
	Data              string
}

// Time parses the entry's date field.
func (h *History) Time() (common.TimePoint, error) {
	return common.ParseTimePoint(h.Date)
}

// HistoryIndexValue extracts the snapshot index value from a packed history
// value: the time point of its date field.
func HistoryIndexValue(value []byte) (common.TimePoint, error) {
	var h History
	if err := packed.Unmarshal(value, &h); err != nil {
		return 0, err
	}
	return h.Time()
}
