// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package query

import "github.com/0xsoniclabs/chronicle/entities"

// View is the live materialized history table of the store. The engine
// only iterates it; updates happen outside the engine. Iteration order is
// unspecified.
type View interface {
	// ForEach visits every entry until the callback returns false.
	ForEach(visit func(id entities.HistoryID, value entities.History) bool)
}

// MapView adapts an in-memory map to the View interface.
type MapView map[entities.HistoryID]entities.History

func (v MapView) ForEach(visit func(id entities.HistoryID, value entities.History) bool) {
	for id, value := range v {
		if !visit(id, value) {
			return
		}
	}
}
