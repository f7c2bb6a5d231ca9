// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"time"
)

// TimePoint is a point in time expressed as seconds since the Unix epoch.
// It is the sort key for snapshot indexing and the comparison domain for
// time-range queries.
type TimePoint int64

// timeLayout is the wire format of dates in history entries, interpreted
// in local time.
const timeLayout = "2006-01-02 15:04:05"

// ParseTimePoint parses a date string of the form "2006-01-02 15:04:05"
// in local time and converts it into a TimePoint.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return 0, err
	}
	return TimePoint(t.Unix()), nil
}

// Time converts the TimePoint back into a time.Time in local time.
func (p TimePoint) Time() time.Time {
	return time.Unix(int64(p), 0)
}

// Format renders the TimePoint in the wire format used by history entries.
func (p TimePoint) Format() string {
	return p.Time().Format(timeLayout)
}
