// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"fmt"
	"sort"

	"github.com/0xsoniclabs/chronicle/packed"
	"golang.org/x/exp/constraints"
)

// SignatureTable is the reserved table closing a batch; a frame whose public
// domain updates this table is a signature frame.
const SignatureTable = "ccf.signatures"

// ErrDecode is reported on truncated or misframed public payloads.
const ErrDecode = packed.ErrDecode

// InterestSet is the set of table names for which a domain decoder
// materializes updates. Sections of other tables are skipped while
// advancing the stream.
type InterestSet map[string]struct{}

func NewInterestSet(names ...string) InterestSet {
	res := make(InterestSet, len(names))
	for _, name := range names {
		res[name] = struct{}{}
	}
	return res
}

func (s InterestSet) Contains(name string) bool {
	_, found := s[name]
	return found
}

// With returns a copy of the set extended by the given names.
func (s InterestSet) With(names ...string) InterestSet {
	res := make(InterestSet, len(s)+len(names))
	for name := range s {
		res[name] = struct{}{}
	}
	for _, name := range names {
		res[name] = struct{}{}
	}
	return res
}

// Update is one write recorded in a table section. Key and Value are packed
// objects borrowed from the frame buffer; they must not outlive it.
type Update struct {
	Key   []byte
	Value []byte
}

// Domain is the decoded public portion of one frame: the commit version and
// the updates of all tables in the decoder's interest set, in file order.
type Domain struct {
	version    uint64
	tableNames []string
	updates    map[string][]Update
}

// DecodeDomain parses a public payload. Table sections in the interest set
// are materialized; all others are consumed at skip cost only.
func DecodeDomain(payload []byte, interest InterestSet) (*Domain, error) {
	r := packed.NewReader(payload)

	version, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("reading domain version: %w", err)
	}

	domain := &Domain{
		version: version,
		updates: map[string][]Update{},
	}

	for !r.Done() {
		if err := r.Skip(); err != nil { // map start marker
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("reading table name: %w", err)
		}
		if err := r.Skip(); err != nil { // read version
			return nil, err
		}
		if err := r.Skip(); err != nil { // read count
			return nil, err
		}

		writeCount, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		materialize := interest.Contains(name)
		var updates []Update
		if materialize {
			updates = make([]Update, 0, writeCount)
		}
		for i := uint64(0); i < writeCount; i++ {
			key, err := r.ReadRaw()
			if err != nil {
				return nil, err
			}
			value, err := r.ReadRaw()
			if err != nil {
				return nil, err
			}
			if materialize {
				updates = append(updates, Update{Key: key, Value: value})
			}
		}

		removeCount, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < removeCount; i++ {
			if err := r.Skip(); err != nil {
				return nil, err
			}
		}

		if materialize {
			domain.tableNames = append(domain.tableNames, name)
			domain.updates[name] = updates
		}
	}

	return domain, nil
}

// Version returns the commit version of the frame.
func (d *Domain) Version() uint64 {
	return d.version
}

// TableNames lists the materialized tables in file order.
func (d *Domain) TableNames() []string {
	return d.tableNames
}

// HasTable reports whether the domain carries updates for the given table.
func (d *Domain) HasTable(name string) bool {
	_, found := d.updates[name]
	return found
}

// IsSignature reports whether this domain updates the reserved signature
// table, marking the end of a batch.
func (d *Domain) IsSignature() bool {
	return d.HasTable(SignatureTable)
}

// Updates returns the raw updates of a table in file order.
func (d *Domain) Updates(name string) []Update {
	return d.updates[name]
}

// Entry is one key/value pair of a decoded table view.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// TableUpdates decodes the raw updates of a table into typed entries
// ordered by key. If a key occurs more than once within the domain, the
// first occurrence wins.
func TableUpdates[K constraints.Ordered, V any](d *Domain, name string) ([]Entry[K, V], error) {
	updates := d.updates[name]
	if len(updates) == 0 {
		return nil, nil
	}
	seen := make(map[K]struct{}, len(updates))
	entries := make([]Entry[K, V], 0, len(updates))
	for _, update := range updates {
		var key K
		if err := packed.Unmarshal(update.Key, &key); err != nil {
			return nil, fmt.Errorf("decoding %q key: %w", name, err)
		}
		if _, found := seen[key]; found {
			continue
		}
		seen[key] = struct{}{}
		var value V
		if err := packed.Unmarshal(update.Value, &value); err != nil {
			return nil, fmt.Errorf("decoding %q value: %w", name, err)
		}
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}
