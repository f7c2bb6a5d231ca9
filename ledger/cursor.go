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
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Ledger is a read-only view on a ledger file. The file is memory-mapped;
// raw slices and decoded domains handed out by cursors reference the
// mapping and are invalidated by Close. A Ledger supports any number of
// concurrent cursors.
type Ledger struct {
	file     *os.File
	data     mmap.MMap
	interest InterestSet
}

// Open maps the ledger file at the given path. A zero-length file is a
// valid, empty ledger.
func Open(path string, interest InterestSet) (*Ledger, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stating ledger: %w", err), file.Close())
	}
	var data mmap.MMap
	if info.Size() > 0 {
		data, err = mmap.Map(file, mmap.RDONLY, 0)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("mapping ledger: %w", err), file.Close())
		}
	}
	return &Ledger{file: file, data: data, interest: interest}, nil
}

// Data exposes the mapped file content.
func (l *Ledger) Data() []byte {
	return l.data
}

// Size returns the length of the ledger file in bytes.
func (l *Ledger) Size() uint64 {
	return uint64(len(l.data))
}

// Begin returns a cursor positioned before the first frame.
func (l *Ledger) Begin() *Cursor {
	return l.BeginAt(0)
}

// BeginAt returns a cursor positioned before the frame starting at the
// given byte offset. It is used to resume replay at a snapshot boundary.
func (l *Ledger) BeginAt(offset uint64) *Cursor {
	return &Cursor{ledger: l, state: beforeFrame, next: offset}
}

func (l *Ledger) Close() error {
	var unmapErr error
	if l.data != nil {
		unmapErr = l.data.Unmap()
		l.data = nil
	}
	return errors.Join(unmapErr, l.file.Close())
}

// cursorState encodes the iteration state machine.
type cursorState int

const (
	beforeFrame cursorState = iota // positioned before the frame at `next`
	inFrame                        // `frame` holds the current frame
	atEnd                          // end of file or failed
)

// Cursor is a single-pass iterator over the frames of a ledger. The usual
// pattern is
//
//	cur := ledger.Begin()
//	for cur.Next() {
//	    ... cur.Raw(), cur.Domain() ...
//	}
//	if err := cur.Err(); err != nil { ... }
//
// Cursors of the same ledger are ordered by offset; two cursors are at the
// same position iff their offsets are equal.
type Cursor struct {
	ledger *Ledger
	state  cursorState
	next   uint64 // offset of the next frame to read
	frame  Frame
	domain *Domain
	err    error
}

// Next advances to the next frame. It returns false at the end of the file
// or on a malformed frame; Err distinguishes the two.
func (c *Cursor) Next() bool {
	if c.state == atEnd {
		return false
	}
	if c.next >= c.ledger.Size() {
		c.state = atEnd
		return false
	}
	frame, err := ReadFrame(c.ledger.data, c.next)
	if err != nil {
		c.state = atEnd
		c.err = err
		return false
	}
	c.state = inFrame
	c.frame = frame
	c.domain = nil
	c.next = frame.End()
	return true
}

// Err returns the error that terminated iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Frame returns the header of the current frame.
func (c *Cursor) Frame() Frame {
	return c.frame
}

// Raw returns the size-prefixed bytes of the current frame. The slice
// borrows from the ledger mapping.
func (c *Cursor) Raw() []byte {
	return c.frame.Raw(c.ledger.data)
}

// Domain decodes the public payload of the current frame using the
// ledger's interest set. The result is cached until the next advance.
func (c *Cursor) Domain() (*Domain, error) {
	if c.state != inFrame {
		return nil, fmt.Errorf("%w: cursor holds no frame", ErrDecode)
	}
	if c.domain == nil {
		domain, err := DecodeDomain(c.frame.Public(c.ledger.data), c.ledger.interest)
		if err != nil {
			return nil, err
		}
		c.domain = domain
	}
	return c.domain, nil
}

// Offset returns the position after the current frame, which is the offset
// at which a resumed reader would continue.
func (c *Cursor) Offset() uint64 {
	return c.next
}
