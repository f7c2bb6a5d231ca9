// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package packed provides reading and writing of the self-describing packed
// object encoding used by ledger payloads and snapshot files. The encoding
// is MessagePack; readers track byte offsets so that callers can capture the
// exact byte range of each object and re-emit it without re-encoding.
package packed

import (
	"bytes"
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrDecode is reported when a packed stream is truncated or misframed.
const ErrDecode = common.ConstError("decode error")

// Reader walks a packed byte stream object by object. Raw slices returned by
// ReadRaw alias the underlying buffer and must not outlive it.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the position of the next unread object in the buffer.
func (r *Reader) Offset() int {
	return r.off
}

// Done reports whether the whole buffer has been consumed.
func (r *Reader) Done() bool {
	return r.off >= len(r.buf)
}

// ReadRaw consumes the next packed object and returns its exact byte range
// as a sub-slice of the underlying buffer.
func (r *Reader) ReadRaw() ([]byte, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(r.buf[r.off:]))
	var raw msgpack.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: at offset %d: %v", ErrDecode, r.off, err)
	}
	res := r.buf[r.off : r.off+len(raw)]
	r.off += len(raw)
	return res, nil
}

// Skip consumes the next packed object without retaining it.
func (r *Reader) Skip() error {
	_, err := r.ReadRaw()
	return err
}

// ReadString consumes the next packed object and decodes it as a string.
func (r *Reader) ReadString() (string, error) {
	var res string
	err := r.read(&res)
	return res, err
}

// ReadUint64 consumes the next packed object and decodes it as a uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	var res uint64
	err := r.read(&res)
	return res, err
}

func (r *Reader) read(target any) error {
	raw, err := r.ReadRaw()
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Unmarshal decodes a single packed object into the given target.
func Unmarshal(raw []byte, target any) error {
	if err := msgpack.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Writer accumulates packed objects in an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
}

// Write appends the packed encoding of the given value.
func (w *Writer) Write(value any) error {
	enc := msgpack.NewEncoder(&w.buf)
	return enc.Encode(value)
}

// WriteRaw appends bytes that are already packed.
func (w *Writer) WriteRaw(raw []byte) {
	w.buf.Write(raw)
}

// Len returns the number of bytes accumulated so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the accumulated buffer. The result is invalidated by
// subsequent writes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
