// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledger provides read access to append-only ledger files: the
// on-disk frame codec, a decoder for the public domain of each frame, and a
// cursor for sequential and offset-based iteration.
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/0xsoniclabs/chronicle/common"
)

// Sizes (in bytes) of the fields of the frame header.
const (
	frameSizeField = 4
	gcmTagSize     = 16
	gcmIVSize      = 12
	gcmHeaderSize  = gcmTagSize + gcmIVSize
	publicSizeField = 8
)

// ErrMalformedFrame is reported when the size fields of a frame are
// inconsistent with each other or with the containing buffer.
const ErrMalformedFrame = common.ConstError("malformed frame")

// ErrShortRead is reported when a frame extends beyond the end of the file.
const ErrShortRead = common.ConstError("short read")

// Frame describes the location of one length-prefixed record inside a
// ledger buffer. The frame starts with a u32 size field, followed by an
// encrypted header (opaque to this package), a u64 public payload size, the
// public payload, and an optional private remainder.
type Frame struct {
	Offset       uint64 // position of the frame's size field in the buffer
	Size         uint32 // number of bytes following the size field
	PublicOffset uint64 // absolute position of the public payload
	PublicSize   uint64
}

// ReadFrame decodes the frame header found at the given offset. The buffer
// is not retained; all results reference positions within it.
func ReadFrame(buf []byte, offset uint64) (Frame, error) {
	size := uint64(len(buf))
	if offset+frameSizeField > size {
		return Frame{}, fmt.Errorf("%w: frame header at offset %d exceeds file size %d", ErrShortRead, offset, size)
	}
	frameSize := binary.LittleEndian.Uint32(buf[offset:])
	end := offset + frameSizeField + uint64(frameSize)
	if end > size {
		return Frame{}, fmt.Errorf("%w: frame at offset %d ends at %d, file size %d", ErrShortRead, offset, end, size)
	}
	if uint64(frameSize) < gcmHeaderSize+publicSizeField {
		return Frame{}, fmt.Errorf("%w: frame size %d cannot hold the header", ErrMalformedFrame, frameSize)
	}
	publicOffset := offset + frameSizeField + gcmHeaderSize + publicSizeField
	publicSize := binary.LittleEndian.Uint64(buf[publicOffset-publicSizeField:])
	if publicSize > uint64(frameSize)-gcmHeaderSize-publicSizeField {
		return Frame{}, fmt.Errorf("%w: public payload size %d exceeds frame size %d", ErrMalformedFrame, publicSize, frameSize)
	}
	return Frame{
		Offset:       offset,
		Size:         frameSize,
		PublicOffset: publicOffset,
		PublicSize:   publicSize,
	}, nil
}

// Raw returns the size-prefixed frame region, the unit over which Merkle
// leaves are computed.
func (f Frame) Raw(buf []byte) []byte {
	return buf[f.Offset:f.End()]
}

// Public returns the public payload of the frame.
func (f Frame) Public(buf []byte) []byte {
	return buf[f.PublicOffset : f.PublicOffset+f.PublicSize]
}

// End returns the position immediately after the frame, which is the offset
// of the next frame in the file.
func (f Frame) End() uint64 {
	return f.Offset + frameSizeField + uint64(f.Size)
}
