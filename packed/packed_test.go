// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package packed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader_WalksObjectsAndTracksOffsets(t *testing.T) {
	require := require.New(t)

	var w Writer
	require.NoError(w.Write(uint64(42)))
	require.NoError(w.Write("histories"))
	require.NoError(w.Write(uint64(7)))
	buf := w.Bytes()

	r := NewReader(buf)
	require.Equal(0, r.Offset())

	version, err := r.ReadUint64()
	require.NoError(err)
	require.Equal(uint64(42), version)

	name, err := r.ReadString()
	require.NoError(err)
	require.Equal("histories", name)
	require.False(r.Done())

	count, err := r.ReadUint64()
	require.NoError(err)
	require.Equal(uint64(7), count)
	require.True(r.Done())
	require.Equal(len(buf), r.Offset())
}

func TestReader_RawSlicesAliasTheBuffer(t *testing.T) {
	require := require.New(t)

	var w Writer
	require.NoError(w.Write("alpha"))
	require.NoError(w.Write(uint64(1)))
	buf := w.Bytes()

	r := NewReader(buf)
	raw, err := r.ReadRaw()
	require.NoError(err)
	require.Equal(buf[:len(raw)], raw)

	// The raw slice must decode back to the original value.
	var s string
	require.NoError(Unmarshal(raw, &s))
	require.Equal("alpha", s)

	// Re-emitting raw bytes must reproduce the original encoding.
	var out Writer
	out.WriteRaw(raw)
	require.Equal(buf[:len(raw)], out.Bytes())
}

func TestReader_SkipAdvancesOverUninterestingObjects(t *testing.T) {
	require := require.New(t)

	var w Writer
	require.NoError(w.Write("ignored"))
	require.NoError(w.Write(uint64(99)))
	r := NewReader(w.Bytes())

	require.NoError(r.Skip())
	value, err := r.ReadUint64()
	require.NoError(err)
	require.Equal(uint64(99), value)
}

func TestReader_TruncatedInputFailsWithDecodeError(t *testing.T) {
	require := require.New(t)

	var w Writer
	require.NoError(w.Write("a longer string payload"))
	buf := w.Bytes()

	r := NewReader(buf[:len(buf)-3])
	_, err := r.ReadRaw()
	require.ErrorIs(err, ErrDecode)
}

func TestReader_EmptyBufferIsDone(t *testing.T) {
	require := require.New(t)

	r := NewReader(nil)
	require.True(r.Done())
	_, err := r.ReadRaw()
	require.ErrorIs(err, ErrDecode)
}
