package elfcore

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteView_Slice(t *testing.T) {
	buf := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	v := NewByteView(buf, binary.LittleEndian)

	tests := []struct {
		name    string
		off, n  uint64
		want    []byte
		wantErr bool
	}{
		{name: "whole buffer", off: 0, n: 8, want: buf},
		{name: "middle", off: 2, n: 3, want: []byte{2, 3, 4}},
		{name: "empty at end", off: 8, n: 0, want: []byte{}},
		{name: "one past end", off: 8, n: 1, wantErr: true},
		{name: "offset past end", off: 9, n: 0, wantErr: true},
		{name: "length overflow", off: 4, n: math.MaxUint64, wantErr: true},
		{name: "offset overflow", off: math.MaxUint64, n: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Slice(tt.off, tt.n)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTruncated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(got), cap(got), "sub-slices must not expose the rest of the buffer")
		})
	}
}

func TestByteView_Record(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	v := NewByteView(buf, binary.LittleEndian)

	rec, err := v.Record(16, 2, 8)
	require.NoError(t, err)
	assert.Equal(t, buf[32:40], rec)

	_, err = v.Record(16, 6, 8)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = v.Record(math.MaxUint64-4, 1, 8)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = v.Record(0, math.MaxInt, 64)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = v.Record(0, -1, 8)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestByteView_Tail(t *testing.T) {
	v := NewByteView([]byte("abcdef"), nil)
	assert.Equal(t, binary.LittleEndian, v.Order())

	got, err := v.Tail(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), got)

	_, err = v.Tail(7)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCursor_ByteOrder(t *testing.T) {
	rec := []byte{0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	le := NewByteView(rec, binary.LittleEndian).cursor(rec)
	assert.Equal(t, uint16(0x0201), le.u16())
	assert.Equal(t, uint32(0x04030201), le.u32())
	assert.Equal(t, uint64(0x0807060504030201), le.u64())

	be := NewByteView(rec, binary.BigEndian).cursor(rec)
	assert.Equal(t, uint16(0x0102), be.u16())
	assert.Equal(t, uint32(0x01020304), be.u32())
	assert.Equal(t, uint64(0x0102030405060708), be.u64())
}
