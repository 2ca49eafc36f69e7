package elfcore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteView is a read-only window over an image buffer. Every sub-range it
// hands out is checked against the buffer length first; the returned slices
// alias the buffer and have their capacity capped to their length.
type ByteView struct {
	data  []byte
	order binary.ByteOrder
}

// NewByteView wraps b. The order is used by the integer accessors.
func NewByteView(b []byte, order binary.ByteOrder) ByteView {
	if order == nil {
		order = binary.LittleEndian
	}
	return ByteView{data: b, order: order}
}

// Len returns the buffer length in bytes.
func (v ByteView) Len() uint64 {
	return uint64(len(v.data))
}

// Order returns the byte order used to decode integers.
func (v ByteView) Order() binary.ByteOrder {
	return v.order
}

// Slice returns the n bytes starting at off.
func (v ByteView) Slice(off, n uint64) ([]byte, error) {
	if off > v.Len() || n > v.Len()-off {
		return nil, fmt.Errorf("%w: [%#x, +%#x) in %#x bytes", ErrTruncated, off, n, v.Len())
	}
	end := off + n
	return v.data[off:end:end], nil
}

// Tail returns everything from off to the end of the buffer.
func (v ByteView) Tail(off uint64) ([]byte, error) {
	if off > v.Len() {
		return nil, fmt.Errorf("%w: offset %#x in %#x bytes", ErrTruncated, off, v.Len())
	}
	return v.Slice(off, v.Len()-off)
}

// Record returns the i-th fixed-size record of an array starting at base.
func (v ByteView) Record(base uint64, i int, size int) ([]byte, error) {
	if i < 0 || size <= 0 {
		return nil, fmt.Errorf("%w: record %d of size %d", ErrIndexOutOfRange, i, size)
	}
	if uint64(i) > math.MaxUint64/uint64(size) {
		return nil, fmt.Errorf("%w: record %d overflows", ErrTruncated, i)
	}
	rel := uint64(i) * uint64(size)
	if base > math.MaxUint64-rel {
		return nil, fmt.Errorf("%w: record %d at %#x overflows", ErrTruncated, i, base)
	}
	return v.Slice(base+rel, uint64(size))
}

func (v ByteView) cursor(rec []byte) *cursor {
	return &cursor{b: rec, order: v.order}
}

// cursor decodes consecutive fields of a record that has already been
// bounds-checked against its full size.
type cursor struct {
	b     []byte
	off   int
	order binary.ByteOrder
}

func (c *cursor) skip(n int) {
	c.off += n
}

func (c *cursor) u16() uint16 {
	x := c.order.Uint16(c.b[c.off:])
	c.off += 2
	return x
}

func (c *cursor) u32() uint32 {
	x := c.order.Uint32(c.b[c.off:])
	c.off += 4
	return x
}

func (c *cursor) u64() uint64 {
	x := c.order.Uint64(c.b[c.off:])
	c.off += 8
	return x
}
