package elfcore

import (
	"encoding/binary"
	"fmt"
)

// File is a buffer that has been bound to one width. It keeps no storage of
// its own beyond the decoded header: every table lookup reads through the
// caller's buffer, which must stay alive and unmodified while the File is in
// use. A File is safe for concurrent use.
type File struct {
	view   ByteView
	layout layout
	header Header
}

// Decode detects the width of buf and binds it. Failures are *DetectError
// values wrapping one of the detection kinds.
func Decode(buf []byte) (*File, error) {
	w, err := detect(buf)
	if err != nil {
		return nil, err
	}
	l := layoutFor(w)
	v := NewByteView(buf, byteOrderOf(buf))
	rec, err := v.Slice(0, uint64(l.headerSize()))
	if err != nil {
		return nil, &DetectError{Kind: ErrBufferTooSmall, Detail: err.Error()}
	}
	h := l.header(v, rec)
	if h.Shnum >= SectionCountReserve {
		return nil, &DetectError{
			Kind:   ErrUnsupportedExtendedCount,
			Detail: fmt.Sprintf("shnum %#x", h.Shnum),
		}
	}
	return &File{view: v, layout: l, header: h}, nil
}

// Width returns the bound width.
func (f *File) Width() Width {
	return f.layout.width()
}

// ByteOrder returns the order integers are decoded in.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.view.Order()
}

// Header returns the decoded file header.
func (f *File) Header() Header {
	return f.header
}

// Size returns the length of the underlying buffer.
func (f *File) Size() uint64 {
	return f.view.Len()
}

// HeaderSize is the native file header size for the bound width.
func (f *File) HeaderSize() int {
	return f.layout.headerSize()
}

// SectionEntrySize is the native section header record size.
func (f *File) SectionEntrySize() int {
	return f.layout.sectionSize()
}

// ProgramEntrySize is the native program header record size.
func (f *File) ProgramEntrySize() int {
	return f.layout.programSize()
}

// record returns the i-th entry of a table of count records at base.
func (f *File) record(what string, base uint64, i, count, size int) ([]byte, error) {
	if i < 0 || i >= count {
		return nil, fmt.Errorf("%s %d: %w (count %d)", what, i, ErrIndexOutOfRange, count)
	}
	rec, err := f.view.Record(base, i, size)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", what, i, err)
	}
	return rec, nil
}
