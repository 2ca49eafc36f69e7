package elfcore

import (
	"bytes"
	"fmt"
)

// StringTable is the content of a string table section.
type StringTable struct {
	Section SectionHeader
	data    []byte
}

// Size is the declared size of the table.
func (t StringTable) Size() int {
	return len(t.data)
}

// Lookup returns the NUL-terminated string at off. The string must start
// and end inside the table.
func (t StringTable) Lookup(off uint32) (string, error) {
	if uint64(off) >= uint64(len(t.data)) {
		return "", fmt.Errorf("%w: offset %d, table size %d", ErrStringOffsetOutOfRange, off, len(t.data))
	}
	rest := t.data[off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", fmt.Errorf("%w: string at %d is not terminated inside the table", ErrStringOffsetOutOfRange, off)
	}
	return string(rest[:n]), nil
}

// StringTable locates the section-name string table named by shstrndx.
func (f *File) StringTable() (StringTable, error) {
	idx := int(f.header.Shstrndx)
	if idx == 0 || idx >= f.SectionCount() {
		return StringTable{}, fmt.Errorf("%w: shstrndx %d with %d sections", ErrInvalidStringTableIndex, idx, f.SectionCount())
	}
	s, err := f.Section(idx)
	if err != nil {
		return StringTable{}, fmt.Errorf("string table: %w", err)
	}
	data, err := f.view.Slice(s.Offset, s.Size)
	if err != nil {
		return StringTable{}, fmt.Errorf("string table: %w", err)
	}
	return StringTable{Section: s, data: data}, nil
}

// ResolveString resolves off against the section-name string table.
func (f *File) ResolveString(off uint32) (string, error) {
	st, err := f.StringTable()
	if err != nil {
		return "", err
	}
	return st.Lookup(off)
}

// SectionName resolves the name of s.
func (f *File) SectionName(s SectionHeader) (string, error) {
	name, err := f.ResolveString(s.Name)
	if err != nil {
		return "", fmt.Errorf("section %d name: %w", s.Index, err)
	}
	return name, nil
}
