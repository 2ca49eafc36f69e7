package elfcore

import (
	"errors"
	"fmt"
)

// Section types the decoder itself cares about.
const (
	SectionNull   uint32 = 0
	SectionStrtab uint32 = 3
	SectionNobits uint32 = 8
)

// SectionHeader is one decoded section header record.
type SectionHeader struct {
	Index     int    `json:"index"`
	Position  uint64 `json:"position"`
	Name      uint32 `json:"name"`
	Type      uint32 `json:"type"`
	Flags     uint64 `json:"flags"`
	Addr      uint64 `json:"addr"`
	Offset    uint64 `json:"offset"`
	Size      uint64 `json:"size"`
	Link      uint32 `json:"link"`
	Info      uint32 `json:"info"`
	Addralign uint64 `json:"addralign"`
	Entsize   uint64 `json:"entsize"`

	raw []byte
}

// Raw returns the record bytes exactly as they appear in the image.
func (s SectionHeader) Raw() []byte {
	return s.raw
}

// SectionsStart is the file offset of the section header table.
func (f *File) SectionsStart() uint64 {
	return f.header.Shoff
}

// SectionCount returns shnum. Decode has already rejected the extended
// count encoding.
func (f *File) SectionCount() int {
	return int(f.header.Shnum)
}

// Section returns the i-th section header.
func (f *File) Section(i int) (SectionHeader, error) {
	size := f.layout.sectionSize()
	rec, err := f.record("section", f.SectionsStart(), i, f.SectionCount(), size)
	if err != nil {
		return SectionHeader{}, err
	}
	s := f.layout.section(f.view, rec)
	s.Index = i
	s.Position = f.SectionsStart() + uint64(i)*uint64(size)
	return s, nil
}

// Sections returns every section header in table order.
func (f *File) Sections() ([]SectionHeader, error) {
	out := make([]SectionHeader, 0, f.SectionCount())
	for i := 0; i < f.SectionCount(); i++ {
		s, err := f.Section(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SectionData returns the bytes a section occupies in the file. NOBITS
// sections occupy none.
func (f *File) SectionData(s SectionHeader) ([]byte, error) {
	if s.Type == SectionNobits {
		return []byte{}, nil
	}
	b, err := f.view.Slice(s.Offset, s.Size)
	if err != nil {
		return nil, fmt.Errorf("section %d data: %w", s.Index, err)
	}
	return b, nil
}

// SectionByName returns the first section whose resolved name is name.
// Sections whose names cannot be resolved are skipped.
func (f *File) SectionByName(name string) (SectionHeader, bool, error) {
	st, err := f.StringTable()
	if err != nil {
		return SectionHeader{}, false, err
	}
	for i := 0; i < f.SectionCount(); i++ {
		s, err := f.Section(i)
		if err != nil {
			return SectionHeader{}, false, err
		}
		got, err := st.Lookup(s.Name)
		if errors.Is(err, ErrStringOffsetOutOfRange) {
			continue
		}
		if got == name {
			return s, true, nil
		}
	}
	return SectionHeader{}, false, nil
}
