// Package report turns a decoded image into a printable dump.
package report

import (
	"encoding/binary"
	"fmt"

	"github.com/mpolitzer/elf/internal/elfcore"
)

// DefaultWordsPerLine matches the classic segment dump layout.
const DefaultWordsPerLine = 8

// Options control what Build collects and how the writers render it.
type Options struct {
	Segments     bool
	WordsPerLine int
	Color        bool
}

// Dump is everything the decoder exposes about one image.
type Dump struct {
	Path      string          `json:"path"`
	Size      uint64          `json:"size"`
	Width     string          `json:"width"`
	ByteOrder string          `json:"byte_order"`
	Header    elfcore.Header  `json:"header"`
	Sections  []SectionRow    `json:"sections"`
	Programs  []ProgramRow    `json:"programs"`
	NameTable *NameTableEntry `json:"name_table,omitempty"`
}

// NameTableEntry locates the section-name string table.
type NameTableEntry struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// SectionRow is a section header with its resolved name. NameError is set
// instead of ResolvedName when the name cannot be resolved.
type SectionRow struct {
	elfcore.SectionHeader
	ResolvedName string `json:"resolved_name"`
	NameError    string `json:"name_error,omitempty"`
}

// ProgramRow is a program header with its kind and, optionally, the
// segment's file image as 16-bit words.
type ProgramRow struct {
	elfcore.ProgramHeader
	KindName     string   `json:"kind"`
	Words        []uint16 `json:"words,omitempty"`
	SegmentError string   `json:"segment_error,omitempty"`
}

// Build collects the dump for f. Unreadable tables fail the build; names
// and segment contents that cannot be read are recorded on their rows.
func Build(path string, f *elfcore.File, opts Options) (*Dump, error) {
	d := &Dump{
		Path:      path,
		Size:      f.Size(),
		Width:     f.Width().String(),
		ByteOrder: f.ByteOrder().String(),
		Header:    f.Header(),
		Sections:  make([]SectionRow, 0, f.SectionCount()),
		Programs:  make([]ProgramRow, 0, f.ProgramCount()),
	}

	st, stErr := f.StringTable()
	if stErr == nil {
		d.NameTable = &NameTableEntry{Index: st.Section.Index, Size: st.Size()}
	}

	sections, err := f.Sections()
	if err != nil {
		return nil, fmt.Errorf("failed to read section table: %w", err)
	}
	for _, s := range sections {
		row := SectionRow{SectionHeader: s}
		if name, err := lookupName(st, stErr, s); err != nil {
			row.NameError = err.Error()
		} else {
			row.ResolvedName = name
		}
		d.Sections = append(d.Sections, row)
	}

	programs, err := f.Programs()
	if err != nil {
		return nil, fmt.Errorf("failed to read program table: %w", err)
	}
	for _, p := range programs {
		row := ProgramRow{ProgramHeader: p, KindName: p.Kind().String()}
		if opts.Segments {
			data, err := f.SegmentData(p)
			if err != nil {
				row.SegmentError = err.Error()
			} else {
				row.Words = Words(data, f.ByteOrder())
			}
		}
		d.Programs = append(d.Programs, row)
	}
	return d, nil
}

func lookupName(st elfcore.StringTable, stErr error, s elfcore.SectionHeader) (string, error) {
	if stErr != nil {
		return "", stErr
	}
	return st.Lookup(s.Name)
}

// Words splits b into 16-bit words in the given order. A trailing odd byte
// is dropped.
func Words(b []byte, order binary.ByteOrder) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = order.Uint16(b[2*i:])
	}
	return words
}
