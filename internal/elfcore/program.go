package elfcore

import "fmt"

// ProgramKind classifies a program header type.
type ProgramKind int

const (
	ProgramNull ProgramKind = iota
	ProgramLoad
	ProgramDynamic
	ProgramInterp
	ProgramNote
	ProgramShlib
	ProgramPhdr
	ProgramUnknown
)

var programKindNames = [...]string{
	ProgramNull:    "NULL",
	ProgramLoad:    "LOAD",
	ProgramDynamic: "DYNAMIC",
	ProgramInterp:  "INTERP",
	ProgramNote:    "NOTE",
	ProgramShlib:   "SHLIB",
	ProgramPhdr:    "PHDR",
	ProgramUnknown: "UNKNOWN",
}

func (k ProgramKind) String() string {
	if k < 0 || int(k) >= len(programKindNames) {
		return programKindNames[ProgramUnknown]
	}
	return programKindNames[k]
}

// ClassifyProgram maps a raw p_type to its kind. Codes outside 0-6 are
// ProgramUnknown, never ProgramNull.
func ClassifyProgram(t uint32) ProgramKind {
	if t <= uint32(ProgramPhdr) {
		return ProgramKind(t)
	}
	return ProgramUnknown
}

// ProgramHeader is one decoded program header record. Flags holds p_flags
// regardless of where the width stores it.
type ProgramHeader struct {
	Index    int    `json:"index"`
	Position uint64 `json:"position"`
	Type     uint32 `json:"type"`
	Flags    uint32 `json:"flags"`
	Offset   uint64 `json:"offset"`
	Vaddr    uint64 `json:"vaddr"`
	Paddr    uint64 `json:"paddr"`
	Filesz   uint64 `json:"filesz"`
	Memsz    uint64 `json:"memsz"`
	Align    uint64 `json:"align"`

	raw []byte
}

// Kind classifies the header's type.
func (p ProgramHeader) Kind() ProgramKind {
	return ClassifyProgram(p.Type)
}

// Raw returns the record bytes exactly as they appear in the image.
func (p ProgramHeader) Raw() []byte {
	return p.raw
}

// ProgramsStart is the file offset of the program header table.
func (f *File) ProgramsStart() uint64 {
	return f.header.Phoff
}

// ProgramCount returns phnum.
func (f *File) ProgramCount() int {
	return int(f.header.Phnum)
}

// Program returns the i-th program header.
func (f *File) Program(i int) (ProgramHeader, error) {
	size := f.layout.programSize()
	rec, err := f.record("program", f.ProgramsStart(), i, f.ProgramCount(), size)
	if err != nil {
		return ProgramHeader{}, err
	}
	p := f.layout.program(f.view, rec)
	p.Index = i
	p.Position = f.ProgramsStart() + uint64(i)*uint64(size)
	return p, nil
}

// Programs returns every program header in table order.
func (f *File) Programs() ([]ProgramHeader, error) {
	out := make([]ProgramHeader, 0, f.ProgramCount())
	for i := 0; i < f.ProgramCount(); i++ {
		p, err := f.Program(i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SegmentData returns the filesz bytes of a segment's file image. The part
// of memsz beyond filesz has no bytes in the file and is never read.
func (f *File) SegmentData(p ProgramHeader) ([]byte, error) {
	b, err := f.view.Slice(p.Offset, p.Filesz)
	if err != nil {
		return nil, fmt.Errorf("program %d segment: %w", p.Index, err)
	}
	return b, nil
}
