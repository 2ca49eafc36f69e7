package checks

import (
	"fmt"

	"github.com/mpolitzer/elf/internal/elfcore"
)

// DefaultChecks returns a fresh instance of every built-in check.
func DefaultChecks() []Check {
	return []Check{
		&HeaderCheck{},
		&SectionTableCheck{},
		&ProgramTableCheck{},
		&StringTableCheck{},
		&SectionExtentsCheck{},
		&SegmentExtentsCheck{},
		&ProgramKindsCheck{},
		&EntryPointCheck{},
		&WritableExecutableCheck{},
	}
}

// HeaderCheck validates the file header fields that describe the header
// itself.
type HeaderCheck struct{}

func (c *HeaderCheck) ID() string {
	return "header"
}

func (c *HeaderCheck) Description() string {
	return "File header size and version match the declared class"
}

func (c *HeaderCheck) Run(t *Target) Result {
	f := t.File
	h := f.Header()
	var fs findings

	if int(h.Ehsize) != f.HeaderSize() {
		fs.failf("ehsize is %d, %v headers are %d bytes", h.Ehsize, f.Width(), f.HeaderSize())
	}
	if h.Version != 1 {
		fs.failf("e_version is %d, want 1", h.Version)
	}
	if h.Ident.Version != 1 {
		fs.warnf("ident version is %d, want 1", h.Ident.Version)
	}
	if h.Ident.Data != 1 && h.Ident.Data != 2 {
		fs.warnf("data encoding %d is not defined, read as little-endian", h.Ident.Data)
	}
	if h.Type > elfcore.TypeCore && h.Type < 0xfe00 {
		fs.warnf("e_type %#x is not a defined file type", h.Type)
	}

	r := fs.result(fmt.Sprintf("%v header is consistent", f.Width()))
	r.Metadata = map[string]interface{}{
		"width":   f.Width().String(),
		"type":    h.Type,
		"machine": h.Machine,
	}
	return r
}

// SectionTableCheck verifies every section header record lies inside the
// image.
type SectionTableCheck struct{}

func (c *SectionTableCheck) ID() string {
	return "section-table"
}

func (c *SectionTableCheck) Description() string {
	return "Every section header record lies within the image"
}

func (c *SectionTableCheck) Run(t *Target) Result {
	f := t.File
	var fs findings

	n := f.SectionCount()
	if n > 0 && f.SectionsStart() == 0 {
		fs.failf("%d sections declared but shoff is 0", n)
	}
	for i := 0; i < n; i++ {
		s, err := f.Section(i)
		if err != nil {
			fs.failf("%v", err)
			break
		}
		if i == 0 && s.Type != elfcore.SectionNull {
			fs.warnf("section 0 has type %d, want NULL", s.Type)
		}
	}

	r := fs.result(fmt.Sprintf("%d section header(s) readable", n))
	r.Metadata = map[string]interface{}{"count": n, "offset": f.SectionsStart()}
	return r
}

// ProgramTableCheck verifies every program header record lies inside the
// image.
type ProgramTableCheck struct{}

func (c *ProgramTableCheck) ID() string {
	return "program-table"
}

func (c *ProgramTableCheck) Description() string {
	return "Every program header record lies within the image"
}

func (c *ProgramTableCheck) Run(t *Target) Result {
	f := t.File
	var fs findings

	n := f.ProgramCount()
	if n > 0 && f.ProgramsStart() == 0 {
		fs.failf("%d program headers declared but phoff is 0", n)
	}
	for i := 0; i < n; i++ {
		if _, err := f.Program(i); err != nil {
			fs.failf("%v", err)
			break
		}
	}

	r := fs.result(fmt.Sprintf("%d program header(s) readable", n))
	r.Metadata = map[string]interface{}{"count": n, "offset": f.ProgramsStart()}
	return r
}

// StringTableCheck verifies the section-name string table and every
// section name resolve.
type StringTableCheck struct{}

func (c *StringTableCheck) ID() string {
	return "string-table"
}

func (c *StringTableCheck) Description() string {
	return "Section-name string table is present and every name resolves"
}

func (c *StringTableCheck) Run(t *Target) Result {
	f := t.File
	if f.SectionCount() == 0 {
		return Result{Status: StatusPass, Message: "no sections"}
	}

	st, err := f.StringTable()
	if err != nil {
		var fs findings
		fs.failf("%v", err)
		return fs.result("")
	}
	sections, err := f.Sections()
	if err != nil {
		return errored(err)
	}

	var fs findings
	if st.Section.Type != elfcore.SectionStrtab {
		fs.warnf("shstrndx %d names a section of type %d, want STRTAB", st.Section.Index, st.Section.Type)
	}
	for _, s := range sections {
		if _, err := st.Lookup(s.Name); err != nil {
			fs.failf("section %d: %v", s.Index, err)
		}
	}

	r := fs.result(fmt.Sprintf("%d section name(s) resolved", len(sections)))
	r.Metadata = map[string]interface{}{"index": st.Section.Index, "size": st.Size()}
	return r
}

// SectionExtentsCheck verifies section contents lie inside the image.
type SectionExtentsCheck struct{}

func (c *SectionExtentsCheck) ID() string {
	return "section-extents"
}

func (c *SectionExtentsCheck) Description() string {
	return "Contents of every section with file data lie within the image"
}

func (c *SectionExtentsCheck) Run(t *Target) Result {
	f := t.File
	sections, err := f.Sections()
	if err != nil {
		return errored(err)
	}

	var fs findings
	checked := 0
	for _, s := range sections {
		if s.Type == elfcore.SectionNull || s.Type == elfcore.SectionNobits {
			continue
		}
		checked++
		if _, err := f.SectionData(s); err != nil {
			fs.failf("%v (offset %#x, size %#x, image %#x)", err, s.Offset, s.Size, f.Size())
		}
	}
	return fs.result(fmt.Sprintf("%d section(s) within bounds", checked))
}
