package checks

import (
	"fmt"

	"github.com/mpolitzer/elf/internal/elfcore"
)

// Program header flag bits.
const (
	flagExec  uint32 = 0x1
	flagWrite uint32 = 0x2
)

// ProgramTypeOSBase is PT_LOOS. Types from here up are OS or processor
// specific and never reported as problems.
const ProgramTypeOSBase uint32 = 0x60000000

// SegmentExtentsCheck verifies segment file images lie inside the image.
type SegmentExtentsCheck struct{}

func (c *SegmentExtentsCheck) ID() string {
	return "segment-extents"
}

func (c *SegmentExtentsCheck) Description() string {
	return "Segment file images lie within the image and LOAD memsz covers filesz"
}

func (c *SegmentExtentsCheck) Run(t *Target) Result {
	f := t.File
	programs, err := f.Programs()
	if err != nil {
		return errored(err)
	}

	var fs findings
	for _, p := range programs {
		if _, err := f.SegmentData(p); err != nil {
			fs.failf("%v (offset %#x, filesz %#x, image %#x)", err, p.Offset, p.Filesz, f.Size())
		}
		if p.Kind() == elfcore.ProgramLoad && p.Memsz < p.Filesz {
			fs.failf("program %d: LOAD memsz %#x is smaller than filesz %#x", p.Index, p.Memsz, p.Filesz)
		}
	}
	return fs.result(fmt.Sprintf("%d segment(s) within bounds", len(programs)))
}

// ProgramKindsCheck reports program types outside the defined and
// OS/processor-specific ranges, and misplaced PHDR and INTERP entries.
type ProgramKindsCheck struct{}

func (c *ProgramKindsCheck) ID() string {
	return "program-kinds"
}

func (c *ProgramKindsCheck) Description() string {
	return "Program header types are defined and PHDR/INTERP are well placed"
}

func (c *ProgramKindsCheck) Run(t *Target) Result {
	programs, err := t.File.Programs()
	if err != nil {
		return errored(err)
	}

	var fs findings
	counts := make(map[string]int)
	specific := 0
	seenLoad := false
	for _, p := range programs {
		kind := p.Kind()
		counts[kind.String()]++
		switch kind {
		case elfcore.ProgramUnknown:
			if p.Type >= ProgramTypeOSBase {
				specific++
				continue
			}
			fs.warnf("program %d: type %#x is reserved", p.Index, p.Type)
		case elfcore.ProgramLoad:
			seenLoad = true
		case elfcore.ProgramPhdr:
			if seenLoad {
				fs.failf("program %d: PHDR follows a LOAD segment", p.Index)
			}
		}
	}
	if counts["PHDR"] > 1 {
		fs.failf("%d PHDR entries, at most one allowed", counts["PHDR"])
	}
	if counts["INTERP"] > 1 {
		fs.failf("%d INTERP entries, at most one allowed", counts["INTERP"])
	}

	r := fs.result(fmt.Sprintf("%d program header(s) classified", len(programs)))
	r.Metadata = map[string]interface{}{"kinds": counts, "os_specific": specific}
	return r
}

// EntryPointCheck verifies an executable's entry point falls inside an
// executable LOAD segment.
type EntryPointCheck struct{}

func (c *EntryPointCheck) ID() string {
	return "entry-point"
}

func (c *EntryPointCheck) Description() string {
	return "Executable entry point lies in an executable LOAD segment"
}

func (c *EntryPointCheck) Run(t *Target) Result {
	f := t.File
	h := f.Header()
	if !h.IsExecutable() {
		return Result{Status: StatusPass, Message: "not an executable image"}
	}
	programs, err := f.Programs()
	if err != nil {
		return errored(err)
	}

	var fs findings
	var loads []elfcore.ProgramHeader
	for _, p := range programs {
		if p.Kind() == elfcore.ProgramLoad {
			loads = append(loads, p)
		}
	}
	if len(loads) == 0 {
		fs.warnf("executable has no LOAD segments")
		return fs.result("")
	}

	var hit *elfcore.ProgramHeader
	for i := range loads {
		p := &loads[i]
		if h.Entry >= p.Vaddr && h.Entry-p.Vaddr < p.Memsz {
			hit = p
			break
		}
	}
	switch {
	case hit == nil:
		fs.failf("entry %#x is outside every LOAD segment", h.Entry)
	case hit.Flags&flagExec == 0:
		fs.failf("entry %#x lies in non-executable program %d", h.Entry, hit.Index)
	}

	r := fs.result(fmt.Sprintf("entry %#x is executable", h.Entry))
	r.Metadata = map[string]interface{}{"entry": h.Entry}
	return r
}

// WritableExecutableCheck warns about LOAD segments mapped both writable
// and executable.
type WritableExecutableCheck struct{}

func (c *WritableExecutableCheck) ID() string {
	return "wx-segments"
}

func (c *WritableExecutableCheck) Description() string {
	return "No LOAD segment is both writable and executable"
}

func (c *WritableExecutableCheck) Run(t *Target) Result {
	programs, err := t.File.Programs()
	if err != nil {
		return errored(err)
	}

	var fs findings
	for _, p := range programs {
		if p.Kind() == elfcore.ProgramLoad && p.Flags&(flagWrite|flagExec) == flagWrite|flagExec {
			fs.warnf("program %d at %#x is writable and executable", p.Index, p.Vaddr)
		}
	}
	return fs.result("no writable and executable segments")
}
