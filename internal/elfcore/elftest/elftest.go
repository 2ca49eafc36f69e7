// Package elftest builds small synthetic ELF images for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Section describes a section to lay out. Data is placed in the file unless
// the type is SHT_NOBITS, in which case Size is used as-is.
type Section struct {
	Name      string
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint64
	Data      []byte
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

// Program describes a segment. Data becomes the file image; Memsz defaults
// to len(Data).
type Program struct {
	Type  elf.ProgType
	Flags elf.ProgFlag
	Vaddr uint64
	Paddr uint64
	Data  []byte
	Memsz uint64
	Align uint64
}

// Object describes a whole image.
type Object struct {
	Class   elf.Class
	Data    elf.Data
	Type    elf.Type
	Machine elf.Machine
	Entry   uint64
	Flags   uint32

	// Sections are preceded by the null section and followed by a generated
	// .shstrtab when non-empty.
	Sections []Section
	Programs []Program
}

// Image is the result of Build, with the positions tests need to check
// decoded values against.
type Image struct {
	Bytes       []byte
	Phoff       uint64
	Shoff       uint64
	Shstrndx    uint16
	NameOffsets []uint32 // per built section, including null and .shstrtab
	DataOffsets []uint64 // per built section
	SegOffsets  []uint64 // per program
}

// Order returns the binary.ByteOrder for the object's data encoding.
func (s Object) Order() binary.ByteOrder {
	if s.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (s Object) is64() bool {
	return s.Class != elf.ELFCLASS32
}

// Sizes returns the header, section and program record sizes for class.
func Sizes(class elf.Class) (ehsize, shentsize, phentsize int) {
	if class == elf.ELFCLASS32 {
		return 52, 40, 32
	}
	return 64, 64, 56
}

// Build lays the image out as header, program headers, segment data,
// section data, then the section header table.
func Build(s Object) Image {
	if s.Class == elf.ELFCLASSNONE {
		s.Class = elf.ELFCLASS64
	}
	if s.Data == elf.ELFDATANONE {
		s.Data = elf.ELFDATA2LSB
	}
	ehsize, shentsize, phentsize := Sizes(s.Class)
	order := s.Order()

	var sections []Section
	var img Image
	if len(s.Sections) > 0 {
		sections = append(sections, Section{})
		sections = append(sections, s.Sections...)
		sections = append(sections, Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, Addralign: 1})

		var names bytes.Buffer
		names.WriteByte(0)
		img.NameOffsets = make([]uint32, len(sections))
		for i, sec := range sections {
			if sec.Name == "" {
				continue
			}
			img.NameOffsets[i] = uint32(names.Len())
			names.WriteString(sec.Name)
			names.WriteByte(0)
		}
		sections[len(sections)-1].Data = names.Bytes()
		img.Shstrndx = uint16(len(sections) - 1)
	}

	off := uint64(ehsize)
	if len(s.Programs) > 0 {
		img.Phoff = off
		off += uint64(len(s.Programs) * phentsize)
	}
	img.SegOffsets = make([]uint64, len(s.Programs))
	for i, p := range s.Programs {
		img.SegOffsets[i] = off
		off += uint64(len(p.Data))
	}
	img.DataOffsets = make([]uint64, len(sections))
	for i, sec := range sections {
		if i == 0 {
			continue
		}
		img.DataOffsets[i] = off
		if sec.Type != elf.SHT_NOBITS {
			off += uint64(len(sec.Data))
		}
	}
	if len(sections) > 0 {
		off = (off + 7) &^ 7
		img.Shoff = off
		off += uint64(len(sections) * shentsize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, off))
	h := header{
		ident:    ident(s.Class, s.Data),
		typ:      uint16(s.Type),
		machine:  uint16(s.Machine),
		entry:    s.Entry,
		phoff:    img.Phoff,
		shoff:    img.Shoff,
		flags:    s.Flags,
		ehsize:   uint16(ehsize),
		shnum:    uint16(len(sections)),
		phnum:    uint16(len(s.Programs)),
		shstrndx: img.Shstrndx,
	}
	if len(sections) > 0 {
		h.shentsize = uint16(shentsize)
	}
	if len(s.Programs) > 0 {
		h.phentsize = uint16(phentsize)
	}
	h.write(buf, s.is64(), order)

	for i, p := range s.Programs {
		memsz := p.Memsz
		if memsz == 0 {
			memsz = uint64(len(p.Data))
		}
		writeProg(buf, s.is64(), order, p, img.SegOffsets[i], memsz)
	}
	for _, p := range s.Programs {
		buf.Write(p.Data)
	}
	for i, sec := range sections {
		if i == 0 || sec.Type == elf.SHT_NOBITS {
			continue
		}
		buf.Write(sec.Data)
	}
	if len(sections) > 0 {
		buf.Write(make([]byte, img.Shoff-uint64(buf.Len())))
		for i, sec := range sections {
			size := uint64(len(sec.Data))
			if sec.Type == elf.SHT_NOBITS {
				size = sec.Size
			}
			offset := img.DataOffsets[i]
			if i == 0 {
				offset = 0
			}
			writeSection(buf, s.is64(), order, sec, img.NameOffsets[i], offset, size)
		}
	}
	img.Bytes = buf.Bytes()
	return img
}

// Header returns a bare file header of the given class with valid magic and
// every other field zero.
func Header(class elf.Class) []byte {
	ehsize, _, _ := Sizes(class)
	b := make([]byte, ehsize)
	copy(b, []byte{0x7f, 'E', 'L', 'F', byte(class)})
	return b
}

func ident(class elf.Class, data elf.Data) [elf.EI_NIDENT]byte {
	var id [elf.EI_NIDENT]byte
	copy(id[:], elf.ELFMAG)
	id[elf.EI_CLASS] = byte(class)
	id[elf.EI_DATA] = byte(data)
	id[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	return id
}

type header struct {
	ident                      [elf.EI_NIDENT]byte
	typ, machine               uint16
	entry, phoff, shoff        uint64
	flags                      uint32
	ehsize, phentsize, phnum   uint16
	shentsize, shnum, shstrndx uint16
}

func (h header) write(buf *bytes.Buffer, is64 bool, order binary.ByteOrder) {
	if is64 {
		_ = binary.Write(buf, order, elf.Header64{
			Ident: h.ident, Type: h.typ, Machine: h.machine, Version: uint32(elf.EV_CURRENT),
			Entry: h.entry, Phoff: h.phoff, Shoff: h.shoff, Flags: h.flags,
			Ehsize: h.ehsize, Phentsize: h.phentsize, Phnum: h.phnum,
			Shentsize: h.shentsize, Shnum: h.shnum, Shstrndx: h.shstrndx,
		})
		return
	}
	_ = binary.Write(buf, order, elf.Header32{
		Ident: h.ident, Type: h.typ, Machine: h.machine, Version: uint32(elf.EV_CURRENT),
		Entry: uint32(h.entry), Phoff: uint32(h.phoff), Shoff: uint32(h.shoff), Flags: h.flags,
		Ehsize: h.ehsize, Phentsize: h.phentsize, Phnum: h.phnum,
		Shentsize: h.shentsize, Shnum: h.shnum, Shstrndx: h.shstrndx,
	})
}

func writeProg(buf *bytes.Buffer, is64 bool, order binary.ByteOrder, p Program, off, memsz uint64) {
	if is64 {
		_ = binary.Write(buf, order, elf.Prog64{
			Type: uint32(p.Type), Flags: uint32(p.Flags), Off: off,
			Vaddr: p.Vaddr, Paddr: p.Paddr, Filesz: uint64(len(p.Data)), Memsz: memsz, Align: p.Align,
		})
		return
	}
	_ = binary.Write(buf, order, elf.Prog32{
		Type: uint32(p.Type), Off: uint32(off), Vaddr: uint32(p.Vaddr), Paddr: uint32(p.Paddr),
		Filesz: uint32(len(p.Data)), Memsz: uint32(memsz), Flags: uint32(p.Flags), Align: uint32(p.Align),
	})
}

func writeSection(buf *bytes.Buffer, is64 bool, order binary.ByteOrder, s Section, name uint32, off, size uint64) {
	if is64 {
		_ = binary.Write(buf, order, elf.Section64{
			Name: name, Type: uint32(s.Type), Flags: uint64(s.Flags), Addr: s.Addr,
			Off: off, Size: size, Link: s.Link, Info: s.Info, Addralign: s.Addralign, Entsize: s.Entsize,
		})
		return
	}
	_ = binary.Write(buf, order, elf.Section32{
		Name: name, Type: uint32(s.Type), Flags: uint32(s.Flags), Addr: uint32(s.Addr),
		Off: uint32(off), Size: uint32(size), Link: s.Link, Info: s.Info,
		Addralign: uint32(s.Addralign), Entsize: uint32(s.Entsize),
	})
}
