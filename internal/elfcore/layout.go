package elfcore

// layout is the width-specific half of the decoder. The two implementations
// are stateless; Decode picks one per buffer and nothing above it branches on
// width again.
type layout interface {
	width() Width
	headerSize() int
	sectionSize() int
	programSize() int

	// entrySizes reads shentsize and phentsize from a buffer that holds at
	// least headerSize bytes.
	entrySizes(v ByteView) (shentsize, phentsize uint16)

	header(v ByteView, rec []byte) Header
	section(v ByteView, rec []byte) SectionHeader
	program(v ByteView, rec []byte) ProgramHeader
}

type elf32 struct{}

func (elf32) width() Width     { return Width32 }
func (elf32) headerSize() int  { return 52 }
func (elf32) sectionSize() int { return 40 }
func (elf32) programSize() int { return 32 }

func (elf32) entrySizes(v ByteView) (uint16, uint16) {
	return v.order.Uint16(v.data[46:]), v.order.Uint16(v.data[42:])
}

func (elf32) header(v ByteView, rec []byte) Header {
	h := Header{Ident: identOf(rec)}
	c := v.cursor(rec)
	c.skip(16)
	h.Type = c.u16()
	h.Machine = c.u16()
	h.Version = c.u32()
	h.Entry = uint64(c.u32())
	h.Phoff = uint64(c.u32())
	h.Shoff = uint64(c.u32())
	h.Flags = c.u32()
	h.Ehsize = c.u16()
	h.Phentsize = c.u16()
	h.Phnum = c.u16()
	h.Shentsize = c.u16()
	h.Shnum = c.u16()
	h.Shstrndx = c.u16()
	return h
}

func (elf32) section(v ByteView, rec []byte) SectionHeader {
	c := v.cursor(rec)
	return SectionHeader{
		Name:      c.u32(),
		Type:      c.u32(),
		Flags:     uint64(c.u32()),
		Addr:      uint64(c.u32()),
		Offset:    uint64(c.u32()),
		Size:      uint64(c.u32()),
		Link:      c.u32(),
		Info:      c.u32(),
		Addralign: uint64(c.u32()),
		Entsize:   uint64(c.u32()),
		raw:       rec,
	}
}

// ELF32 program headers keep flags after memsz.
func (elf32) program(v ByteView, rec []byte) ProgramHeader {
	c := v.cursor(rec)
	p := ProgramHeader{raw: rec}
	p.Type = c.u32()
	p.Offset = uint64(c.u32())
	p.Vaddr = uint64(c.u32())
	p.Paddr = uint64(c.u32())
	p.Filesz = uint64(c.u32())
	p.Memsz = uint64(c.u32())
	p.Flags = c.u32()
	p.Align = uint64(c.u32())
	return p
}

type elf64 struct{}

func (elf64) width() Width     { return Width64 }
func (elf64) headerSize() int  { return 64 }
func (elf64) sectionSize() int { return 64 }
func (elf64) programSize() int { return 56 }

func (elf64) entrySizes(v ByteView) (uint16, uint16) {
	return v.order.Uint16(v.data[58:]), v.order.Uint16(v.data[54:])
}

func (elf64) header(v ByteView, rec []byte) Header {
	h := Header{Ident: identOf(rec)}
	c := v.cursor(rec)
	c.skip(16)
	h.Type = c.u16()
	h.Machine = c.u16()
	h.Version = c.u32()
	h.Entry = c.u64()
	h.Phoff = c.u64()
	h.Shoff = c.u64()
	h.Flags = c.u32()
	h.Ehsize = c.u16()
	h.Phentsize = c.u16()
	h.Phnum = c.u16()
	h.Shentsize = c.u16()
	h.Shnum = c.u16()
	h.Shstrndx = c.u16()
	return h
}

func (elf64) section(v ByteView, rec []byte) SectionHeader {
	c := v.cursor(rec)
	return SectionHeader{
		Name:      c.u32(),
		Type:      c.u32(),
		Flags:     c.u64(),
		Addr:      c.u64(),
		Offset:    c.u64(),
		Size:      c.u64(),
		Link:      c.u32(),
		Info:      c.u32(),
		Addralign: c.u64(),
		Entsize:   c.u64(),
		raw:       rec,
	}
}

func (elf64) program(v ByteView, rec []byte) ProgramHeader {
	c := v.cursor(rec)
	p := ProgramHeader{raw: rec}
	p.Type = c.u32()
	p.Flags = c.u32()
	p.Offset = c.u64()
	p.Vaddr = c.u64()
	p.Paddr = c.u64()
	p.Filesz = c.u64()
	p.Memsz = c.u64()
	p.Align = c.u64()
	return p
}

func identOf(rec []byte) Ident {
	return Ident{
		Class:      rec[identClass],
		Data:       rec[identData],
		Version:    rec[identVersion],
		OSABI:      rec[identOSABI],
		ABIVersion: rec[identABIVersion],
	}
}
