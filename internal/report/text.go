package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mpolitzer/elf/internal/elfcore"
)

var fileTypeNames = map[uint16]string{
	elfcore.TypeNone: "NONE",
	elfcore.TypeRel:  "REL",
	elfcore.TypeExec: "EXEC",
	elfcore.TypeDyn:  "DYN",
	elfcore.TypeCore: "CORE",
}

var sectionTypeNames = map[uint32]string{
	0:  "NULL",
	1:  "PROGBITS",
	2:  "SYMTAB",
	3:  "STRTAB",
	4:  "RELA",
	5:  "HASH",
	6:  "DYNAMIC",
	7:  "NOTE",
	8:  "NOBITS",
	9:  "REL",
	10: "SHLIB",
	11: "DYNSYM",
	14: "INIT_ARRAY",
	15: "FINI_ARRAY",
	16: "PREINIT_ARRAY",
	17: "GROUP",
	18: "SYMTAB_SHNDX",
}

// FileTypeName returns the symbolic e_type, or its hex value.
func FileTypeName(t uint16) string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("%#x", t)
}

// SectionTypeName returns the symbolic sh_type, or its hex value.
func SectionTypeName(t uint32) string {
	if name, ok := sectionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("%#x", t)
}

// SectionFlagString renders the write, alloc and exec bits as "WAX".
func SectionFlagString(flags uint64) string {
	var b strings.Builder
	for _, f := range []struct {
		bit uint64
		c   byte
	}{{0x1, 'W'}, {0x2, 'A'}, {0x4, 'X'}} {
		if flags&f.bit != 0 {
			b.WriteByte(f.c)
		}
	}
	return b.String()
}

// ProgramFlagString renders p_flags as "RWX" with '-' for clear bits.
func ProgramFlagString(flags uint32) string {
	out := []byte("---")
	if flags&0x4 != 0 {
		out[0] = 'R'
	}
	if flags&0x2 != 0 {
		out[1] = 'W'
	}
	if flags&0x1 != 0 {
		out[2] = 'X'
	}
	return string(out)
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func size(v uint64) string {
	if v == 0 {
		return "0"
	}
	return fmt.Sprintf("%s (%s)", hex(v), humanize.IBytes(v))
}

// WriteText renders d for a terminal: the file header as name = value
// lines, then the section and program tables, then segment words when
// they were collected.
func WriteText(w io.Writer, d *Dump, opts Options) error {
	title := color.New(color.FgCyan, color.Bold)
	if opts.Color {
		title.EnableColor()
	} else {
		title.DisableColor()
	}
	perLine := opts.WordsPerLine
	if perLine <= 0 {
		perLine = DefaultWordsPerLine
	}

	var buf bytes.Buffer
	writeHeader(&buf, d, title)

	title.Fprintf(&buf, "\nSections (%d)\n", len(d.Sections))
	if len(d.Sections) > 0 {
		writeSections(&buf, d.Sections)
	}

	title.Fprintf(&buf, "\nPrograms (%d)\n", len(d.Programs))
	if len(d.Programs) > 0 {
		writePrograms(&buf, d.Programs)
	}

	for _, p := range d.Programs {
		if p.Words == nil && p.SegmentError == "" {
			continue
		}
		title.Fprintf(&buf, "\nSegment %d (%s, %s)\n", p.Index, p.KindName, humanize.IBytes(p.Filesz))
		if p.SegmentError != "" {
			fmt.Fprintf(&buf, "\t<%s>\n", p.SegmentError)
			continue
		}
		writeWords(&buf, p.Words, perLine)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeHeader(buf *bytes.Buffer, d *Dump, title *color.Color) {
	h := d.Header
	title.Fprintf(buf, "File %s\n", d.Path)
	line := func(name string, value string) {
		fmt.Fprintf(buf, "%11s = %s\n", name, value)
	}
	line("size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(d.Size), d.Size))
	line("class", d.Width)
	line("data", d.ByteOrder)
	line("version", strconv.Itoa(int(h.Ident.Version)))
	line("osabi", strconv.Itoa(int(h.Ident.OSABI)))
	line("abiversion", strconv.Itoa(int(h.Ident.ABIVersion)))
	line("type", FileTypeName(h.Type))
	line("machine", fmt.Sprintf("0x%04x", h.Machine))
	line("entry", fmt.Sprintf("0x%016x", h.Entry))
	line("phoff", fmt.Sprintf("0x%016x", h.Phoff))
	line("shoff", fmt.Sprintf("0x%016x", h.Shoff))
	line("flags", fmt.Sprintf("0x%08x", h.Flags))
	line("ehsize", strconv.Itoa(int(h.Ehsize)))
	line("phentsize", strconv.Itoa(int(h.Phentsize)))
	line("phnum", strconv.Itoa(int(h.Phnum)))
	line("shentsize", strconv.Itoa(int(h.Shentsize)))
	line("shnum", strconv.Itoa(int(h.Shnum)))
	line("shstrndx", strconv.Itoa(int(h.Shstrndx)))
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeSections(w io.Writer, rows []SectionRow) {
	table := newTable(w, []string{
		"Idx", "Pos", "Name", "Type", "Flags", "Addr", "Offset", "Size", "Link", "Info", "Align", "EntSize",
	})
	for _, s := range rows {
		name := s.ResolvedName
		if s.NameError != "" {
			name = "<" + s.NameError + ">"
		}
		table.Append([]string{
			strconv.Itoa(s.Index),
			hex(s.Position),
			name,
			SectionTypeName(s.Type),
			SectionFlagString(s.Flags),
			hex(s.Addr),
			hex(s.Offset),
			size(s.Size),
			strconv.FormatUint(uint64(s.Link), 10),
			strconv.FormatUint(uint64(s.Info), 10),
			strconv.FormatUint(s.Addralign, 10),
			strconv.FormatUint(s.Entsize, 10),
		})
	}
	table.Render()
}

func writePrograms(w io.Writer, rows []ProgramRow) {
	table := newTable(w, []string{
		"Idx", "Pos", "Kind", "Type", "Flags", "Offset", "Vaddr", "Paddr", "FileSz", "MemSz", "Align",
	})
	for _, p := range rows {
		table.Append([]string{
			strconv.Itoa(p.Index),
			hex(p.Position),
			p.KindName,
			fmt.Sprintf("0x%08x", p.Type),
			ProgramFlagString(p.Flags),
			hex(p.Offset),
			hex(p.Vaddr),
			hex(p.Paddr),
			size(p.Filesz),
			size(p.Memsz),
			hex(p.Align),
		})
	}
	table.Render()
}

func writeWords(w io.Writer, words []uint16, perLine int) {
	for i := 0; i < len(words); i += perLine {
		end := i + perLine
		if end > len(words) {
			end = len(words)
		}
		parts := make([]string, 0, end-i)
		for _, word := range words[i:end] {
			parts = append(parts, fmt.Sprintf("0x%04x", word))
		}
		fmt.Fprintf(w, "\t%s\n", strings.Join(parts, ", "))
	}
}

// WriteJSON writes d as indented JSON.
func WriteJSON(w io.Writer, d *Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	return nil
}
