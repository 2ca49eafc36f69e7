package report

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpolitzer/elf/internal/elfcore"
	"github.com/mpolitzer/elf/internal/elfcore/elftest"
)

func sampleImage(data elf.Data) elftest.Image {
	return elftest.Build(elftest.Object{
		Class:   elf.ELFCLASS64,
		Data:    data,
		Type:    elf.ET_EXEC,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: []byte{1, 2, 3, 4, 5}},
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 64},
		},
		Programs: []elftest.Program{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: []byte{0x01, 0x02, 0x03, 0x04, 0x05}},
			{Type: elf.ProgType(0x6474e551), Flags: elf.PF_R | elf.PF_W},
		},
	})
}

func decode(t *testing.T, b []byte) *elfcore.File {
	t.Helper()
	f, err := elfcore.Decode(b)
	require.NoError(t, err)
	return f
}

func TestBuild(t *testing.T) {
	img := sampleImage(elf.ELFDATA2LSB)
	d, err := Build("a.out", decode(t, img.Bytes), Options{Segments: true})
	require.NoError(t, err)

	assert.Equal(t, "a.out", d.Path)
	assert.Equal(t, uint64(len(img.Bytes)), d.Size)
	assert.Equal(t, "ELF64", d.Width)
	assert.Equal(t, "LittleEndian", d.ByteOrder)
	require.NotNil(t, d.NameTable)
	assert.Equal(t, int(img.Shstrndx), d.NameTable.Index)

	names := []string{}
	for _, s := range d.Sections {
		assert.Empty(t, s.NameError)
		names = append(names, s.ResolvedName)
	}
	assert.Equal(t, []string{"", ".text", ".bss", ".shstrtab"}, names)

	require.Len(t, d.Programs, 2)
	assert.Equal(t, "LOAD", d.Programs[0].KindName)
	assert.Equal(t, []uint16{0x0201, 0x0403}, d.Programs[0].Words)
	assert.Equal(t, "UNKNOWN", d.Programs[1].KindName)
	assert.Empty(t, d.Programs[1].Words)
}

func TestBuild_BigEndianWords(t *testing.T) {
	d, err := Build("be", decode(t, sampleImage(elf.ELFDATA2MSB).Bytes), Options{Segments: true})
	require.NoError(t, err)
	assert.Equal(t, "BigEndian", d.ByteOrder)
	assert.Equal(t, []uint16{0x0102, 0x0304}, d.Programs[0].Words)
}

func TestBuild_WithoutSegments(t *testing.T) {
	d, err := Build("a.out", decode(t, sampleImage(elf.ELFDATA2LSB).Bytes), Options{})
	require.NoError(t, err)
	for _, p := range d.Programs {
		assert.Nil(t, p.Words)
		assert.Empty(t, p.SegmentError)
	}
}

func TestBuild_NameErrorsAreRecorded(t *testing.T) {
	img := sampleImage(elf.ELFDATA2LSB)
	binary.LittleEndian.PutUint16(img.Bytes[62:], 0)

	d, err := Build("a.out", decode(t, img.Bytes), Options{})
	require.NoError(t, err)
	assert.Nil(t, d.NameTable)
	for _, s := range d.Sections {
		assert.Empty(t, s.ResolvedName)
		assert.Contains(t, s.NameError, "invalid string table index")
	}
}

func TestBuild_TruncatedSectionTable(t *testing.T) {
	img := sampleImage(elf.ELFDATA2LSB)
	_, err := Build("short", decode(t, img.Bytes[:len(img.Bytes)-8]), Options{})
	require.ErrorIs(t, err, elfcore.ErrTruncated)
}

func TestBuild_EmptyObject(t *testing.T) {
	d, err := Build("empty", decode(t, elftest.Header(elf.ELFCLASS32)), Options{Segments: true})
	require.NoError(t, err)
	assert.Equal(t, "ELF32", d.Width)
	assert.Empty(t, d.Sections)
	assert.Empty(t, d.Programs)
}

func TestWords(t *testing.T) {
	tests := []struct {
		name  string
		in    []byte
		order binary.ByteOrder
		want  []uint16
	}{
		{"empty", nil, binary.LittleEndian, []uint16{}},
		{"odd byte dropped", []byte{1}, binary.LittleEndian, []uint16{}},
		{"little endian", []byte{0x34, 0x12, 0x78, 0x56, 0xff}, binary.LittleEndian, []uint16{0x1234, 0x5678}},
		{"big endian", []byte{0x12, 0x34}, binary.BigEndian, []uint16{0x1234}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Words(tt.in, tt.order))
		})
	}
}

func TestWriteText(t *testing.T) {
	d, err := Build("a.out", decode(t, sampleImage(elf.ELFDATA2LSB).Bytes), Options{Segments: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, d, Options{WordsPerLine: 1}))
	out := buf.String()

	for _, want := range []string{
		"File a.out",
		"      class = ELF64",
		"       type = EXEC",
		"      entry = 0x0000000000401000",
		"Sections (4)",
		".shstrtab",
		"NOBITS",
		"Programs (2)",
		"UNKNOWN",
		"R-X",
		"Segment 0 (LOAD, 5 B)",
		"\t0x0201\n\t0x0403\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "colour must be off unless requested")
}

func TestWriteText_DefaultWordsPerLine(t *testing.T) {
	var buf bytes.Buffer
	writeWords(&buf, []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8}, DefaultWordsPerLine)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0x0000, 0x0001, 0x0002, 0x0003, 0x0004, 0x0005, 0x0006, 0x0007", strings.TrimSpace(lines[0]))
	assert.Equal(t, "0x0008", strings.TrimSpace(lines[1]))
}

func TestWriteJSON(t *testing.T) {
	d, err := Build("a.out", decode(t, sampleImage(elf.ELFDATA2LSB).Bytes), Options{Segments: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, d))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ELF64", got["width"])

	sections := got["sections"].([]interface{})
	require.Len(t, sections, 4)
	text := sections[1].(map[string]interface{})
	assert.Equal(t, ".text", text["resolved_name"])
	assert.Equal(t, float64(1), text["type"])

	programs := got["programs"].([]interface{})
	load := programs[0].(map[string]interface{})
	assert.Equal(t, "LOAD", load["kind"])
	assert.Len(t, load["words"], 2)
}

func TestFlagStrings(t *testing.T) {
	assert.Equal(t, "WAX", SectionFlagString(0x7))
	assert.Equal(t, "A", SectionFlagString(0x2))
	assert.Equal(t, "", SectionFlagString(0))
	assert.Equal(t, "RWX", ProgramFlagString(0x7))
	assert.Equal(t, "R--", ProgramFlagString(0x4))
	assert.Equal(t, "SYMTAB", SectionTypeName(2))
	assert.Equal(t, "0x6ffffff6", SectionTypeName(0x6ffffff6))
	assert.Equal(t, "DYN", FileTypeName(3))
	assert.Equal(t, "0xfe00", FileTypeName(0xfe00))
}
