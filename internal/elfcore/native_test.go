package elfcore_test

import (
	"debug/elf"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpolitzer/elf/internal/elfcore"
)

// TestDecode_RunningExecutable decodes the test binary itself and compares
// every table against debug/elf.
func TestDecode_RunningExecutable(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "freebsd" {
		t.Skipf("test binary is not ELF on %s", runtime.GOOS)
	}
	path, err := os.Executable()
	require.NoError(t, err)
	buf, err := os.ReadFile(path)
	require.NoError(t, err)

	oracle, err := elf.Open(path)
	require.NoError(t, err)
	defer oracle.Close()

	f, err := elfcore.Decode(buf)
	require.NoError(t, err)

	switch oracle.Class {
	case elf.ELFCLASS64:
		assert.Equal(t, elfcore.Width64, f.Width())
	case elf.ELFCLASS32:
		assert.Equal(t, elfcore.Width32, f.Width())
	}
	assert.Equal(t, oracle.ByteOrder, f.ByteOrder())
	assert.Equal(t, oracle.Entry, f.Header().Entry)

	require.Equal(t, len(oracle.Sections), f.SectionCount())
	for i, want := range oracle.Sections {
		s, err := f.Section(i)
		require.NoError(t, err)
		name, err := f.SectionName(s)
		require.NoError(t, err)
		assert.Equal(t, want.Name, name)
		assert.Equal(t, want.Offset, s.Offset, want.Name)
		assert.Equal(t, want.Addr, s.Addr, want.Name)
		assert.Equal(t, want.FileSize, s.Size, want.Name)
	}

	require.Equal(t, len(oracle.Progs), f.ProgramCount())
	for i, want := range oracle.Progs {
		p, err := f.Program(i)
		require.NoError(t, err)
		assert.Equal(t, uint32(want.Type), p.Type)
		assert.Equal(t, uint32(want.Flags), p.Flags)
		assert.Equal(t, want.Vaddr, p.Vaddr)
		assert.Equal(t, want.Filesz, p.Filesz)

		data, err := f.SegmentData(p)
		require.NoError(t, err)
		assert.Len(t, data, int(want.Filesz))
	}

	text, ok, err := f.SectionByName(".text")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := f.SectionData(text)
	require.NoError(t, err)
	want, err := oracle.Section(".text").Data()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
