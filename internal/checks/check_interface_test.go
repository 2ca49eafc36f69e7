package checks

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpolitzer/elf/internal/elfcore"
	"github.com/mpolitzer/elf/internal/elfcore/elftest"
	"github.com/mpolitzer/elf/internal/utils"
)

// goodObject describes a small executable every built-in check accepts.
func goodObject() elftest.Object {
	return elftest.Object{
		Class:   elf.ELFCLASS64,
		Type:    elf.ET_EXEC,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: make([]byte, 16)},
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402000, Size: 32},
		},
		Programs: []elftest.Program{
			{Type: elf.PT_PHDR, Flags: elf.PF_R, Vaddr: 0x400040},
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: make([]byte, 16), Align: 0x1000},
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_W, Vaddr: 0x402000, Data: make([]byte, 8), Memsz: 32, Align: 0x1000},
		},
	}
}

func target(t *testing.T, b []byte) *Target {
	t.Helper()
	f, err := elfcore.Decode(b)
	require.NoError(t, err)
	return &Target{Path: "test.elf", File: f}
}

type stubCheck struct {
	id     string
	status Status
	runs   int
}

func (c *stubCheck) ID() string          { return c.id }
func (c *stubCheck) Description() string { return "stub " + c.id }
func (c *stubCheck) Run(*Target) Result {
	c.runs++
	return Result{Status: c.status, Message: "stubbed"}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubCheck{id: "b"}))
	require.NoError(t, r.Register(&stubCheck{id: "a"}))
	assert.Error(t, r.Register(&stubCheck{id: "a"}))

	ids := []string{}
	for _, c := range r.List() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	_, ok := r.Get("b")
	assert.True(t, ok)
	_, ok = r.Get("c")
	assert.False(t, ok)
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Len(t, r.List(), len(DefaultChecks()))
	for _, id := range []string{
		"header", "section-table", "program-table", "string-table", "section-extents",
		"segment-extents", "program-kinds", "entry-point", "wx-segments",
	} {
		_, ok := r.Get(id)
		assert.True(t, ok, id)
	}
}

func TestRunner_RunAll(t *testing.T) {
	pass := &stubCheck{id: "pass", status: StatusPass}
	warn := &stubCheck{id: "warn", status: StatusWarn}
	fail := &stubCheck{id: "fail", status: StatusFail}
	skipped := &stubCheck{id: "skipped", status: StatusFail}

	r := NewRegistry()
	for _, c := range []Check{pass, warn, fail, skipped} {
		require.NoError(t, r.Register(c))
	}

	var logs bytes.Buffer
	logger := utils.NewLogger(utils.LoggerConfig{Level: utils.LogLevelDebug, Format: utils.LogFormatJSON, Output: &logs})
	runner := NewRunner(r, logger)
	require.NoError(t, runner.Skip("skipped", " "))

	report, err := runner.RunAll(target(t, elftest.Build(goodObject()).Bytes))
	require.NoError(t, err)

	assert.Equal(t, "test.elf", report.Path)
	assert.Equal(t, Summary{Total: 4, Passed: 1, Warned: 1, Failed: 1, Skipped: 1}, report.Summary)
	assert.Equal(t, 0, skipped.runs)
	assert.Equal(t, 1, pass.runs)
	assert.False(t, report.OK(false))

	for _, res := range report.Results {
		assert.Equal(t, "stub "+res.ID, res.Description)
	}
	assert.Contains(t, logs.String(), `"component":"checks"`)
	assert.Contains(t, logs.String(), "Skipping check")
}

func TestRunner_SkipUnknown(t *testing.T) {
	runner := NewRunner(NewDefaultRegistry(), nil)
	err := runner.Skip("header", "nope", "also-nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
	assert.Contains(t, err.Error(), `"also-nope"`)
}

func TestRunner_RunSelected(t *testing.T) {
	a := &stubCheck{id: "a", status: StatusPass}
	b := &stubCheck{id: "b", status: StatusPass}
	r := NewRegistry()
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	runner := NewRunner(r, nil)
	tg := target(t, elftest.Build(goodObject()).Bytes)

	report, err := runner.RunSelected(tg, []string{"b"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "b", report.Results[0].ID)
	assert.Equal(t, 0, a.runs)

	_, err = runner.RunSelected(tg, []string{"b", "missing"})
	assert.Error(t, err)
	assert.Equal(t, 1, b.runs)

	_, err = runner.RunAll(&Target{Path: "x"})
	assert.Error(t, err)
}

func TestReport_OK(t *testing.T) {
	tests := []struct {
		name       string
		summary    Summary
		failOnWarn bool
		want       bool
	}{
		{"all passed", Summary{Total: 2, Passed: 2}, false, true},
		{"warning tolerated", Summary{Total: 2, Passed: 1, Warned: 1}, false, true},
		{"warning fails when strict", Summary{Total: 2, Passed: 1, Warned: 1}, true, false},
		{"failure", Summary{Total: 1, Failed: 1}, false, false},
		{"error", Summary{Total: 1, Errors: 1}, false, false},
		{"skips do not fail", Summary{Total: 1, Skipped: 1}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Summary: tt.summary}
			assert.Equal(t, tt.want, r.OK(tt.failOnWarn))
		})
	}
}

func TestFindings(t *testing.T) {
	var fs findings
	assert.Equal(t, StatusPass, fs.result("fine").Status)

	fs.warnf("w%d", 1)
	r := fs.result("fine")
	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, []string{"w1"}, r.Findings)

	fs.failf("f%d", 1)
	r = fs.result("fine")
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, []string{"f1", "w1"}, r.Findings)
	assert.Equal(t, "1 problem(s) found", r.Message)
}

func TestNewRunner_NilLoggerIsQuiet(t *testing.T) {
	runner := NewRunner(NewRegistry(), nil)
	require.NotNil(t, runner.logger)
	assert.Equal(t, logrus.ErrorLevel, runner.logger.GetLevel())
}
