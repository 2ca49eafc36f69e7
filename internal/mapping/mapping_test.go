package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestOpen(t *testing.T) {
	content := []byte{0x7f, 'E', 'L', 'F', 2, 1, 1}
	path := writeTemp(t, content)

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())
	assert.Equal(t, len(content), m.Len())
	assert.Equal(t, content, m.Bytes())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}

func TestOpen_EmptyFile(t *testing.T) {
	m, err := Open(writeTemp(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.NotNil(t, m.Bytes())
	assert.Empty(t, m.Bytes())
	assert.Equal(t, 0, m.Len())
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope")},
		{"directory", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Open(tt.path)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestWith(t *testing.T) {
	path := writeTemp(t, []byte("hello"))

	var seen []byte
	err := With(path, func(b []byte) error {
		seen = append([]byte(nil), b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), seen)

	boom := errors.New("boom")
	err = With(path, func([]byte) error { return boom })
	assert.ErrorIs(t, err, boom)

	called := false
	err = With(filepath.Join(t.TempDir(), "missing"), func([]byte) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
