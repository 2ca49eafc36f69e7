// Package mapping maps image files read-only into memory.
package mapping

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	path string
	file *os.File
	data mmap.MMap
}

// Open maps path into memory. Empty files are not mapped and read as an
// empty buffer.
func Open(path string) (*Mapping, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	m := &Mapping{path: path, file: f}
	if info.Size() == 0 {
		return m, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	m.data = data
	return m, nil
}

// Path returns the mapped file's path.
func (m *Mapping) Path() string {
	return m.path
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	if m.data == nil {
		return []byte{}
	}
	return m.data
}

// Len returns the mapped length.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Close unmaps the file and closes it. Calling Close again is a no-op.
func (m *Mapping) Close() error {
	var result *multierror.Error
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to unmap %s: %w", m.path, err))
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s: %w", m.path, err))
		}
		m.file = nil
	}
	return result.ErrorOrNil()
}

// With maps path, calls fn with its contents and releases the mapping. fn
// must not keep the slice.
func With(path string, fn func([]byte) error) (err error) {
	m, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(m.Bytes())
}
