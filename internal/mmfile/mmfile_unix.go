//go:build unix

// Package mmfile maps heap files read-only for inspection.
package mmfile

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/flexheap/internal/format"
)

// Mapping is a read-only view of a file.
type Mapping struct {
	data   []byte
	mapped bool
}

// Map maps the file at path read-only.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // the mapping keeps the pages alive

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if size > format.MaxArenaSize {
		return nil, errors.Errorf("mmfile: %s too large to map (%d bytes)", path, size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmfile: mmap %s", path)
	}
	return &Mapping{data: data, mapped: true}, nil
}

// Bytes returns the mapped contents. Writing to them faults.
func (m *Mapping) Bytes() []byte { return m.data }

// Close unmaps the file. Calling it twice is a no-op.
func (m *Mapping) Close() error {
	if !m.mapped {
		return nil
	}
	m.mapped = false
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}
