//go:build !unix

// Package mmfile maps heap files read-only for inspection.
package mmfile

import "os"

// Mapping is a read-only view of a file. Without mmap the file is read
// into memory.
type Mapping struct {
	data []byte
}

// Map reads the file at path.
func Map(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the file contents.
func (m *Mapping) Bytes() []byte { return m.data }

// Close releases the contents.
func (m *Mapping) Close() error {
	m.data = nil
	return nil
}
