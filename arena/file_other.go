//go:build !linux && !darwin

package arena

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/joshuapare/flexheap/internal/format"
)

// File is a Provider backed by a file that is read into memory on open and
// written back on Sync and Close.
type File struct {
	f     *os.File
	data  []byte
	limit int64 // zero means format.MaxArenaSize
}

// Create creates (or truncates) the file at path with size zero bytes.
func Create(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	fb := &File{f: f}
	if err := fb.Extend(size); err != nil {
		_ = f.Close()
		return nil, err
	}
	return fb, nil
}

// Open loads an existing file.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		_ = f.Close()
		return nil, errors.Errorf("arena: empty file: %s", path)
	}
	if sz > format.MaxArenaSize {
		_ = f.Close()
		return nil, errors.Errorf("arena: file too large (%d bytes)", sz)
	}
	data := make([]byte, sz)
	if _, err := io.ReadFull(f, data); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "arena: read file")
	}
	return &File{f: f, data: data}, nil
}

// Bytes implements Provider.
func (fb *File) Bytes() []byte { return fb.data }

// SetLimit implements Limiter.
func (fb *File) SetLimit(limit int) {
	if limit <= 0 || limit > format.MaxArenaSize {
		limit = 0
	}
	fb.limit = int64(limit)
}

func (fb *File) maxSize() int64 {
	if fb.limit == 0 {
		return format.MaxArenaSize
	}
	return fb.limit
}

// Extend implements Provider.
func (fb *File) Extend(delta int) error {
	if fb.f == nil {
		return ErrClosed
	}
	if delta <= 0 {
		return nil
	}
	newSize := len(fb.data) + delta
	if int64(newSize) > fb.maxSize() || newSize < len(fb.data) {
		return errors.Wrapf(ErrLimit, "extend %d by %d (limit %d)", len(fb.data), delta, fb.maxSize())
	}
	if err := fb.f.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "arena: failed to extend file")
	}
	grown := make([]byte, newSize)
	copy(grown, fb.data)
	fb.data = grown
	return nil
}

// Shrink implements Provider.
func (fb *File) Shrink(delta int) error {
	if fb.f == nil {
		return ErrClosed
	}
	if delta <= 0 {
		return nil
	}
	if delta > len(fb.data) {
		return errors.Wrapf(ErrShrink, "shrink %d by %d", len(fb.data), delta)
	}
	newSize := len(fb.data) - delta
	if err := fb.f.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "arena: failed to truncate file")
	}
	shrunk := make([]byte, newSize)
	copy(shrunk, fb.data)
	fb.data = shrunk
	return nil
}

// Sync writes the block back to the file.
func (fb *File) Sync() error {
	if fb.f == nil {
		return ErrClosed
	}
	if _, err := fb.f.WriteAt(fb.data, 0); err != nil {
		return errors.Wrap(err, "arena: write back")
	}
	return fb.f.Sync()
}

// Close writes the block back and closes the file.
func (fb *File) Close() error {
	if fb.f == nil {
		return nil
	}
	err := fb.Sync()
	if cerr := fb.f.Close(); err == nil {
		err = cerr
	}
	fb.f = nil
	fb.data = nil
	return err
}
