//go:build linux || darwin

package arena

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/flexheap/internal/format"
)

// File is a Provider backed by a shared, writable mapping of a file.
type File struct {
	f     *os.File
	data  []byte
	size  int64
	limit int64 // zero means format.MaxArenaSize
}

// Create creates (or truncates) the file at path and maps size bytes of it.
func Create(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	fb := &File{f: f}
	if size > 0 {
		if err := fb.Extend(size); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return fb, nil
}

// Open maps an existing file read-write.
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
		return nil, errors.Errorf("arena: file too large to map (%d bytes)", sz)
	}
	data, err := mapFile(f, sz)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "arena: mmap failed")
	}
	return &File{f: f, data: data, size: sz}, nil
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

// FD returns the descriptor of the backing file, or -1 once closed.
func (fb *File) FD() int {
	if fb.f == nil {
		return -1
	}
	return int(fb.f.Fd())
}

// Extend grows the file by delta bytes and remaps it. The new bytes are
// zero-initialised by the OS.
func (fb *File) Extend(delta int) error {
	if fb.f == nil {
		return ErrClosed
	}
	if delta <= 0 {
		return nil
	}
	newSize := fb.size + int64(delta)
	if newSize > fb.maxSize() {
		return errors.Wrapf(ErrLimit, "extend %d by %d (limit %d)", fb.size, delta, fb.maxSize())
	}
	return fb.remap(newSize)
}

// Shrink truncates delta bytes from the end of the file and remaps it.
func (fb *File) Shrink(delta int) error {
	if fb.f == nil {
		return ErrClosed
	}
	if delta <= 0 {
		return nil
	}
	if int64(delta) > fb.size {
		return errors.Wrapf(ErrShrink, "shrink %d by %d", fb.size, delta)
	}
	return fb.remap(fb.size - int64(delta))
}

// remap unmaps the block, resizes the file and maps it again. On failure the
// old size is mapped back so the provider stays usable.
func (fb *File) remap(newSize int64) error {
	if fb.data != nil {
		if err := unix.Munmap(fb.data); err != nil {
			return errors.Wrap(err, "arena: failed to unmap before resize")
		}
		fb.data = nil
	}

	if err := fb.f.Truncate(newSize); err != nil {
		fb.data, _ = mapFile(fb.f, fb.size)
		return errors.Wrap(err, "arena: failed to truncate file")
	}

	data, err := mapFile(fb.f, newSize)
	if err != nil {
		_ = fb.f.Truncate(fb.size)
		fb.data, _ = mapFile(fb.f, fb.size)
		return errors.Wrap(err, "arena: failed to remap after resize")
	}

	fb.data = data
	fb.size = newSize
	return nil
}

// Sync flushes the whole mapping and the file metadata.
func (fb *File) Sync() error {
	if fb.f == nil {
		return ErrClosed
	}
	if len(fb.data) > 0 {
		if err := unix.Msync(fb.data, unix.MS_SYNC); err != nil {
			return errors.Wrap(err, "arena: msync")
		}
	}
	return fb.f.Sync()
}

// Close unmaps and closes the file. Closing twice is a no-op.
func (fb *File) Close() error {
	var err error
	if fb.data != nil {
		_ = unix.Munmap(fb.data)
		fb.data = nil
	}
	if fb.f != nil {
		err = fb.f.Close()
		fb.f = nil
	}
	return err
}

func mapFile(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}
