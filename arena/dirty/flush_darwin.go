//go:build darwin

package dirty

import (
	"golang.org/x/sys/unix"
)

// flushRanges syncs the whole mapping: msync on macOS needs the address that
// mmap returned, and the kernel only writes pages that are actually dirty.
func (t *Tracker) flushRanges(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync uses F_FULLFSYNC when asked; macOS has no fdatasync.
func fdatasync(fd int, fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(fd)
}
