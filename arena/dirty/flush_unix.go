//go:build linux || freebsd

package dirty

import (
	"golang.org/x/sys/unix"
)

// flushRanges msyncs each coalesced range, leaving out the descriptor page and
// clamping ranges to the current block.
func (t *Tracker) flushRanges(data []byte) error {
	for _, r := range t.coalesce() {
		start := max(int(r.Off), int(t.pageSize))
		end := min(int(r.Off+r.Len), len(data))
		if start >= end {
			continue
		}
		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
