//go:build !linux && !freebsd && !darwin

package dirty

// Blocks are not mapped on these platforms; arena.File writes them back itself.

func (t *Tracker) flushRanges(_ []byte) error { return nil }

func msync(_ []byte) error { return nil }

func fdatasync(_ int, _ bool) error { return nil }
