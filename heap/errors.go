package heap

import "errors"

var (
	// ErrOutOfMemory indicates the provider refused to grow the arena. The
	// heap is unchanged and remains usable.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrBadSize indicates a negative size.
	ErrBadSize = errors.New("heap: negative size")
)
