package alloc

import "errors"

var (
	// ErrNoSpace indicates that neither a free cell nor the virgin tail can hold the request.
	ErrNoSpace = errors.New("alloc: no free cell large enough")

	// ErrBadRef indicates an out-of-bounds cell reference.
	ErrBadRef = errors.New("alloc: bad cell reference")

	// ErrNotAllocated indicates a release or realloc of a cell that is already free.
	ErrNotAllocated = errors.New("alloc: cell not allocated")

	// ErrNeedSmall indicates a non-positive request.
	ErrNeedSmall = errors.New("alloc: request must be positive")

	// ErrBadDescriptor indicates an extent the block cannot hold, or a descriptor
	// that does not describe the cells behind it.
	ErrBadDescriptor = errors.New("alloc: bad descriptor")

	// ErrShrinkLive indicates an attempt to move the extent below the high-water mark.
	ErrShrinkLive = errors.New("alloc: extent below high-water mark")
)
