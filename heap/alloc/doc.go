// Package alloc implements the embedded allocator that manages the cell
// area of a flexheap arena.
//
// # Layout
//
// The arena starts with a 32-byte descriptor (see internal/format). Cells
// follow it back to back up to the high-water mark (hwm); the bytes from
// hwm to the extent have never been handed out. Every cell starts with a
// signed int32 size: negative when allocated, positive when free.
//
//	0x00              0x20                          hwm         extent
//	| descriptor       | cell | cell | free | cell   | virgin     |
//
// # Allocation
//
// Free cells are kept in min-heaps per size class (see SizeClassConfig),
// with a linked list for cells at or above MediumMax. Reserve takes the
// best fit from the free lists, splitting off any remainder of at least
// 8 bytes, and falls back to carving from the virgin tail. When neither
// works it returns ErrNoSpace and leaves the arena untouched; the caller
// is expected to grow the block, call ResizeDescriptor and retry.
//
// Release merges the cell with free neighbours. A free cell that would end
// at hwm lowers hwm instead, so TrimTrailingFree can hand the tail back.
//
// # Offsets only
//
// The allocator never keeps pointers into the block. Backing.Bytes is
// re-read on every call, which is what lets the arena move on every
// resize.
//
// # Usage
//
//	fa := alloc.NewFast(mgr, nil)
//	if err := fa.Init(mgr.Capacity(), mgr.Capacity()); err != nil {
//		return err
//	}
//	ref, err := fa.Reserve(100)
//	if errors.Is(err, alloc.ErrNoSpace) {
//		// grow, fa.ResizeDescriptor(newCapacity), retry once
//	}
package alloc
