// Package arena owns the single relocatable block that backs a heap.
//
// # Overview
//
// A Provider holds one contiguous block of bytes and can extend or shrink it
// by a delta. Either operation may move the block, so callers must re-derive
// the base from Bytes() after every provider call and never keep a slice
// across one.
//
// Two providers are included:
//
//   - Memory: a Go byte slice that is reallocated and copied on every resize.
//     An optional limit makes it refuse growth, which is how tests simulate a
//     platform that is out of memory.
//   - File: an mmap'd file on Linux and macOS. Resizing unmaps, truncates and
//     remaps the file, so the base address changes just like it would for a
//     relocatable platform block. Other platforms read the file into memory and
//     write it back on Sync.
//
// # Manager
//
// Manager wraps a Provider and tracks the current capacity. Its Extend and
// Shrink report success as a bool because the heap's policy only cares whether
// the arena moved, not why it could not.
//
//	m := arena.NewManager(arena.NewMemory(0))
//	if err := m.Initialise(format.Granularity); err != nil {
//	    return err
//	}
//	if !m.Extend(4096) {
//	    // out of memory, recoverable
//	}
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use.
package arena
