// Package heap provides malloc-style allocation inside a single
// relocatable arena.
//
// A Heap owns one block obtained from an arena.Provider. The block starts
// with the allocator descriptor (see heap/alloc) and holds every
// allocation made through the heap. When the embedded allocator cannot
// satisfy a request the heap asks the provider to extend the block by
// capacity + size + 4 + overhead bytes and retries exactly once; when a
// release leaves free space at the tail, the block is shrunk again.
//
// Because the block may move on every resize, allocations are addressed
// by Ptr, an offset into the block. Slices returned by Bytes and Base are
// only valid until the next call that can move the arena.
//
// # Failure model
//
// A provider that refuses to grow is recoverable: Alloc, Realloc and
// Strdup return ErrOutOfMemory and the heap is left as it was. An
// allocator that rejects a request after a successful extend, or rejects
// a release, means the bookkeeping has diverged. That is reported to the
// FatalSink, which must not return; if it does, the heap panics with a
// *FatalError.
//
// # Usage
//
//	h := heap.New(arena.NewMemory(0), heap.ExitSink{}, nil)
//	if err := h.Initialise(); err != nil {
//		return err
//	}
//	p, err := h.Strdup("hello")
//	if errors.Is(err, heap.ErrOutOfMemory) {
//		...
//	}
//	fmt.Println(h.String(p), h.SizeOf(p)) // hello 6
//	h.Free(p)
//
// File-backed heaps persist across runs:
//
//	f, _ := arena.Create(path, 0)
//	h := heap.New(f, nil, nil)
//	_ = h.Initialise()
//	...
//	_ = h.Close()
//
//	f, _ = arena.Open(path)
//	h, err := heap.Open(f, nil, nil)
package heap
