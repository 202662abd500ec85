package heap

import (
	"errors"
	"testing"

	s "github.com/bnclabs/gosettings"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flexheap/arena"
	"github.com/joshuapare/flexheap/heap/alloc"
)

type fatalCall struct {
	code int
	msg  string
}

// recordingSink records reports and returns, so the heap panics with
// *FatalError afterwards.
type recordingSink struct {
	calls []fatalCall
}

func (r *recordingSink) ReportFatal(code int, msg string) {
	r.calls = append(r.calls, fatalCall{code: code, msg: msg})
}

// newTestHeap returns an initialised in-memory heap. A limit of zero means
// unlimited growth.
func newTestHeap(t testing.TB, limit int, setts s.Settings) (*Heap, *arena.Memory, *recordingSink) {
	t.Helper()
	mem := arena.NewMemory(limit)
	sink := &recordingSink{}
	h := New(mem, sink, setts)
	require.NoError(t, h.Initialise())
	return h, mem, sink
}

// catchFatal runs fn and returns the *FatalError it panicked with, if any.
func catchFatal(fn func()) (fe *FatalError) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if fe, ok = r.(*FatalError); !ok {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

// fill writes a recognisable pattern into p.
func fill(h *Heap, p Ptr, seed byte) {
	b := h.Bytes(p)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// holds reports whether the first n bytes of p carry the pattern from fill.
func holds(h *Heap, p Ptr, n int, seed byte) bool {
	b := h.Bytes(p)
	if len(b) < n {
		return false
	}
	for i := range n {
		if b[i] != seed+byte(i) {
			return false
		}
	}
	return true
}

// rejectingAllocator wraps the real allocator and starts refusing
// reservations once the descriptor has been resized, which a consistent
// allocator never does.
type rejectingAllocator struct {
	allocator
	resized bool
}

func (r *rejectingAllocator) ResizeDescriptor(extent int) error {
	if err := r.allocator.ResizeDescriptor(extent); err != nil {
		return err
	}
	r.resized = true
	return nil
}

func (r *rejectingAllocator) Reserve(total int32) (alloc.Ref, error) {
	if r.resized {
		return 0, alloc.ErrNoSpace
	}
	return r.allocator.Reserve(total)
}

func (r *rejectingAllocator) Realloc(ref alloc.Ref, total int32) (alloc.Ref, error) {
	if r.resized {
		return 0, alloc.ErrNoSpace
	}
	return r.allocator.Realloc(ref, total)
}

// brokenInit fails to install its descriptor.
type brokenInit struct {
	allocator
}

func (brokenInit) Init(_, _ int) error {
	return errors.New("descriptor rejected")
}

// rigidMemory is an in-memory provider that refuses every shrink.
type rigidMemory struct {
	*arena.Memory
}

func (rigidMemory) Shrink(int) error {
	return arena.ErrShrink
}
