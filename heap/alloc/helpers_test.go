package alloc

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flexheap/internal/format"
)

// testBlock is a Backing that moves on every resize, like the real arena.
type testBlock struct {
	data []byte
}

func newTestBlock(size int) *testBlock {
	return &testBlock{data: make([]byte, size)}
}

func (b *testBlock) Bytes() []byte { return b.data }

func (b *testBlock) grow(n int) {
	nb := make([]byte, len(b.data)+n)
	copy(nb, b.data)
	b.data = nb
}

// shrinkTo cuts the block down to n bytes, moving it.
func (b *testBlock) shrinkTo(n int) {
	nb := make([]byte, n)
	copy(nb, b.data[:n])
	b.data = nb
}

// newTestAllocator returns an initialised allocator whose extent and floor
// are both size.
func newTestAllocator(t testing.TB, size int) (*FastAllocator, *testBlock) {
	t.Helper()
	blk := newTestBlock(size)
	fa := NewFast(blk, nil)
	require.NoError(t, fa.Init(size, size))
	return fa, blk
}

// DirtyCall records a single Add call.
type DirtyCall struct {
	Off    int
	Length int
}

// MockDirtyTracker records every Add call.
type MockDirtyTracker struct {
	calls []DirtyCall
}

func newMockDirtyTracker() *MockDirtyTracker {
	return &MockDirtyTracker{}
}

func (m *MockDirtyTracker) Add(off, length int) {
	m.calls = append(m.calls, DirtyCall{Off: off, Length: length})
}

// WasCalledAt reports whether some call covered off.
func (m *MockDirtyTracker) WasCalledAt(off int) bool {
	for _, c := range m.calls {
		if off >= c.Off && off < c.Off+c.Length {
			return true
		}
	}
	return false
}

func (m *MockDirtyTracker) CallCount() int { return len(m.calls) }

func (m *MockDirtyTracker) Reset() { m.calls = nil }

// cellHeader returns the raw signed header at off.
func cellHeader(blk *testBlock, off Ref) int32 {
	return format.ReadI32(blk.Bytes(), int(off))
}

// assertInvariants runs Verify and checks that no two allocated cells overlap.
func assertInvariants(t testing.TB, fa *FastAllocator, live map[Ref]int32) {
	t.Helper()
	require.NoError(t, fa.Verify())

	type span struct{ start, end int32 }
	spans := make([]span, 0, len(live))
	for ref := range live {
		size := -cellHeader(fa.b.(*testBlock), ref)
		require.Positive(t, size, "cell 0x%X must be allocated", ref)
		spans = append(spans, span{int32(ref), int32(ref) + size})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		require.LessOrEqual(t, spans[i-1].end, spans[i].start, "cells overlap")
	}
}
