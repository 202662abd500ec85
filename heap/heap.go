package heap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	s "github.com/bnclabs/gosettings"
	humanize "github.com/dustin/go-humanize"

	"github.com/joshuapare/flexheap/arena"
	"github.com/joshuapare/flexheap/arena/dirty"
	"github.com/joshuapare/flexheap/heap/alloc"
	"github.com/joshuapare/flexheap/internal/format"
)

// Ptr is the arena offset of a payload. Offsets survive arena moves; the
// address of the payload does not.
type Ptr uint32

// Nil is the null Ptr. No payload ever lives at offset zero.
const Nil Ptr = 0

// maxSize keeps size + header + overhead arithmetic inside int32.
const maxSize = format.MaxArenaSize - format.DescriptorSize - format.PayloadOffset - format.CellAlignment

// allocator is the part of alloc.FastAllocator the heap drives.
type allocator interface {
	alloc.Allocator
	Attach() error
	Extent() int
	Verify() error
	Stats() alloc.Stats
	Usage() alloc.Usage
}

// Heap is a malloc-style allocator inside a single relocatable arena.
//
// Allocations are addressed by Ptr. Every Ptr stays valid until it is
// freed or reallocated, but any []byte obtained from Base, Bytes or
// the provider is invalidated by the next Alloc, Free, Realloc or Strdup
// because the arena may move.
//
// A Heap is not safe for concurrent use.
type Heap struct {
	mgr  *arena.Manager
	fa   allocator
	sink FatalSink
	dt   *dirty.Tracker // nil unless the provider is a mapped file

	granularity int
	overhead    int
	sizeclass   *alloc.SizeClassConfig
	setts       s.Settings

	stats Stats
}

// New returns a heap over p. Settings missing from setts are taken from
// Defaultsettings. A positive "limit" caps growth of providers that
// implement arena.Limiter. A nil sink selects ExitSink. Call Initialise before use,
// or use Open for a provider that already holds a heap.
func New(p arena.Provider, sink FatalSink, setts s.Settings) *Heap {
	if sink == nil {
		sink = ExitSink{}
	}
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	h := &Heap{mgr: arena.NewManager(p), sink: sink}
	h.readsettings(setts)

	if limit := setts.Int64("limit"); limit > 0 {
		if l, ok := p.(arena.Limiter); ok {
			l.SetLimit(int(limit))
		}
	}

	fa := alloc.NewFast(h.mgr, h.sizeclass)
	if m, ok := p.(dirty.Mapped); ok {
		h.dt = dirty.NewTracker(m)
		fa.SetDirtyTracker(h.dt)
	}
	h.fa = fa
	return h
}

// NewMemory returns an initialised heap over an in-memory arena.
func NewMemory(sink FatalSink, setts s.Settings) (*Heap, error) {
	h := New(arena.NewMemory(0), sink, setts)
	if err := h.Initialise(); err != nil {
		return nil, err
	}
	return h, nil
}

// Open returns a heap over a provider that already holds one, such as a
// file created by an earlier heap and reopened with arena.Open.
func Open(p arena.Provider, sink FatalSink, setts s.Settings) (*Heap, error) {
	h := New(p, sink, setts)
	h.mgr.Attach()
	if err := h.fa.Attach(); err != nil {
		return nil, fmt.Errorf("heap: open: %w", err)
	}
	infof("heap: opened %s\n", h.fa.Usage())
	return h, nil
}

// Initialise claims the initial block from the provider and installs a
// fresh descriptor over it. A provider failure is returned. A descriptor
// that cannot be installed over a committed block is fatal.
func (h *Heap) Initialise() error {
	if err := h.mgr.Initialise(h.granularity); err != nil {
		return fmt.Errorf("heap: initialise: %w", err)
	}
	capacity := h.mgr.Capacity()
	if err := h.fa.Init(capacity, h.granularity); err != nil {
		h.fatal(FatalInitialise, "install descriptor over %d bytes: %v", capacity, err)
	}
	debugf("heap: initialised %s config=%s\n", humanize.IBytes(uint64(capacity)), h.sizeclass.Name)
	return nil
}

// Alloc returns a block of size bytes. It returns ErrOutOfMemory if the
// arena had to grow and the provider refused.
func (h *Heap) Alloc(size int) (Ptr, error) {
	if size < 0 {
		return Nil, ErrBadSize
	}
	if size > maxSize {
		return Nil, ErrOutOfMemory
	}
	h.stats.Allocs++

	total := int32(size + format.SizeHeaderSize)
	ref, err := h.fa.Reserve(total)
	if err != nil {
		if !errors.Is(err, alloc.ErrNoSpace) {
			h.fatal(FatalInconsistent, "reserve %d: %v", total, err)
		}
		if !h.grow(int(total)) {
			return Nil, ErrOutOfMemory
		}
		if ref, err = h.fa.Reserve(total); err != nil {
			h.fatal(FatalInconsistent, "reserve %d after growing to %d: %v", total, h.mgr.Capacity(), err)
		}
	}
	return h.stamp(ref, size), nil
}

// Free releases p. Freeing Nil does nothing. Freeing anything not returned
// by this heap, or freeing twice, is fatal.
func (h *Heap) Free(p Ptr) {
	if p == Nil {
		return
	}
	h.stats.Frees++
	if err := h.fa.Release(recordOf(p)); err != nil {
		h.fatal(FatalInconsistent, "release 0x%X: %v", uint32(p), err)
	}
	h.trim()
}

// Realloc changes the size of p to size bytes, moving it if needed. The
// first min(old, new) bytes are preserved. On ErrOutOfMemory p is
// untouched. Realloc of Nil is Alloc.
func (h *Heap) Realloc(p Ptr, size int) (Ptr, error) {
	if p == Nil {
		return h.Alloc(size)
	}
	if size < 0 {
		return Nil, ErrBadSize
	}
	if size > maxSize {
		return Nil, ErrOutOfMemory
	}
	h.stats.Reallocs++

	old := h.SizeOf(p)
	total := int32(size + format.SizeHeaderSize)
	ref, err := h.fa.Realloc(recordOf(p), total)
	if err != nil {
		if !errors.Is(err, alloc.ErrNoSpace) {
			h.fatal(FatalInconsistent, "realloc 0x%X to %d: %v", uint32(p), total, err)
		}
		if !h.grow(int(total)) {
			return Nil, ErrOutOfMemory
		}
		if ref, err = h.fa.Realloc(recordOf(p), total); err != nil {
			h.fatal(FatalInconsistent, "realloc 0x%X to %d after growing to %d: %v",
				uint32(p), total, h.mgr.Capacity(), err)
		}
	}
	np := h.stamp(ref, size)
	if size < old {
		h.trim()
	}
	return np, nil
}

// SizeOf returns the size most recently requested for p. The result is
// undefined for anything not returned by this heap.
func (h *Heap) SizeOf(p Ptr) int {
	return int(format.ReadU32(h.mgr.Bytes(), int(p)-format.SizeHeaderSize))
}

// Strdup copies text up to its first NUL into a new block and appends a
// NUL terminator. SizeOf the result is that length plus one.
func (h *Heap) Strdup(text string) (Ptr, error) {
	if i := strings.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	p, err := h.Alloc(len(text) + 1)
	if err != nil {
		return Nil, err
	}
	h.stats.Strdups++
	b := h.Bytes(p)
	copy(b, text)
	b[len(text)] = 0
	return p, nil
}

// Bytes returns the payload of p. The slice is only valid until the next
// call that can move the arena. On a file-backed heap the payload is
// marked dirty.
func (h *Heap) Bytes(p Ptr) []byte {
	size := h.SizeOf(p)
	h.markDirty(int(p), size)
	return h.mgr.Bytes()[int(p) : int(p)+size]
}

// String returns a copy of p's payload up to its first NUL.
func (h *Heap) String(p Ptr) string {
	size := h.SizeOf(p)
	b := h.mgr.Bytes()[int(p) : int(p)+size]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Base returns the whole arena block.
func (h *Heap) Base() []byte { return h.mgr.Bytes() }

// Capacity returns the tracked arena size.
func (h *Heap) Capacity() int { return h.mgr.Capacity() }

// Settings returns the effective settings.
func (h *Heap) Settings() s.Settings { return h.setts }

// Verify checks the arena for internal consistency.
func (h *Heap) Verify() error {
	if extent := h.fa.Extent(); extent > h.mgr.Capacity() {
		return fmt.Errorf("heap: extent %d beyond capacity %d: %w", extent, h.mgr.Capacity(), alloc.ErrBadDescriptor)
	}
	return h.fa.Verify()
}

// Sync writes the arena back to its file. It is a no-op for providers that
// do not persist.
func (h *Heap) Sync(ctx context.Context) error {
	if h.dt != nil {
		if err := h.dt.FlushDataOnly(ctx); err != nil {
			return fmt.Errorf("heap: flush data: %w", err)
		}
		if err := h.dt.FlushHeaderAndMeta(ctx, dirty.FlushAuto); err != nil {
			return fmt.Errorf("heap: flush descriptor: %w", err)
		}
		return nil
	}
	if sy, ok := h.mgr.Provider().(arena.Syncer); ok {
		return sy.Sync()
	}
	return nil
}

// Close syncs the heap and closes the provider if it can be closed.
func (h *Heap) Close() error {
	err := h.Sync(context.Background())
	if c, ok := h.mgr.Provider().(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// grow extends the arena so that a record of total bytes fits after the
// current capacity, and tells the allocator about the new extent.
func (h *Heap) grow(total int) bool {
	capacity := h.mgr.Capacity()
	extension := format.Align8(capacity + total + h.overhead)
	if capacity+extension > format.MaxArenaSize {
		h.stats.GrowFailures++
		debugf("heap: grow by %d past the largest arena refused\n", extension)
		return false
	}
	if !h.mgr.Extend(extension) {
		h.stats.GrowFailures++
		debugf("heap: provider refused to grow %s by %s\n",
			humanize.IBytes(uint64(capacity)), humanize.IBytes(uint64(extension)))
		return false
	}
	h.stats.Grows++
	if err := h.fa.ResizeDescriptor(h.mgr.Capacity()); err != nil {
		h.fatal(FatalInconsistent, "resize descriptor to %d: %v", h.mgr.Capacity(), err)
	}
	debugf("heap: grew %s -> %s\n", humanize.IBytes(uint64(capacity)), humanize.IBytes(uint64(h.mgr.Capacity())))
	return true
}

// trim hands trailing free space back to the provider. When the provider
// refuses, the extent is widened back to the capacity so the allocator keeps
// using every byte the arena still holds.
func (h *Heap) trim() {
	if h.fa.TrimTrailingFree() == 0 {
		return
	}
	by := h.mgr.Capacity() - h.fa.Extent()
	if by <= 0 {
		return
	}
	if !h.mgr.Shrink(by) {
		h.stats.ShrinkFailures++
		debugf("heap: shrink by %d refused\n", by)
		if err := h.fa.ResizeDescriptor(h.mgr.Capacity()); err != nil {
			h.fatal(FatalInconsistent, "restore extent to %d: %v", h.mgr.Capacity(), err)
		}
		return
	}
	h.stats.Shrinks++
}

// stamp writes the requested size ahead of the payload and returns it.
func (h *Heap) stamp(ref alloc.Ref, size int) Ptr {
	off := int(ref) + format.CellHeaderSize
	format.PutU32(h.mgr.Bytes(), off, uint32(size))
	h.markDirty(off, format.SizeHeaderSize)
	return Ptr(int(ref) + format.PayloadOffset)
}

func (h *Heap) markDirty(off, length int) {
	if h.dt != nil {
		h.dt.Add(off, length)
	}
}

// recordOf returns the cell that holds p.
func recordOf(p Ptr) alloc.Ref {
	return alloc.Ref(p) - format.PayloadOffset
}
