package alloc

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/joshuapare/flexheap/internal/format"
)

// Debug flag - set to true to dump allocator state on every miss (compile-time toggle).
const debugAlloc = false

const (
	// minCellSize is the minimum total cell size (including the 4-byte header).
	minCellSize = format.MinCellSize

	// maxArenaSize caps the extent: offsets and cell sizes are int32.
	maxArenaSize = format.MaxArenaSize
)

// FastAllocator is an allocator using min-heaps per size class.
//   - Min-heaps give O(log n) allocation/removal and best fit within a class
//   - Tunable size classes (20-40 typical) keep heaps small
//   - byOff map enables O(1) cell lookup for coalescing
//   - endIdx map enables O(1) backward coalescing
//
// Cells are carved from the free lists first and from the virgin tail
// [hwm, extent) second. A free cell never touches the high-water mark:
// it is folded back into the virgin tail instead.
type FastAllocator struct {
	b  Backing
	dt DirtyTracker // Optional; receives every header and descriptor write

	// Size class configuration and lookup table
	sizeTable *sizeClassTable

	// Segregated free lists by size class using min-heaps
	freeLists []freeList

	// Cells at or above MediumMax - simple linked list
	largeFree *largeBlock

	// Pool for reusing freeCell structs
	freeCellPool sync.Pool

	// end offset -> start offset, for backward coalescing
	endIdx map[int32]int32

	// O(1) cell lookup by offset (for heap.Remove during coalescing)
	byOff map[int32]*freeCell

	// Descriptor fields, written through to the arena on every change
	extent    int32
	hwm       int32
	floor     int32
	liveCount int32
	liveBytes int32

	stats Stats
}

// freeList is a size-class-specific free list using a min-heap.
type freeList struct {
	heap  freeCellHeap // Min-heap keyed on size
	count int
}

// freeCell represents a free cell in one of the size class heaps.
type freeCell struct {
	off       int32 // Arena offset of the cell header
	size      int32 // Size including header
	sc        int   // Size class (which heap this belongs to)
	heapIndex int   // Position in heap (for heap.Remove)
}

// freeCellHeap implements heap.Interface for a min-heap keyed on cell size.
// Smallest cells are at the top, giving best fit within the class.
type freeCellHeap []*freeCell

func (h *freeCellHeap) Len() int { return len(*h) }

func (h *freeCellHeap) Less(i, j int) bool {
	return (*h)[i].size < (*h)[j].size
}

func (h *freeCellHeap) Swap(i, j int) {
	(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
	(*h)[i].heapIndex = i
	(*h)[j].heapIndex = j
}

func (h *freeCellHeap) Push(x any) {
	cell := x.(*freeCell) //nolint:errcheck // heap.Interface contract guarantees type
	cell.heapIndex = len(*h)
	*h = append(*h, cell)
}

func (h *freeCellHeap) Pop() any {
	old := *h
	n := len(old)
	cell := old[n-1]
	cell.heapIndex = -1
	*h = old[0 : n-1]
	return cell
}

// largeBlock for cells at or above MediumMax.
type largeBlock struct {
	off  int32
	size int32
	next *largeBlock
}

// NewFast creates an allocator over b. A nil config selects DefaultConfig.
// Call Init or Attach before use.
func NewFast(b Backing, config *SizeClassConfig) *FastAllocator {
	cfg := DefaultConfig
	if config != nil {
		cfg = *config
	}
	fa := &FastAllocator{
		b:         b,
		sizeTable: newSizeClassTable(cfg),
		byOff:     make(map[int32]*freeCell),
		endIdx:    make(map[int32]int32),
	}
	fa.freeLists = make([]freeList, fa.sizeTable.NumClasses())
	fa.freeCellPool.New = func() any { return &freeCell{} }
	return fa
}

// SetDirtyTracker attaches dt. Pass nil to stop tracking.
func (fa *FastAllocator) SetDirtyTracker(dt DirtyTracker) {
	fa.dt = dt
}

// Init installs a fresh descriptor at offset zero. The allocator may use
// extent bytes and will never trim below floor.
func (fa *FastAllocator) Init(extent, floor int) error {
	data := fa.b.Bytes()
	if extent < format.DescriptorSize || extent > len(data) || extent > maxArenaSize {
		return fmt.Errorf("init: extent %d with block of %d: %w", extent, len(data), ErrBadDescriptor)
	}
	if floor > extent {
		floor = extent
	}
	fa.reset()
	fa.extent = int32(extent)
	fa.floor = int32(floor)
	fa.hwm = format.DescriptorSize
	fa.writeDescriptor(data)
	debugf("alloc init extent=%d floor=%d config=%v\n", extent, floor, fa.sizeTable)
	return nil
}

// Attach adopts the descriptor already present in the block and rebuilds
// the free lists by walking the cell area.
func (fa *FastAllocator) Attach() error {
	data := fa.b.Bytes()
	d, err := format.ParseDescriptor(data)
	if err != nil {
		return fmt.Errorf("attach: %w: %w", ErrBadDescriptor, err)
	}
	switch {
	case int(d.Extent) > len(data) || d.Extent > maxArenaSize:
		return fmt.Errorf("attach: extent %d beyond block of %d: %w", d.Extent, len(data), ErrBadDescriptor)
	case d.HWM < format.DescriptorSize || d.HWM > d.Extent:
		return fmt.Errorf("attach: hwm %d outside [%d, %d]: %w",
			d.HWM, format.DescriptorSize, d.Extent, ErrBadDescriptor)
	}

	fa.reset()
	fa.extent = int32(d.Extent)
	fa.hwm = int32(d.HWM)
	fa.floor = int32(d.Floor)

	var liveCount, liveBytes int32
	off := format.DescriptorSize
	for off < int(fa.hwm) {
		c, next, err := format.NextCell(data, off, int(fa.hwm))
		if err != nil {
			fa.reset()
			return fmt.Errorf("attach: %w: %w", ErrBadDescriptor, err)
		}
		if c.Free {
			fa.insertFreeCell(int32(c.Offset), int32(c.Size))
		} else {
			liveCount++
			liveBytes += int32(c.Size)
		}
		off = next
	}
	if uint32(liveCount) != d.LiveCount || uint32(liveBytes) != d.LiveBytes {
		fa.reset()
		return fmt.Errorf("attach: descriptor says %d cells/%d bytes live, found %d/%d: %w",
			d.LiveCount, d.LiveBytes, liveCount, liveBytes, ErrBadDescriptor)
	}
	fa.liveCount = liveCount
	fa.liveBytes = liveBytes
	debugf("alloc attach extent=%d hwm=%d live=%d\n", fa.extent, fa.hwm, fa.liveCount)
	return nil
}

// ResizeDescriptor moves the extent to newExtent. It must be called after
// every change to the block size; the block may have moved, which is fine
// since the allocator only stores offsets.
func (fa *FastAllocator) ResizeDescriptor(newExtent int) error {
	data := fa.b.Bytes()
	if newExtent > len(data) || newExtent > maxArenaSize {
		return fmt.Errorf("resize: extent %d with block of %d: %w", newExtent, len(data), ErrBadDescriptor)
	}
	if newExtent < int(fa.hwm) {
		return fmt.Errorf("resize: extent %d below hwm %d: %w", newExtent, fa.hwm, ErrShrinkLive)
	}
	fa.stats.Resizes++
	debugf("alloc resize extent %d -> %d\n", fa.extent, newExtent)
	fa.extent = int32(newExtent)
	fa.writeDescriptor(data)
	return nil
}

// cellSize converts a body size into a total cell size.
func cellSize(total int32) (int32, error) {
	if total <= 0 {
		return 0, ErrNeedSmall
	}
	if total > maxArenaSize-format.DescriptorSize-format.CellHeaderSize-format.CellAlignment {
		return 0, ErrNoSpace
	}
	need := format.Align8I32(total + format.CellHeaderSize)
	if need < minCellSize {
		need = minCellSize
	}
	return need, nil
}

// Reserve claims a cell whose body holds at least total bytes and returns
// its offset. On ErrNoSpace nothing changes.
func (fa *FastAllocator) Reserve(total int32) (Ref, error) {
	fa.stats.ReserveCalls++
	need, err := cellSize(total)
	if err != nil {
		return 0, err
	}

	if off, ok := fa.takeFree(need); ok {
		fa.stats.ReserveFree++
		fa.commit(fa.b.Bytes(), off, fa.cellAt(off))
		return Ref(off), nil
	}

	if fa.hwm+need <= fa.extent && fa.hwm+need > fa.hwm {
		off := fa.hwm
		fa.hwm += need
		fa.stats.ReserveVirgin++
		fa.commit(fa.b.Bytes(), off, need)
		return Ref(off), nil
	}

	fa.stats.ReserveMisses++
	if debugAlloc {
		fa.dumpState(need)
	}
	return 0, ErrNoSpace
}

// takeFree pops the best candidate from the free lists, splits off any
// usable remainder, and leaves a free header of the claimed size at off.
func (fa *FastAllocator) takeFree(need int32) (int32, bool) {
	var cell *freeCell
	for sc := fa.getSizeClass(need); sc < len(fa.freeLists) && cell == nil; sc++ {
		cell = fa.allocFromSizeClass(sc, need)
	}
	if cell == nil {
		cell = fa.allocFromLarge(need)
	}
	if cell == nil {
		return 0, false
	}

	off, size := cell.off, cell.size
	fa.putFreeCell(cell)

	data := fa.b.Bytes()
	if rem := size - need; rem >= minCellSize {
		fa.stats.SplitCount++
		fa.putHeader(data, off+need, rem)
		fa.insertFreeCell(off+need, rem)
		size = need
	}
	fa.putHeader(data, off, size)
	return off, true
}

// commit marks the cell at off as allocated and updates the live counters.
func (fa *FastAllocator) commit(data []byte, off, size int32) {
	fa.putHeader(data, off, -size)
	fa.liveCount++
	fa.liveBytes += size
	fa.writeDescriptor(data)
}

// Release returns the cell at ref to the free lists, merging it with free
// neighbours. A cell that ends at the high-water mark lowers it instead.
func (fa *FastAllocator) Release(ref Ref) error {
	fa.stats.ReleaseCalls++
	data := fa.b.Bytes()
	off := int32(ref)
	size, err := fa.allocatedAt(off)
	if err != nil {
		return err
	}

	fa.liveCount--
	fa.liveBytes -= size

	if prevOff, ok := fa.endIdx[off]; ok {
		if prevSize := fa.cellAt(prevOff); prevSize > 0 && prevOff+prevSize == off {
			fa.stats.CoalesceBackward++
			fa.removeFreeCell(prevOff, prevSize)
			off = prevOff
			size += prevSize
		}
	}
	fa.freeRegion(data, off, size)
	fa.writeDescriptor(data)
	return nil
}

// freeRegion turns [off, off+size) into free space. The region must not
// be preceded by a free cell.
func (fa *FastAllocator) freeRegion(data []byte, off, size int32) {
	if next := off + size; next < fa.hwm {
		if nextSize := fa.cellAt(next); nextSize > 0 {
			fa.stats.CoalesceForward++
			fa.removeFreeCell(next, nextSize)
			size += nextSize
		}
	}
	if off+size >= fa.hwm {
		fa.stats.Folds++
		fa.hwm = off
		return
	}
	fa.putHeader(data, off, size)
	fa.insertFreeCell(off, size)
}

// Realloc resizes the body of the cell at ref to hold total bytes. It
// shrinks or grows in place when the neighbourhood allows, otherwise it
// reserves a new cell, copies the body, and releases the old one. On
// ErrNoSpace the original cell is untouched.
func (fa *FastAllocator) Realloc(ref Ref, total int32) (Ref, error) {
	off := int32(ref)
	cur, err := fa.allocatedAt(off)
	if err != nil {
		return 0, err
	}
	need, err := cellSize(total)
	if err != nil {
		return 0, err
	}
	data := fa.b.Bytes()

	if need <= cur {
		if rem := cur - need; rem >= minCellSize {
			fa.stats.SplitCount++
			fa.putHeader(data, off, -need)
			fa.liveBytes -= rem
			fa.freeRegion(data, off+need, rem)
			fa.writeDescriptor(data)
		}
		fa.stats.ReallocInPlace++
		return ref, nil
	}

	extra := need - cur
	next := off + cur
	switch {
	case next == fa.hwm && fa.extent-fa.hwm >= extra:
		fa.hwm += extra
		fa.growInPlace(data, off, cur, need)
		return ref, nil

	case next < fa.hwm:
		if nextSize := fa.cellAt(next); nextSize >= extra {
			fa.removeFreeCell(next, nextSize)
			if rem := nextSize - extra; rem >= minCellSize {
				fa.stats.SplitCount++
				fa.putHeader(data, off+need, rem)
				fa.insertFreeCell(off+need, rem)
			} else {
				need = cur + nextSize
			}
			fa.growInPlace(data, off, cur, need)
			return ref, nil
		}
	}

	nref, err := fa.Reserve(total)
	if err != nil {
		return 0, err
	}
	data = fa.b.Bytes()
	noff := int32(nref)
	copy(data[noff+format.CellHeaderSize:], data[off+format.CellHeaderSize:off+cur])
	fa.markDirty(int(noff), int(cur))
	fa.stats.ReallocMoved++
	if err := fa.Release(ref); err != nil {
		return 0, err
	}
	return nref, nil
}

func (fa *FastAllocator) growInPlace(data []byte, off, cur, need int32) {
	fa.stats.ReallocInPlace++
	fa.putHeader(data, off, -need)
	fa.liveBytes += need - cur
	fa.writeDescriptor(data)
}

// TrimTrailingFree lowers the extent to the larger of the aligned
// high-water mark and the floor, returning the number of bytes given up.
func (fa *FastAllocator) TrimTrailingFree() int {
	target := format.Align8I32(fa.hwm)
	if target < fa.floor {
		target = fa.floor
	}
	if target >= fa.extent {
		return 0
	}
	released := int(fa.extent - target)
	fa.extent = target
	fa.stats.Trims++
	fa.stats.TrimmedBytes += int64(released)
	fa.writeDescriptor(fa.b.Bytes())
	debugf("alloc trim released=%d extent=%d\n", released, target)
	return released
}

// BodySize returns the body size of the allocated cell at ref.
func (fa *FastAllocator) BodySize(ref Ref) (int, error) {
	size, err := fa.allocatedAt(int32(ref))
	if err != nil {
		return 0, err
	}
	return int(size) - format.CellHeaderSize, nil
}

// Extent returns the number of bytes the allocator may use.
func (fa *FastAllocator) Extent() int { return int(fa.extent) }

// Stats returns a copy of the event counters.
func (fa *FastAllocator) Stats() Stats { return fa.stats }

// Usage returns a snapshot of the extent layout.
func (fa *FastAllocator) Usage() Usage {
	u := Usage{
		Extent:    int(fa.extent),
		HWM:       int(fa.hwm),
		Floor:     int(fa.floor),
		LiveCount: int(fa.liveCount),
		LiveBytes: int(fa.liveBytes),
	}
	fa.eachFree(func(_, size int32) {
		u.FreeCells++
		u.FreeBytes += int(size)
	})
	return u
}

// allocatedAt validates ref and returns its cell size.
func (fa *FastAllocator) allocatedAt(off int32) (int32, error) {
	if off < format.DescriptorSize || off+format.CellHeaderSize > fa.hwm || off&format.CellAlignmentMask != 0 {
		return 0, fmt.Errorf("cell 0x%X outside [0x%X, 0x%X): %w", off, format.DescriptorSize, fa.hwm, ErrBadRef)
	}
	raw := fa.cellAt(off)
	if raw >= 0 {
		return 0, fmt.Errorf("cell 0x%X: %w", off, ErrNotAllocated)
	}
	size := -raw
	if off+size > fa.hwm {
		return 0, fmt.Errorf("cell 0x%X size %d crosses hwm 0x%X: %w", off, size, fa.hwm, ErrBadRef)
	}
	return size, nil
}

func (fa *FastAllocator) cellAt(off int32) int32 {
	return format.ReadI32(fa.b.Bytes(), int(off))
}

func (fa *FastAllocator) putHeader(data []byte, off, v int32) {
	format.PutI32(data, int(off), v)
	fa.markDirty(int(off), format.CellHeaderSize)
}

func (fa *FastAllocator) writeDescriptor(data []byte) {
	format.PutDescriptor(data, format.Descriptor{
		Flags:     format.DescriptorVersion,
		Extent:    uint32(fa.extent),
		HWM:       uint32(fa.hwm),
		LiveCount: uint32(fa.liveCount),
		LiveBytes: uint32(fa.liveBytes),
		Floor:     uint32(fa.floor),
	})
	fa.markDirty(0, format.DescriptorSize)
}

func (fa *FastAllocator) markDirty(off, length int) {
	if fa.dt != nil {
		fa.dt.Add(off, length)
	}
}

// reset drops every free list entry and counter.
func (fa *FastAllocator) reset() {
	for i := range fa.freeLists {
		for _, c := range fa.freeLists[i].heap {
			fa.putFreeCell(c)
		}
		fa.freeLists[i] = freeList{}
	}
	fa.largeFree = nil
	clear(fa.byOff)
	clear(fa.endIdx)
	fa.extent, fa.hwm, fa.floor = 0, 0, 0
	fa.liveCount, fa.liveBytes = 0, 0
	fa.stats = Stats{}
}

func (fa *FastAllocator) allocFromSizeClass(sc int, need int32) *freeCell {
	list := &fa.freeLists[sc]
	if list.heap.Len() == 0 {
		return nil
	}

	// Fast path: heap[0] is the smallest cell in this class.
	if list.heap[0].size >= need {
		fa.stats.HeapRemoves++
		cell := heap.Pop(&list.heap).(*freeCell) //nolint:errcheck // heap contains only *freeCell
		list.count--
		delete(fa.byOff, cell.off)
		delete(fa.endIdx, cell.off+cell.size)
		return cell
	}

	// Slow path: bounded good-enough scan of the rest of the heap.
	const (
		maxSlowPathScan = 32
		fitTolerance    = 64
	)

	bestIdx := -1
	var bestSize int32 = 1<<31 - 1
	maxAcceptable := need + fitTolerance

	scanLimit := min(list.heap.Len(), maxSlowPathScan)
	for i := 1; i < scanLimit; i++ {
		cellSize := list.heap[i].size
		if cellSize < need {
			continue
		}
		if cellSize <= maxAcceptable {
			bestIdx = i
			break
		}
		if cellSize < bestSize {
			bestIdx = i
			bestSize = cellSize
		}
	}
	if bestIdx == -1 {
		return nil
	}

	fa.stats.HeapRemoves++
	cell := heap.Remove(&list.heap, bestIdx).(*freeCell) //nolint:errcheck // heap contains only *freeCell
	list.count--
	delete(fa.byOff, cell.off)
	delete(fa.endIdx, cell.off+cell.size)
	return cell
}

func (fa *FastAllocator) allocFromLarge(need int32) *freeCell {
	var prev *largeBlock
	for curr := fa.largeFree; curr != nil; prev, curr = curr, curr.next {
		if curr.size < need {
			continue
		}
		if prev == nil {
			fa.largeFree = curr.next
		} else {
			prev.next = curr.next
		}
		delete(fa.endIdx, curr.off+curr.size)

		cell := fa.getFreeCell()
		cell.off = curr.off
		cell.size = curr.size
		return cell
	}
	return nil
}

// insertFreeCell registers a free cell. O(log n) via min-heap.
func (fa *FastAllocator) insertFreeCell(off, size int32) {
	if off < format.DescriptorSize || off+size > fa.hwm {
		warnf("alloc: ignoring free cell 0x%X/%d outside [0x%X, 0x%X)\n",
			off, size, format.DescriptorSize, fa.hwm)
		return
	}

	if sc := fa.getSizeClass(size); sc < len(fa.freeLists) {
		cell := fa.getFreeCell()
		cell.off = off
		cell.size = size
		cell.sc = sc

		fa.stats.HeapPushes++
		heap.Push(&fa.freeLists[sc].heap, cell)
		fa.freeLists[sc].count++
		fa.byOff[off] = cell
	} else {
		fa.largeFree = &largeBlock{off: off, size: size, next: fa.largeFree}
	}
	fa.endIdx[off+size] = off
}

// removeFreeCell unregisters a free cell. O(log n) via heap.Remove with
// O(1) lookup through byOff.
func (fa *FastAllocator) removeFreeCell(off int32, size int32) {
	if sc := fa.getSizeClass(size); sc < len(fa.freeLists) {
		cell := fa.byOff[off]
		if cell == nil {
			return
		}
		fa.stats.HeapRemoves++
		heap.Remove(&fa.freeLists[sc].heap, cell.heapIndex)
		fa.freeLists[sc].count--
		delete(fa.byOff, off)
		delete(fa.endIdx, off+size)
		fa.putFreeCell(cell)
		return
	}

	var prev *largeBlock
	for curr := fa.largeFree; curr != nil; prev, curr = curr, curr.next {
		if curr.off != off {
			continue
		}
		if prev == nil {
			fa.largeFree = curr.next
		} else {
			prev.next = curr.next
		}
		delete(fa.endIdx, off+size)
		return
	}
}

// eachFree calls fn for every registered free cell.
func (fa *FastAllocator) eachFree(fn func(off, size int32)) {
	for i := range fa.freeLists {
		for _, c := range fa.freeLists[i].heap {
			fn(c.off, c.size)
		}
	}
	for lb := fa.largeFree; lb != nil; lb = lb.next {
		fn(lb.off, lb.size)
	}
}

func (fa *FastAllocator) getFreeCell() *freeCell {
	cell, ok := fa.freeCellPool.Get().(*freeCell)
	if !ok {
		return &freeCell{}
	}
	return cell
}

func (fa *FastAllocator) putFreeCell(cell *freeCell) {
	cell.heapIndex = -1
	cell.sc = 0
	fa.freeCellPool.Put(cell)
}

// getSizeClass returns the size class (heap index) for a cell size.
func (fa *FastAllocator) getSizeClass(size int32) int {
	return fa.sizeTable.getSizeClass(size)
}

func (fa *FastAllocator) dumpState(need int32) {
	debugf("alloc miss need=%d %v\n", need, fa.Usage())
	for i := range fa.freeLists {
		if fa.freeLists[i].count > 0 {
			debugf("  class %d (<=%d): %d cells\n", i, fa.sizeTable.boundaries[i], fa.freeLists[i].count)
		}
	}
}
