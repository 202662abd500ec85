package alloc

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"

	"github.com/joshuapare/flexheap/arena/dirty"
)

// Ref is the arena offset of a cell header.
type Ref = uint32

// Backing exposes the arena block. The slice is re-read on every operation
// because the block moves whenever the arena is resized.
type Backing interface {
	Bytes() []byte
}

// DirtyTracker is an alias for the interface defined in arena/dirty.
type DirtyTracker = dirty.DirtyTracker

// Allocator is the embedded allocator contract the heap drives.
type Allocator interface {
	// Init installs a fresh descriptor spanning extent bytes. The allocator
	// never trims below floor.
	Init(extent, floor int) error

	// ResizeDescriptor tells the allocator how many bytes it may use.
	ResizeDescriptor(extent int) error

	// Reserve claims a cell whose body holds at least total bytes.
	Reserve(total int32) (Ref, error)

	// Release returns a cell to the free structures.
	Release(ref Ref) error

	// Realloc resizes a cell body to total bytes, moving it if needed.
	Realloc(ref Ref, total int32) (Ref, error)

	// TrimTrailingFree lowers the extent as far as live cells allow and
	// returns the number of bytes released at the tail.
	TrimTrailingFree() int
}

// Stats counts allocator events since the last Init or Attach.
type Stats struct {
	ReserveCalls     int // Reserve calls
	ReserveFree      int // reservations served from a free list
	ReserveVirgin    int // reservations carved from the virgin tail
	ReserveMisses    int // reservations that returned ErrNoSpace
	ReleaseCalls     int // Release calls
	ReallocInPlace   int // reallocs that kept their offset
	ReallocMoved     int // reallocs that relocated the cell
	SplitCount       int // free cells split on reservation
	CoalesceForward  int // merges with the following free cell
	CoalesceBackward int // merges with the preceding free cell
	Folds            int // trailing free cells returned to the virgin tail
	Resizes          int // ResizeDescriptor calls
	Trims            int // TrimTrailingFree calls that released bytes
	TrimmedBytes     int64
	HeapPushes       int
	HeapRemoves      int
}

// Usage is a snapshot of how the extent is laid out.
type Usage struct {
	Extent    int // bytes the allocator may use
	HWM       int // end of the cell area
	Floor     int // trim floor
	LiveCount int // allocated cells
	LiveBytes int // bytes in allocated cells, headers included
	FreeCells int // cells on the free lists
	FreeBytes int // bytes in free cells
}

// Virgin returns the untouched bytes between the high-water mark and the extent.
func (u Usage) Virgin() int { return u.Extent - u.HWM }

func (u Usage) String() string {
	return fmt.Sprintf("extent=%s hwm=%s live=%d (%s) free=%d (%s)",
		humanize.IBytes(uint64(u.Extent)), humanize.IBytes(uint64(u.HWM)),
		u.LiveCount, humanize.IBytes(uint64(u.LiveBytes)),
		u.FreeCells, humanize.IBytes(uint64(u.FreeBytes)))
}
