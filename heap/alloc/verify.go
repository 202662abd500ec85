package alloc

import (
	"fmt"

	"github.com/joshuapare/flexheap/internal/format"
)

// Verify walks every cell in [DescriptorSize, hwm) and cross-checks the
// walk against the descriptor and the free lists:
//   - cells tile the area exactly, each at least minCellSize and 8-aligned
//   - no two free cells are adjacent and the last cell is allocated
//   - every free cell is registered with its exact size, and nothing else is
//   - live counters match the descriptor stored in the block
func (fa *FastAllocator) Verify() error {
	data := fa.b.Bytes()
	if int(fa.extent) > len(data) {
		return fmt.Errorf("verify: extent %d beyond block of %d: %w", fa.extent, len(data), ErrBadDescriptor)
	}
	d, err := format.ParseDescriptor(data)
	if err != nil {
		return fmt.Errorf("verify: %w: %w", ErrBadDescriptor, err)
	}
	if d.Extent != uint32(fa.extent) || d.HWM != uint32(fa.hwm) ||
		d.LiveCount != uint32(fa.liveCount) || d.LiveBytes != uint32(fa.liveBytes) {
		return fmt.Errorf("verify: stored descriptor %+v disagrees with allocator: %w", d, ErrBadDescriptor)
	}

	registered := make(map[int32]int32)
	fa.eachFree(func(off, size int32) { registered[off] = size })

	var liveCount, liveBytes int32
	prevFree := false
	lastFree := false
	off := format.DescriptorSize
	for off < int(fa.hwm) {
		c, next, err := format.NextCell(data, off, int(fa.hwm))
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if c.Free {
			if prevFree {
				return fmt.Errorf("verify: adjacent free cells at 0x%X: %w", c.Offset, format.ErrBadCell)
			}
			size, ok := registered[int32(c.Offset)]
			if !ok || int(size) != c.Size {
				return fmt.Errorf("verify: free cell 0x%X/%d not on a free list (have %d): %w",
					c.Offset, c.Size, size, format.ErrBadCell)
			}
			delete(registered, int32(c.Offset))
		} else {
			liveCount++
			liveBytes += int32(c.Size)
		}
		prevFree = c.Free
		lastFree = c.Free
		off = next
	}
	if lastFree {
		return fmt.Errorf("verify: free cell touches hwm 0x%X: %w", fa.hwm, format.ErrBadCell)
	}
	if len(registered) > 0 {
		return fmt.Errorf("verify: %d free list entries have no matching cell: %w", len(registered), format.ErrBadCell)
	}
	if liveCount != fa.liveCount || liveBytes != fa.liveBytes {
		return fmt.Errorf("verify: walked %d cells/%d bytes live, counters say %d/%d: %w",
			liveCount, liveBytes, fa.liveCount, fa.liveBytes, ErrBadDescriptor)
	}
	return nil
}
