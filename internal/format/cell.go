package format

import "fmt"

// Cell is a single free or allocated region of the cell area.
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes this header.
//	0x04    4     Requested payload size (allocated cells only).
//	0x08    ...   Payload.
type Cell struct {
	Offset int  // Offset from the start of the arena
	Size   int  // Total size including the header
	Free   bool // True when the cell is on a free list
}

// NextCell decodes the cell at off and returns it together with the offset of
// the following cell. end is the high-water mark; cells never cross it.
func NextCell(b []byte, off, end int) (Cell, int, error) {
	if off < DescriptorSize || off+CellHeaderSize > len(b) || off+CellHeaderSize > end {
		return Cell{}, 0, fmt.Errorf("cell at 0x%X: %w", off, ErrTruncated)
	}
	raw := ReadI32(b, off)
	allocated := raw < 0
	size := int(raw)
	if allocated {
		size = -size
	}
	if size < MinCellSize || size&CellAlignmentMask != 0 {
		return Cell{}, 0, fmt.Errorf("cell at 0x%X: size %d: %w", off, size, ErrBadCell)
	}
	next := off + size
	if next > end {
		return Cell{}, 0, fmt.Errorf("cell at 0x%X: size %d crosses 0x%X: %w", off, size, end, ErrTruncated)
	}
	return Cell{Offset: off, Size: size, Free: !allocated}, next, nil
}
