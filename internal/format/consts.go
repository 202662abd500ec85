// Package format holds the binary layout of a flexheap arena: the descriptor at
// offset zero, the signed cell headers that tile the cell area, and the size
// header that precedes every payload. Everything is little-endian.
package format

// DescriptorSignature is the four-byte signature at the start of every arena.
//
//	0x00  'f' 'h' 'e' 'p'
var DescriptorSignature = []byte{'f', 'h', 'e', 'p'}

const (
	// DescriptorSize is the size of the descriptor in bytes. The first cell
	// starts immediately after it.
	DescriptorSize = 0x20

	// DescriptorVersion is the layout version written into the flags field.
	DescriptorVersion = 1

	// CellHeaderSize is the number of bytes used by the signed size preceding
	// every cell (free or in-use).
	CellHeaderSize = 4

	// SizeHeaderSize is the width of the requested-size word stored at the
	// start of an allocated cell body, immediately before the payload.
	SizeHeaderSize = 4

	// PayloadOffset is the distance from the start of a cell to its payload.
	PayloadOffset = CellHeaderSize + SizeHeaderSize

	// CellAlignment is the required alignment of cells. Because the two
	// headers add up to 8 bytes, payloads inherit the same alignment.
	CellAlignment = 8

	// CellAlignmentMask is CellAlignment - 1.
	CellAlignmentMask = CellAlignment - 1

	// MinCellSize is the smallest legal cell including its header.
	MinCellSize = 8

	// Granularity is the minimum arena size and the initial capacity.
	Granularity = 1024

	// BlockOverhead is the slack added to every growth request on top of the
	// cell that triggered it.
	BlockOverhead = 16

	// MaxArenaSize bounds the arena so every offset fits in an int32.
	MaxArenaSize = 0x7FFFFFFF
)

// Descriptor field offsets.
//
//	Offset  Size  Description
//	------  ----  ---------------------------------------------------
//	 0x00    4    'f' 'h' 'e' 'p'
//	 0x04    4    Flags (layout version in the low byte)
//	 0x08    4    Extent: bytes of the arena the allocator may use
//	 0x0C    4    High-water mark: end of the cell area
//	 0x10    4    Number of allocated cells
//	 0x14    4    Bytes held by allocated cells (headers included)
//	 0x18    4    Floor: the allocator never trims below this extent
//	 0x1C    4    XOR checksum of the preceding seven dwords
const (
	DescSignatureOffset = 0x00
	DescSignatureSize   = 4
	DescFlagsOffset     = 0x04
	DescExtentOffset    = 0x08
	DescHWMOffset       = 0x0C
	DescLiveCountOffset = 0x10
	DescLiveBytesOffset = 0x14
	DescFloorOffset     = 0x18
	DescChecksumOffset  = 0x1C
)
