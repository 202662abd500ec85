package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + CellAlignmentMask) & ^CellAlignmentMask
}

// Align8I32 is the int32 form of Align8 used by the allocator.
func Align8I32(n int32) int32 {
	return (n + CellAlignmentMask) & ^CellAlignmentMask
}

// AlignDown8 returns n rounded down to an 8-byte boundary.
func AlignDown8(n int) int {
	return n & ^CellAlignmentMask
}
