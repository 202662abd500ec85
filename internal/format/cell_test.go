package format

import (
	"errors"
	"testing"
)

func TestNextCellAllocated(t *testing.T) {
	b := make([]byte, 256)
	off := DescriptorSize
	PutI32(b, off, -0x30)
	PutU32(b, off+CellHeaderSize, 0x20)

	cell, next, err := NextCell(b, off, len(b))
	if err != nil {
		t.Fatalf("NextCell: %v", err)
	}
	if cell.Free || cell.Size != 0x30 || cell.Offset != off {
		t.Fatalf("unexpected cell: %+v", cell)
	}
	if next != off+0x30 {
		t.Fatalf("next offset mismatch: %d", next)
	}
}

func TestNextCellFree(t *testing.T) {
	b := make([]byte, 256)
	off := DescriptorSize
	PutI32(b, off, 0x20)

	cell, _, err := NextCell(b, off, len(b))
	if err != nil {
		t.Fatalf("NextCell: %v", err)
	}
	if !cell.Free || cell.Size != 0x20 {
		t.Fatalf("unexpected cell: %+v", cell)
	}
}

func TestNextCellRejectsBadSizes(t *testing.T) {
	b := make([]byte, 128)
	off := DescriptorSize

	PutI32(b, off, 0)
	if _, _, err := NextCell(b, off, len(b)); !errors.Is(err, ErrBadCell) {
		t.Fatalf("zero size: expected ErrBadCell, got %v", err)
	}

	PutI32(b, off, 12)
	if _, _, err := NextCell(b, off, len(b)); !errors.Is(err, ErrBadCell) {
		t.Fatalf("unaligned size: expected ErrBadCell, got %v", err)
	}

	PutI32(b, off, 0x100)
	if _, _, err := NextCell(b, off, len(b)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("oversized: expected ErrTruncated, got %v", err)
	}
}

func TestAlign8(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 8: 8, 9: 16, 1023: 1024}
	for in, want := range cases {
		if got := Align8(in); got != want {
			t.Errorf("Align8(%d) = %d, want %d", in, got, want)
		}
		if got := Align8I32(int32(in)); got != int32(want) {
			t.Errorf("Align8I32(%d) = %d, want %d", in, got, want)
		}
	}
	if got := AlignDown8(1031); got != 1024 {
		t.Errorf("AlignDown8(1031) = %d", got)
	}
}
