package format

import (
	"bytes"
	"fmt"
)

const (
	checksumAllOnes             = 0xFFFFFFFF
	checksumAllOnesReplacement  = 0xFFFFFFFE
	checksumAllZerosReplacement = 0x00000001
)

// Descriptor is the decoded form of the 32-byte arena descriptor.
type Descriptor struct {
	Flags     uint32
	Extent    uint32
	HWM       uint32
	LiveCount uint32
	LiveBytes uint32
	Floor     uint32
	Checksum  uint32
}

// ParseDescriptor validates the signature and checksum and decodes the fields.
func ParseDescriptor(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, fmt.Errorf("descriptor: %w", ErrTruncated)
	}
	if !bytes.Equal(b[DescSignatureOffset:DescSignatureOffset+DescSignatureSize], DescriptorSignature) {
		return Descriptor{}, fmt.Errorf("descriptor: %w", ErrSignatureMismatch)
	}
	d := Descriptor{
		Flags:     ReadU32(b, DescFlagsOffset),
		Extent:    ReadU32(b, DescExtentOffset),
		HWM:       ReadU32(b, DescHWMOffset),
		LiveCount: ReadU32(b, DescLiveCountOffset),
		LiveBytes: ReadU32(b, DescLiveBytesOffset),
		Floor:     ReadU32(b, DescFloorOffset),
		Checksum:  ReadU32(b, DescChecksumOffset),
	}
	if want := DescriptorChecksum(b); d.Checksum != want {
		return Descriptor{}, fmt.Errorf("descriptor: stored=0x%08X computed=0x%08X: %w",
			d.Checksum, want, ErrChecksum)
	}
	return d, nil
}

// PutDescriptor encodes d (signature included) into b and stamps the checksum.
func PutDescriptor(b []byte, d Descriptor) {
	copy(b[DescSignatureOffset:], DescriptorSignature)
	PutU32(b, DescFlagsOffset, d.Flags)
	PutU32(b, DescExtentOffset, d.Extent)
	PutU32(b, DescHWMOffset, d.HWM)
	PutU32(b, DescLiveCountOffset, d.LiveCount)
	PutU32(b, DescLiveBytesOffset, d.LiveBytes)
	PutU32(b, DescFloorOffset, d.Floor)
	StampChecksum(b)
}

// DescriptorChecksum is the XOR of the seven dwords before the checksum field.
// All-ones and all-zeros results are remapped so a blank or erased page never
// carries a valid checksum.
func DescriptorChecksum(b []byte) uint32 {
	var sum uint32
	for off := 0; off < DescChecksumOffset; off += 4 {
		sum ^= ReadU32(b, off)
	}
	switch sum {
	case checksumAllOnes:
		return checksumAllOnesReplacement
	case 0:
		return checksumAllZerosReplacement
	}
	return sum
}

// StampChecksum recomputes and stores the descriptor checksum.
func StampChecksum(b []byte) {
	PutU32(b, DescChecksumOffset, DescriptorChecksum(b))
}
