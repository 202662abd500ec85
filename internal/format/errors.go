package format

import "errors"

var (
	// ErrSignatureMismatch indicates the arena does not start with a descriptor.
	ErrSignatureMismatch = errors.New("format: signature mismatch")

	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")

	// ErrChecksum indicates the descriptor checksum does not match its fields.
	ErrChecksum = errors.New("format: descriptor checksum mismatch")

	// ErrBadCell indicates a cell header that cannot be valid.
	ErrBadCell = errors.New("format: bad cell header")
)
