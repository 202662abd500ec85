package arena

import "errors"

var (
	// ErrLimit indicates the provider refused to grow past its limit.
	ErrLimit = errors.New("arena: limit reached")

	// ErrShrink indicates a shrink larger than the block.
	ErrShrink = errors.New("arena: shrink exceeds block size")

	// ErrClosed indicates an operation on a closed provider.
	ErrClosed = errors.New("arena: provider closed")
)

// Provider owns one relocatable memory block.
//
// The block's base address is not stable across Extend or Shrink; Bytes must
// be called again after either.
type Provider interface {
	// Bytes returns the current block.
	Bytes() []byte

	// Extend grows the block by delta bytes. New bytes are zero.
	Extend(delta int) error

	// Shrink releases delta bytes from the end of the block.
	Shrink(delta int) error
}

// Limiter is implemented by providers that can cap their own growth.
type Limiter interface {
	// SetLimit refuses future Extend calls that would pass limit bytes.
	// Zero or less means format.MaxArenaSize.
	SetLimit(limit int)
}

// Syncer is implemented by providers that persist their block.
type Syncer interface {
	Sync() error
}
