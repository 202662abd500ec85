package arena

import (
	"github.com/pkg/errors"

	"github.com/joshuapare/flexheap/internal/format"
)

// Memory is a Provider backed by a Go byte slice. Every resize allocates a new
// slice and copies the old contents, so the base moves on each call.
type Memory struct {
	data  []byte
	limit int
	moves int
}

// NewMemory returns an empty memory block that refuses to grow past limit
// bytes. A limit of zero means format.MaxArenaSize.
func NewMemory(limit int) *Memory {
	if limit <= 0 || limit > format.MaxArenaSize {
		limit = format.MaxArenaSize
	}
	return &Memory{limit: limit}
}

// Bytes implements Provider.
func (m *Memory) Bytes() []byte { return m.data }

// Limit returns the largest size the block may reach.
func (m *Memory) Limit() int { return m.limit }

// SetLimit changes the growth limit. A limit below the current size only
// affects future Extend calls.
func (m *Memory) SetLimit(limit int) {
	if limit <= 0 || limit > format.MaxArenaSize {
		limit = format.MaxArenaSize
	}
	m.limit = limit
}

// Moves returns how many times the block has been relocated.
func (m *Memory) Moves() int { return m.moves }

// Extend implements Provider.
func (m *Memory) Extend(delta int) error {
	if delta <= 0 {
		return nil
	}
	newSize := len(m.data) + delta
	if newSize > m.limit || newSize < len(m.data) {
		return errors.Wrapf(ErrLimit, "extend %d by %d (limit %d)", len(m.data), delta, m.limit)
	}
	grown := make([]byte, newSize)
	copy(grown, m.data)
	m.data = grown
	m.moves++
	return nil
}

// Shrink implements Provider.
func (m *Memory) Shrink(delta int) error {
	if delta <= 0 {
		return nil
	}
	if delta > len(m.data) {
		return errors.Wrapf(ErrShrink, "shrink %d by %d", len(m.data), delta)
	}
	shrunk := make([]byte, len(m.data)-delta)
	copy(shrunk, m.data)
	m.data = shrunk
	m.moves++
	return nil
}
