package arena

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
)

// Manager owns a Provider and tracks the block's capacity.
type Manager struct {
	p        Provider
	capacity int
}

// NewManager wraps p. Call Initialise or Attach before use.
func NewManager(p Provider) *Manager {
	return &Manager{p: p}
}

// Initialise makes sure the block holds at least size bytes.
func (m *Manager) Initialise(size int) error {
	if have := len(m.p.Bytes()); have < size {
		if err := m.p.Extend(size - have); err != nil {
			return fmt.Errorf("arena: initial block of %d bytes: %w", size, err)
		}
	}
	m.capacity = len(m.p.Bytes())
	debugf("arena initialised with %s\n", humanize.IBytes(uint64(m.capacity)))
	return nil
}

// Attach adopts the provider's current block as is.
func (m *Manager) Attach() {
	m.capacity = len(m.p.Bytes())
}

// Extend grows the block by `by` bytes. The block may move.
func (m *Manager) Extend(by int) bool {
	if err := m.p.Extend(by); err != nil {
		debugf("arena extend by %d refused: %v\n", by, err)
		return false
	}
	m.capacity = len(m.p.Bytes())
	return true
}

// Shrink releases `by` bytes from the end of the block. Best effort.
func (m *Manager) Shrink(by int) bool {
	if err := m.p.Shrink(by); err != nil {
		debugf("arena shrink by %d refused: %v\n", by, err)
		return false
	}
	m.capacity = len(m.p.Bytes())
	return true
}

// Capacity returns the size of the block after the last successful call.
func (m *Manager) Capacity() int { return m.capacity }

// Bytes returns the current block. Do not hold it across Extend or Shrink.
func (m *Manager) Bytes() []byte { return m.p.Bytes() }

// Provider returns the wrapped provider.
func (m *Manager) Provider() Provider { return m.p }
