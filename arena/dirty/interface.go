package dirty

// DirtyTracker is the minimal interface for components that only report
// modified ranges, such as the allocator.
type DirtyTracker interface {
	// Add marks [off, off+length) as dirty.
	Add(off, length int)
}

// Mapped is a file-backed block that can be flushed.
type Mapped interface {
	Bytes() []byte
	FD() int
}
