// Package dirty tracks modified byte ranges of a file-backed arena and flushes
// them with msync.
//
// Ranges are recorded as arena offsets, not addresses, so they survive the
// remap that follows every arena resize. At flush time they are rounded out to
// page boundaries, sorted and merged:
//
//	Dirty: [0x10+8, 0x1008+16, 0x3000+4] -> Flushed: [0x0-0x2000, 0x3000-0x4000]
//
// The descriptor page is flushed separately by FlushHeaderAndMeta so callers
// can order data before metadata.
//
// Trackers are not safe for concurrent use.
package dirty
