package dirty

import (
	"context"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// compactThreshold is the number of pending ranges at which Add first
	// coalesces them in place.
	compactThreshold = 4096

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees of FlushHeaderAndMeta.
type FlushMode int

const (
	// FlushAuto provides safe defaults for most use cases:
	// - msync() the descriptor page
	// - fdatasync() the file
	// - On macOS, F_FULLFSYNC is not used.
	FlushAuto FlushMode = iota

	// FlushDataOnly only msyncs the descriptor page.
	// The caller is responsible for syncing the file later.
	FlushDataOnly

	// FlushFull is FlushAuto plus F_FULLFSYNC on macOS.
	// Use this when the heap file must survive power loss.
	FlushFull
)

// Range represents a dirty byte range in arena offsets.
type Range struct {
	Off int64 // Offset from the start of the arena
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges for one mapped block and flushes them.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	m         Mapped
	ranges    []Range // pending ranges, coalesced at flush time or when compactAt is reached
	compactAt int
	pageSize  int64
}

// NewTracker creates a dirty tracker for m.
//
// The tracker pre-allocates capacity for 64 ranges to minimize allocations
// during typical workloads.
func NewTracker(m Mapped) *Tracker {
	return &Tracker{
		m:         m,
		ranges:    make([]Range, 0, defaultRangeCapacity),
		compactAt: compactThreshold,
		pageSize:  standardPageSize,
	}
}

// Add records a dirty range. Empty and negative lengths are ignored.
//
// The range is page-aligned and merged with the others at flush time. Between
// flushes the pending list is compacted in place whenever it reaches the
// compaction mark, and the mark then moves to twice the compacted length, so
// a long run without Sync holds at most one range per dirty page plus the
// ranges added since the last compaction.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
	if len(t.ranges) >= t.compactAt {
		t.compact()
	}
}

// Len returns the number of pending ranges.
func (t *Tracker) Len() int { return len(t.ranges) }

// FlushDataOnly flushes all dirty data ranges to disk.
//
// This method:
//  1. Coalesces all ranges into page-aligned, non-overlapping ranges
//  2. Flushes each range that still lies inside the block using msync()
//  3. Clears the tracker
//
// Ranges beyond the current block were trimmed away since they were recorded
// and are dropped. The descriptor page is flushed by FlushHeaderAndMeta.
//
// The context is checked before any work is done.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data := t.m.Bytes()
	if len(data) == 0 {
		t.clear()
		return nil
	}
	if err := t.flushRanges(data); err != nil {
		return err
	}
	t.clear()
	return nil
}

// FlushHeaderAndMeta flushes the descriptor page and optionally syncs the
// file descriptor.
//
// This method:
//  1. Flushes the first page of the block using msync()
//  2. Calls fdatasync() based on the FlushMode:
//     - FlushAuto: fdatasync()
//     - FlushDataOnly: no fdatasync()
//     - FlushFull: fdatasync() + F_FULLFSYNC on macOS
//
// Call it after FlushDataOnly so the descriptor never describes cells that
// are not yet on disk.
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := t.m.Bytes()
	if len(data) == 0 {
		return nil
	}
	headerLen := int(t.pageSize)
	if headerLen > len(data) {
		headerLen = len(data)
	}
	if err := msync(data[:headerLen]); err != nil {
		return err
	}
	if mode == FlushDataOnly {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fdatasync(t.m.FD(), mode == FlushFull)
}

// Reset clears all tracked ranges without flushing them.
func (t *Tracker) Reset() {
	t.clear()
}

// DebugCoalescedRanges returns the ranges that the next flush would write.
// Intended for tests and diagnostics.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

func (t *Tracker) clear() {
	t.ranges = t.ranges[:0]
	t.compactAt = compactThreshold
}

// compact replaces the pending ranges with their coalesced form.
func (t *Tracker) compact() {
	merged := t.coalesce()
	t.ranges = append(t.ranges[:0], merged...)
	t.compactAt = max(compactThreshold, 2*len(t.ranges))
}

// coalesce page-aligns, sorts and merges the tracked ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			if end := next.Off + next.Len; end > current.Off+current.Len {
				current.Len = end - current.Off
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
