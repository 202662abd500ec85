package heap

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"

	"github.com/joshuapare/flexheap/heap/alloc"
)

// Stats describes heap activity since New or Open.
type Stats struct {
	Allocs         int `json:"allocs"`
	Frees          int `json:"frees"`
	Reallocs       int `json:"reallocs"`
	Strdups        int `json:"strdups"`
	Grows          int `json:"grows"`           // successful provider extends
	GrowFailures   int `json:"grow_failures"`   // refused extends (ErrOutOfMemory)
	Shrinks        int `json:"shrinks"`         // successful provider shrinks
	ShrinkFailures int `json:"shrink_failures"` // refused shrinks, ignored
	Fatals         int `json:"fatals"`

	Capacity int         `json:"capacity"`
	Usage    alloc.Usage `json:"usage"`
	Alloc    alloc.Stats `json:"alloc"`
}

// Stats returns a snapshot of the heap counters and arena layout.
func (h *Heap) Stats() Stats {
	st := h.stats
	st.Capacity = h.mgr.Capacity()
	st.Usage = h.fa.Usage()
	st.Alloc = h.fa.Stats()
	return st
}

func (st Stats) String() string {
	return fmt.Sprintf("capacity=%s %v allocs=%d frees=%d reallocs=%d grows=%d/%d shrinks=%d/%d",
		humanize.IBytes(uint64(st.Capacity)), st.Usage,
		st.Allocs, st.Frees, st.Reallocs,
		st.Grows, st.Grows+st.GrowFailures, st.Shrinks, st.Shrinks+st.ShrinkFailures)
}
