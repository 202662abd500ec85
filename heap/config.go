package heap

import (
	"fmt"

	s "github.com/bnclabs/gosettings"

	"github.com/joshuapare/flexheap/heap/alloc"
	"github.com/joshuapare/flexheap/internal/format"
)

// minGranularity leaves room for the descriptor and a handful of cells.
const minGranularity = 64

// Defaultsettings for a heap.
//
// "granularity" (int64, default: 1024)
//
//	Initial arena size, and the floor below which the arena is never
//	trimmed. Rounded up to a multiple of 8.
//
// "overhead" (int64, default: 16)
//
//	Bytes added to every growth request on top of the current capacity
//	and the record size.
//
// "sizeclass" (string, default: "balanced")
//
//	Free-list layout: "fine", "balanced", "coarse" or "strings".
//
// "limit" (int64, default: 0)
//
//	Growth limit applied to providers that implement arena.Limiter.
//	Zero leaves the provider's own limit in place.
func Defaultsettings() s.Settings {
	return s.Settings{
		"granularity": int64(format.Granularity),
		"overhead":    int64(format.BlockOverhead),
		"sizeclass":   alloc.DefaultConfig.Name,
		"limit":       int64(0),
	}
}

func (h *Heap) readsettings(setts s.Settings) {
	h.granularity = format.Align8(int(setts.Int64("granularity")))
	if h.granularity < minGranularity || h.granularity > format.MaxArenaSize {
		panic(fmt.Errorf("granularity(%v) outside [%v, %v]", h.granularity, minGranularity, format.MaxArenaSize))
	}
	h.overhead = int(setts.Int64("overhead"))
	if h.overhead < 0 {
		panic(fmt.Errorf("overhead(%v) < 0", h.overhead))
	}
	config, err := alloc.ConfigByName(setts.String("sizeclass"))
	if err != nil {
		panic(err)
	}
	h.sizeclass = config
	h.setts = setts
}
