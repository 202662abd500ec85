package alloc

import (
	"math/rand"
	"testing"
)

// BenchmarkReserveRelease measures a steady-state churn of mixed sizes.
func BenchmarkReserveRelease(b *testing.B) {
	for _, cfg := range []SizeClassConfig{ConfigFineGrained, ConfigBalanced, ConfigCoarse, ConfigStrings} {
		b.Run(cfg.Name, func(b *testing.B) {
			blk := newTestBlock(1 << 24)
			fa := NewFast(blk, &cfg)
			if err := fa.Init(len(blk.Bytes()), 1024); err != nil {
				b.Fatal(err)
			}
			rng := rand.New(rand.NewSource(1))
			ring := make([]Ref, 1024)
			for i := range ring {
				ref, err := fa.Reserve(int32(8 + rng.Intn(256)))
				if err != nil {
					b.Fatal(err)
				}
				ring[i] = ref
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				slot := i % len(ring)
				if err := fa.Release(ring[slot]); err != nil {
					b.Fatal(err)
				}
				ref, err := fa.Reserve(int32(8 + rng.Intn(256)))
				if err != nil {
					b.Fatal(err)
				}
				ring[slot] = ref
			}
		})
	}
}

func BenchmarkRealloc(b *testing.B) {
	blk := newTestBlock(1 << 24)
	fa := NewFast(blk, nil)
	if err := fa.Init(len(blk.Bytes()), 1024); err != nil {
		b.Fatal(err)
	}
	ref, err := fa.Reserve(16)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		size := int32(16 + (i%64)*8)
		if ref, err = fa.Realloc(ref, size); err != nil {
			b.Fatal(err)
		}
	}
}
