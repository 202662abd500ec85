package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flexheap/internal/format"
)

func Test_FastAlloc_InitWritesDescriptor(t *testing.T) {
	fa, blk := newTestAllocator(t, 1024)

	d, err := format.ParseDescriptor(blk.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), d.Extent)
	assert.Equal(t, uint32(format.DescriptorSize), d.HWM)
	assert.Equal(t, uint32(1024), d.Floor)
	assert.Zero(t, d.LiveCount)
	assert.Equal(t, 1024, fa.Extent())
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_InitRejectsBadExtent(t *testing.T) {
	blk := newTestBlock(512)
	fa := NewFast(blk, nil)

	require.ErrorIs(t, fa.Init(1024, 1024), ErrBadDescriptor)
	require.ErrorIs(t, fa.Init(16, 16), ErrBadDescriptor)
}

func Test_FastAlloc_ReserveCarvesVirgin(t *testing.T) {
	fa, blk := newTestAllocator(t, 1024)

	a, err := fa.Reserve(100)
	require.NoError(t, err)
	b, err := fa.Reserve(12)
	require.NoError(t, err)

	assert.Equal(t, Ref(format.DescriptorSize), a)
	assert.Equal(t, Ref(format.DescriptorSize+104), b)
	assert.Equal(t, int32(-104), cellHeader(blk, a))
	assert.Equal(t, int32(-16), cellHeader(blk, b))

	u := fa.Usage()
	assert.Equal(t, 152, u.HWM)
	assert.Equal(t, 2, u.LiveCount)
	assert.Equal(t, 120, u.LiveBytes)
	assert.Equal(t, 2, fa.Stats().ReserveVirgin)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_ReserveAlignment(t *testing.T) {
	fa, _ := newTestAllocator(t, 4096)

	for _, total := range []int32{1, 3, 4, 5, 7, 9, 13, 31, 33, 100} {
		ref, err := fa.Reserve(total)
		require.NoError(t, err)
		assert.Zero(t, ref%format.CellAlignment, "ref 0x%X for %d", ref, total)

		body, err := fa.BodySize(ref)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, body, int(total))
	}
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_ReserveRejectsNonPositive(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)

	_, err := fa.Reserve(0)
	require.ErrorIs(t, err, ErrNeedSmall)
	_, err = fa.Reserve(-8)
	require.ErrorIs(t, err, ErrNeedSmall)
}

func Test_FastAlloc_NoSpaceLeavesStateUntouched(t *testing.T) {
	fa, blk := newTestAllocator(t, 64)
	before := append([]byte(nil), blk.Bytes()...)

	_, err := fa.Reserve(40)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, before, blk.Bytes())
	assert.Equal(t, 1, fa.Stats().ReserveMisses)
}

func Test_FastAlloc_ResizeDescriptorEnablesReserve(t *testing.T) {
	fa, blk := newTestAllocator(t, 64)

	_, err := fa.Reserve(100)
	require.ErrorIs(t, err, ErrNoSpace)

	blk.grow(1024)
	require.NoError(t, fa.ResizeDescriptor(len(blk.Bytes())))

	ref, err := fa.Reserve(100)
	require.NoError(t, err)
	assert.Equal(t, Ref(format.DescriptorSize), ref)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_ResizeDescriptorBounds(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)
	_, err := fa.Reserve(500)
	require.NoError(t, err)

	require.ErrorIs(t, fa.ResizeDescriptor(2048), ErrBadDescriptor)
	require.ErrorIs(t, fa.ResizeDescriptor(256), ErrShrinkLive)
	require.NoError(t, fa.ResizeDescriptor(544))
	assert.Equal(t, 544, fa.Extent())
}

func Test_FastAlloc_ReuseFreedCellWithSplit(t *testing.T) {
	fa, blk := newTestAllocator(t, 1024)

	a, err := fa.Reserve(100)
	require.NoError(t, err)
	_, err = fa.Reserve(12)
	require.NoError(t, err)
	require.NoError(t, fa.Release(a))

	c, err := fa.Reserve(50)
	require.NoError(t, err)
	assert.Equal(t, a, c, "freed cell is reused")
	assert.Equal(t, int32(-56), cellHeader(blk, c))
	assert.Equal(t, int32(48), cellHeader(blk, c+56), "remainder stays free")
	assert.Equal(t, 1, fa.Stats().SplitCount)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_BestFit(t *testing.T) {
	fa, _ := newTestAllocator(t, 8192)

	var refs []Ref
	for _, total := range []int32{252, 4, 124, 4, 508, 4} {
		ref, err := fa.Reserve(total)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.NoError(t, fa.Release(refs[0]))
	require.NoError(t, fa.Release(refs[2]))
	require.NoError(t, fa.Release(refs[4]))

	ref, err := fa.Reserve(100)
	require.NoError(t, err)
	assert.Equal(t, refs[2], ref, "128-byte cell is the best fit")
}

func Test_FastAlloc_ReleaseFoldsIntoVirgin(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)

	a, err := fa.Reserve(20)
	require.NoError(t, err)
	b, err := fa.Reserve(20)
	require.NoError(t, err)

	require.NoError(t, fa.Release(b))
	assert.Equal(t, int(b), fa.Usage().HWM)
	require.NoError(t, fa.Release(a))

	u := fa.Usage()
	assert.Equal(t, format.DescriptorSize, u.HWM)
	assert.Zero(t, u.FreeCells)
	assert.Zero(t, u.LiveCount)
	assert.Equal(t, 2, fa.Stats().Folds)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_CoalesceForward(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)

	refs := make([]Ref, 4)
	for i := range refs {
		ref, err := fa.Reserve(20)
		require.NoError(t, err)
		refs[i] = ref
	}
	require.NoError(t, fa.Release(refs[1]))
	require.NoError(t, fa.Release(refs[0]))

	u := fa.Usage()
	assert.Equal(t, 1, u.FreeCells)
	assert.Equal(t, 48, u.FreeBytes)
	assert.Equal(t, 1, fa.Stats().CoalesceForward)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_CoalesceBackwardThenFold(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)

	refs := make([]Ref, 3)
	for i := range refs {
		ref, err := fa.Reserve(20)
		require.NoError(t, err)
		refs[i] = ref
	}
	require.NoError(t, fa.Release(refs[0]))
	require.NoError(t, fa.Release(refs[2]))
	require.NoError(t, fa.Release(refs[1]))

	u := fa.Usage()
	assert.Equal(t, format.DescriptorSize, u.HWM)
	assert.Zero(t, u.FreeCells)
	assert.Equal(t, 1, fa.Stats().CoalesceBackward)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_ReleaseErrors(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)

	a, err := fa.Reserve(20)
	require.NoError(t, err)
	_, err = fa.Reserve(20)
	require.NoError(t, err)
	require.NoError(t, fa.Release(a))

	require.ErrorIs(t, fa.Release(a), ErrNotAllocated)
	require.ErrorIs(t, fa.Release(0), ErrBadRef)
	require.ErrorIs(t, fa.Release(a+4), ErrBadRef)
	require.ErrorIs(t, fa.Release(4096), ErrBadRef)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_TrimTrailingFree(t *testing.T) {
	blk := newTestBlock(4096)
	fa := NewFast(blk, nil)
	require.NoError(t, fa.Init(4096, 1024))

	ref, err := fa.Reserve(2000)
	require.NoError(t, err)
	assert.Equal(t, 4096-2040, fa.TrimTrailingFree())
	assert.Equal(t, 2040, fa.Extent())
	assert.Zero(t, fa.TrimTrailingFree())

	require.NoError(t, fa.Release(ref))
	assert.Equal(t, 2040-1024, fa.TrimTrailingFree(), "never below the floor")
	assert.Equal(t, 1024, fa.Extent())
	assert.Equal(t, 2, fa.Stats().Trims)
	require.NoError(t, fa.Verify())
}

func Test_FastAlloc_AttachRebuildsFreeLists(t *testing.T) {
	fa, blk := newTestAllocator(t, 2048)

	refs := make([]Ref, 6)
	for i := range refs {
		ref, err := fa.Reserve(int32(16 * (i + 1)))
		require.NoError(t, err)
		refs[i] = ref
	}
	require.NoError(t, fa.Release(refs[1]))
	require.NoError(t, fa.Release(refs[3]))

	again := NewFast(blk, nil)
	require.NoError(t, again.Attach())
	assert.Equal(t, fa.Usage(), again.Usage())
	require.NoError(t, again.Verify())

	ref, err := again.Reserve(16)
	require.NoError(t, err)
	assert.Equal(t, refs[1], ref)
}

func Test_FastAlloc_AttachRejectsCorruption(t *testing.T) {
	fa, blk := newTestAllocator(t, 1024)
	_, err := fa.Reserve(20)
	require.NoError(t, err)

	t.Run("counters", func(t *testing.T) {
		data := append([]byte(nil), blk.Bytes()...)
		d, err := format.ParseDescriptor(data)
		require.NoError(t, err)
		d.LiveCount = 7
		format.PutDescriptor(data, d)

		err = NewFast(&testBlock{data: data}, nil).Attach()
		require.ErrorIs(t, err, ErrBadDescriptor)
	})

	t.Run("signature", func(t *testing.T) {
		data := append([]byte(nil), blk.Bytes()...)
		data[0] = 'x'

		err := NewFast(&testBlock{data: data}, nil).Attach()
		require.ErrorIs(t, err, ErrBadDescriptor)
		require.ErrorIs(t, err, format.ErrSignatureMismatch)
	})

	t.Run("cell", func(t *testing.T) {
		data := append([]byte(nil), blk.Bytes()...)
		format.PutI32(data, format.DescriptorSize, -12)

		err := NewFast(&testBlock{data: data}, nil).Attach()
		require.ErrorIs(t, err, ErrBadDescriptor)
		require.True(t, errors.Is(err, format.ErrBadCell))
	})
}

func Test_FastAlloc_VerifyDetectsStrayHeader(t *testing.T) {
	fa, blk := newTestAllocator(t, 1024)
	a, err := fa.Reserve(20)
	require.NoError(t, err)
	_, err = fa.Reserve(20)
	require.NoError(t, err)

	format.PutI32(blk.Bytes(), int(a), 24)
	require.ErrorIs(t, fa.Verify(), format.ErrBadCell)
}

func Test_FastAlloc_DirtyTracking(t *testing.T) {
	fa, _ := newTestAllocator(t, 1024)
	dt := newMockDirtyTracker()
	fa.SetDirtyTracker(dt)

	ref, err := fa.Reserve(40)
	require.NoError(t, err)
	assert.True(t, dt.WasCalledAt(0), "descriptor")
	assert.True(t, dt.WasCalledAt(int(ref)), "cell header")

	dt.Reset()
	require.NoError(t, fa.Release(ref))
	assert.True(t, dt.WasCalledAt(0))
	assert.Positive(t, dt.CallCount())

	fa.SetDirtyTracker(nil)
	_, err = fa.Reserve(40)
	require.NoError(t, err)
}

func Test_FastAlloc_LargeList(t *testing.T) {
	fa, _ := newTestAllocator(t, 1<<17)

	big, err := fa.Reserve(20000)
	require.NoError(t, err)
	_, err = fa.Reserve(8)
	require.NoError(t, err)
	require.NoError(t, fa.Release(big))
	require.NotNil(t, fa.largeFree)

	ref, err := fa.Reserve(18000)
	require.NoError(t, err)
	assert.Equal(t, big, ref)
	require.NoError(t, fa.Verify())
}
