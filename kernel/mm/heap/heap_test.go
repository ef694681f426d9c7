package heap

import (
	"bytes"
	"testing"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/stretchr/testify/require"
)

// frameSource hands out the frames in its list and then fails.
type frameSource struct {
	frames []mm.Frame
}

var errNoMoreFrames = &kernel.Error{Module: "test", Message: "no more frames"}

func (s *frameSource) alloc() (mm.Frame, *kernel.Error) {
	if len(s.frames) == 0 {
		return mm.InvalidFrame, errNoMoreFrames
	}

	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestRegionAllocatorFit(t *testing.T) {
	src := &frameSource{}
	heap := NewRegionAllocator(src.alloc, &bytes.Buffer{})
	require.Nil(t, heap.Seed(mm.Frame(1)))

	// split the seed frame
	a, err := heap.Alloc(64)
	require.Nil(t, err)
	require.Equal(t, uint64(0x1000), a)
	b, err := heap.Alloc(128)
	require.Nil(t, err)
	require.Equal(t, uint64(0x1040), b)
	c, err := heap.Alloc(64)
	require.Nil(t, err)
	require.Equal(t, uint64(0x10c0), c)

	heap.Free(a, 64)
	heap.Free(b, 128)
	require.Equal(t, []Allocation{
		{Start: 0x1000, Size: 64},
		{Start: 0x1040, Size: 128},
		{Start: 0x1100, Size: 0x1000 - 0x100},
	}, heap.FreeRegions())

	// an exact match wins over the lower-addressed larger region
	got, err := heap.Alloc(128)
	require.Nil(t, err)
	require.Equal(t, b, got)

	// the smallest larger region is split
	got, err = heap.Alloc(32)
	require.Nil(t, err)
	require.Equal(t, a, got)
	require.Equal(t, []Allocation{
		{Start: 0x1020, Size: 32},
		{Start: 0x1100, Size: 0x1000 - 0x100},
	}, heap.FreeRegions())

	require.Equal(t, []Allocation{
		{Start: 0x1000, Size: 32},
		{Start: 0x1040, Size: 128},
		{Start: 0x10c0, Size: 64},
	}, heap.Allocated())
}

func TestRegionAllocatorPullsFrames(t *testing.T) {
	src := &frameSource{frames: []mm.Frame{7}}
	heap := NewRegionAllocator(src.alloc, &bytes.Buffer{})

	addr, err := heap.Alloc(mm.PageSize)
	require.Nil(t, err)
	require.Equal(t, mm.Frame(7).Address(), addr)
	require.Empty(t, heap.FreeRegions())

	_, err = heap.Alloc(16)
	require.Equal(t, errNoMoreFrames, err)

	_, err = heap.Alloc(0)
	require.Equal(t, errZeroSizeAlloc, err)

	_, err = heap.Alloc(mm.PageSize + 1)
	require.Equal(t, ErrAllocationTooLarge, err)
}

// Free silently leaks when the {address, size} pair does not match an
// outstanding allocation. The leak is only observable through LostFrees and
// the log.
func TestRegionAllocatorLostFrees(t *testing.T) {
	var buf bytes.Buffer
	heap := NewRegionAllocator((&frameSource{}).alloc, &buf)
	require.Nil(t, heap.Seed(mm.Frame(2)))

	addr, err := heap.Alloc(256)
	require.Nil(t, err)

	specs := []struct {
		addr, size uint64
	}{
		{addr, 128},      // size mismatch
		{addr + 16, 256}, // interior pointer
		{0xdead0, 16},    // never allocated
	}

	for i, spec := range specs {
		heap.Free(spec.addr, spec.size)
		require.Equal(t, uint64(i+1), heap.LostFrees())
	}

	require.Len(t, heap.Allocated(), 1)
	require.Equal(t, "[heap] ignoring free of unknown allocation 0x2000 (128 bytes)\n"+
		"[heap] ignoring free of unknown allocation 0x2010 (256 bytes)\n"+
		"[heap] ignoring free of unknown allocation 0xdead0 (16 bytes)\n", buf.String())

	// double free
	heap.Free(addr, 256)
	require.Equal(t, uint64(3), heap.LostFrees())
	heap.Free(addr, 256)
	require.Equal(t, uint64(4), heap.LostFrees())
}
