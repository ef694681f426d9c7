package pmm

import (
	"bytes"
	"testing"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/stretchr/testify/require"
)

func TestFrameAllocatorExhaustion(t *testing.T) {
	var (
		buf            bytes.Buffer
		bootstrapFrame = mm.InvalidFrame
	)

	alloc := NewFrameAllocator(func(f mm.Frame) *kernel.Error {
		bootstrapFrame = f
		return nil
	}, &buf)

	const numFrames = 8
	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x100000, Pages: numFrames}))
	require.Equal(t, mm.FrameFromAddress(0x100000), bootstrapFrame)
	require.Equal(t, "[pmm] bootstrap frame: 0x100000\n", buf.String())

	for i := 0; i < numFrames-1; i++ {
		frame, err := alloc.AllocFrame()
		require.Nil(t, err)
		require.Equal(t, mm.FrameFromAddress(0x101000)+mm.Frame(i), frame)
		require.True(t, mm.PageAligned(frame.Address()))
	}

	frame, err := alloc.AllocFrame()
	require.Equal(t, ErrFrameExhausted, err)
	require.Equal(t, mm.InvalidFrame, frame)

	total, allocated := alloc.FrameCount()
	require.Equal(t, uint64(numFrames-1), total)
	require.Equal(t, uint64(numFrames-1), allocated)
}

func TestFrameAllocatorBootstrapOnlyOnce(t *testing.T) {
	calls := 0
	alloc := NewFrameAllocator(func(mm.Frame) *kernel.Error {
		calls++
		return nil
	}, &bytes.Buffer{})

	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x1000, Pages: 2}))
	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x8000, Pages: 2}))
	require.Equal(t, 1, calls)

	var got []mm.Frame
	for {
		frame, err := alloc.AllocFrame()
		if err != nil {
			break
		}
		got = append(got, frame)
	}
	require.Equal(t, []mm.Frame{2, 8, 9}, got)
}

func TestFrameAllocatorBootstrapOrdering(t *testing.T) {
	alloc := NewFrameAllocator(nil, &bytes.Buffer{})
	require.Equal(t, errBootstrapMissing, alloc.Reclaim(FreeExtent{Base: 0x1000, Pages: 4}))

	total, _ := alloc.FrameCount()
	require.Zero(t, total)

	expErr := &kernel.Error{Module: "test", Message: "heap seeding failed"}
	alloc.SetBootstrap(func(mm.Frame) *kernel.Error { return expErr })
	require.Equal(t, expErr, alloc.Reclaim(FreeExtent{Base: 0x1000, Pages: 4}))

	alloc.SetBootstrap(func(mm.Frame) *kernel.Error { return nil })
	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x1000, Pages: 4}))
	total, _ = alloc.FrameCount()
	require.Equal(t, uint64(3), total)
}

func TestFrameAllocatorUnalignedExtent(t *testing.T) {
	alloc := NewFrameAllocator(func(mm.Frame) *kernel.Error { return nil }, &bytes.Buffer{})

	// [0x1800, 0x4800) only fully contains the frames at 0x2000 and 0x3000
	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x1800, Pages: 3}))
	total, _ := alloc.FrameCount()
	require.Equal(t, uint64(1), total)

	// extents that do not contain a full frame are ignored
	require.Nil(t, alloc.Reclaim(FreeExtent{Base: 0x10800, Pages: 0}))
	total, _ = alloc.FrameCount()
	require.Equal(t, uint64(1), total)
}

func TestInit(t *testing.T) {
	descs := []efi.MemoryDescriptor{
		{Type: efi.MemBootServicesData, PhysStart: 0x0, Pages: 2, Attribute: efi.AttrWriteBack},
		{Type: efi.MemConventional, PhysStart: 0x2000, Pages: 2, Attribute: efi.AttrWriteBack},
		{Type: efi.MemReserved, PhysStart: 0x4000, Pages: 4},
		{Type: efi.MemConventional, PhysStart: 0x8000, Pages: 1, Attribute: efi.AttrWriteBack},
	}

	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		alloc, err := Init(descs, func(mm.Frame) *kernel.Error { return nil }, true, &buf)
		require.Nil(t, err)

		total, _ := alloc.FrameCount()
		require.Equal(t, uint64(4), total)

		frame, err := alloc.AllocFrame()
		require.Nil(t, err)
		require.Equal(t, mm.Frame(1), frame)

		out := buf.String()
		require.Contains(t, out, "[pmm] system memory map:\n")
		require.Contains(t, out, "[pmm] boot services data: 1 regions, 2 pages\n")
		require.Contains(t, out, "[pmm] available memory: 20Kb\n")
		require.Contains(t, out, "[pmm] reclaimed 4 frames from 2 extents\n")
	})

	t.Run("OEM memory types", func(t *testing.T) {
		oem := append([]efi.MemoryDescriptor{{Type: efi.MemoryType(0x70000001), PhysStart: 0xf0000, Pages: 1}}, descs...)

		var buf bytes.Buffer
		_, err := Init(oem, func(mm.Frame) *kernel.Error { return nil }, true, &buf)
		require.Nil(t, err)
		require.Contains(t, buf.String(), "[pmm] reserved: 2 regions, 5 pages\n")
	})

	t.Run("missing bootstrap hook", func(t *testing.T) {
		_, err := Init(descs, nil, false, &bytes.Buffer{})
		require.Equal(t, errBootstrapMissing, err)
	})
}
