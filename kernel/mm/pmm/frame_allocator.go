package pmm

import (
	"io"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/mwg2202/os/kernel/sync"
)

var (
	// ErrFrameExhausted is returned by AllocFrame when every reclaimed
	// frame has been handed out.
	ErrFrameExhausted = &kernel.Error{Module: "pmm", Message: "out of physical frames"}

	errBootstrapMissing = &kernel.Error{Module: "pmm", Message: "reclaim called before a bootstrap hook was installed"}
)

// BootstrapFn receives the first frame reclaimed by a FrameAllocator. The
// frame is used to back the storage of the allocator's consumers (the kernel
// heap) and is never returned by AllocFrame.
type BootstrapFn func(mm.Frame) *kernel.Error

type frameEntry struct {
	frame     mm.Frame
	allocated bool
}

// FrameAllocator carves free extents into 4K frames and hands them out one at
// a time.
//
// The first frame ever reclaimed is passed to the bootstrap hook. This makes
// the heap usable before the allocator's own bookkeeping grows, so the hook
// must be installed before the first call to Reclaim.
//
// Frames cannot be released once allocated.
type FrameAllocator struct {
	mutex sync.Spinlock

	bootstrapFn  BootstrapFn
	bootstrapped bool

	frames     []frameEntry
	allocCount uint64

	log io.Writer
}

// NewFrameAllocator returns an empty allocator that logs to w. A nil w sends
// output to the active kfmt sink.
func NewFrameAllocator(bootstrapFn BootstrapFn, w io.Writer) *FrameAllocator {
	return &FrameAllocator{
		bootstrapFn: bootstrapFn,
		log:         kfmt.ModuleWriter(w, "pmm"),
	}
}

// SetBootstrap installs the hook that consumes the first reclaimed frame.
func (alloc *FrameAllocator) SetBootstrap(fn BootstrapFn) {
	alloc.mutex.Acquire()
	alloc.bootstrapFn = fn
	alloc.mutex.Release()
}

// Reclaim appends every frame contained in ext to the free pool. Extent
// boundaries that do not fall on a page boundary are rounded inwards.
func (alloc *FrameAllocator) Reclaim(ext FreeExtent) *kernel.Error {
	alloc.mutex.Acquire()
	defer alloc.mutex.Release()

	if !alloc.bootstrapped && alloc.bootstrapFn == nil {
		return errBootstrapMissing
	}

	startFrame := mm.FrameFromAddress(ext.Base + mm.PageSize - 1)
	endFrame := mm.FrameFromAddress(ext.End())
	if startFrame >= endFrame {
		return nil
	}

	if !alloc.bootstrapped {
		if err := alloc.bootstrapFn(startFrame); err != nil {
			return err
		}
		alloc.bootstrapped = true
		kfmt.Fprintf(alloc.log, "bootstrap frame: 0x%x\n", startFrame.Address())
		startFrame++
	}

	for frame := startFrame; frame < endFrame; frame++ {
		alloc.frames = append(alloc.frames, frameEntry{frame: frame})
	}

	return nil
}

// AllocFrame reserves the lowest-indexed free frame in reclaim order.
func (alloc *FrameAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	alloc.mutex.Acquire()
	defer alloc.mutex.Release()

	for i := range alloc.frames {
		if alloc.frames[i].allocated {
			continue
		}

		alloc.frames[i].allocated = true
		alloc.allocCount++
		return alloc.frames[i].frame, nil
	}

	return mm.InvalidFrame, ErrFrameExhausted
}

// FrameCount returns the number of frames tracked by the allocator, not
// counting the bootstrap frame, and how many of them have been allocated.
func (alloc *FrameAllocator) FrameCount() (total, allocated uint64) {
	alloc.mutex.Acquire()
	defer alloc.mutex.Release()

	return uint64(len(alloc.frames)), alloc.allocCount
}
