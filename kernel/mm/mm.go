// Package mm defines the physical memory primitives shared by the frame
// allocator and its consumers.
package mm

import (
	"math"

	"github.com/mwg2202/os/kernel"
)

const (
	// PageShift is equal to log2(PageSize). It converts a physical address
	// to a frame index (shift right) and vice-versa.
	PageShift = 12

	// PageSize defines the size of a physical frame in bytes.
	PageSize = uint64(1 << PageShift)
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by frame allocators when they fail to
	// reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte of this Frame.
func (f Frame) Address() uint64 {
	return uint64(f) << PageShift
}

// FrameFromAddress returns the Frame that contains physAddr. Unaligned
// addresses are rounded down.
func FrameFromAddress(physAddr uint64) Frame {
	return Frame(physAddr >> PageShift)
}

// PageAligned returns true if physAddr lies on a frame boundary.
func PageAligned(physAddr uint64) bool {
	return physAddr&(PageSize-1) == 0
}

// FrameAllocatorFn is a function that can allocate physical frames.
type FrameAllocatorFn func() (Frame, *kernel.Error)
