// Package heap provides a variable-size region allocator backed by physical
// frames.
package heap

import (
	"io"
	"sort"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/mwg2202/os/kernel/sync"
)

var (
	// ErrAllocationTooLarge is returned when a request does not fit in a
	// single frame.
	ErrAllocationTooLarge = &kernel.Error{Module: "heap", Message: "allocation size exceeds the frame size"}

	errZeroSizeAlloc = &kernel.Error{Module: "heap", Message: "zero-sized allocation"}
)

// Allocation describes a byte range handed out by a RegionAllocator.
type Allocation struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the allocation.
func (a Allocation) End() uint64 {
	return a.Start + a.Size
}

// RegionAllocator serves byte-sized requests from a pool of free regions.
// Requests are matched against an exactly-sized free region first; otherwise
// the smallest larger region is split into an allocated prefix and a free
// remainder. When the pool cannot satisfy a request a new frame is pulled from
// the frame allocator.
//
// Free only recognizes the exact {address, size} pair returned by Alloc. Any
// other call leaks: it is logged and counted by LostFrees but otherwise
// ignored. Freed regions are not coalesced.
type RegionAllocator struct {
	mutex sync.Spinlock

	allocFrameFn mm.FrameAllocatorFn

	// both lists are kept sorted by start address
	allocated []Allocation
	free      []Allocation

	lostFrees uint64
	log       io.Writer
}

// NewRegionAllocator returns an empty allocator that obtains new frames via
// allocFrameFn and logs to w.
func NewRegionAllocator(allocFrameFn mm.FrameAllocatorFn, w io.Writer) *RegionAllocator {
	return &RegionAllocator{
		allocFrameFn: allocFrameFn,
		log:          kfmt.ModuleWriter(w, "heap"),
	}
}

// Seed adds frame to the free pool. Its signature matches pmm.BootstrapFn so
// the heap can be seeded with the first frame reclaimed by the frame
// allocator.
func (a *RegionAllocator) Seed(frame mm.Frame) *kernel.Error {
	a.mutex.Acquire()
	a.free = insertSorted(a.free, Allocation{Start: frame.Address(), Size: mm.PageSize})
	a.mutex.Release()
	return nil
}

// Alloc reserves size bytes and returns the start address of the region.
func (a *RegionAllocator) Alloc(size uint64) (uint64, *kernel.Error) {
	switch {
	case size == 0:
		return 0, errZeroSizeAlloc
	case size > mm.PageSize:
		return 0, ErrAllocationTooLarge
	}

	a.mutex.Acquire()
	defer a.mutex.Release()

	index := a.bestFit(size)
	if index == -1 {
		frame, err := a.allocFrameFn()
		if err != nil {
			return 0, err
		}

		a.free = insertSorted(a.free, Allocation{Start: frame.Address(), Size: mm.PageSize})
		if index = a.bestFit(size); index == -1 {
			return 0, ErrAllocationTooLarge
		}
	}

	region := a.free[index]
	a.free = append(a.free[:index], a.free[index+1:]...)
	if region.Size > size {
		a.free = insertSorted(a.free, Allocation{Start: region.Start + size, Size: region.Size - size})
	}

	a.allocated = insertSorted(a.allocated, Allocation{Start: region.Start, Size: size})
	return region.Start, nil
}

// Free returns the region starting at addr to the free pool if it matches an
// outstanding allocation of exactly size bytes.
func (a *RegionAllocator) Free(addr, size uint64) {
	a.mutex.Acquire()
	defer a.mutex.Release()

	for i, alloc := range a.allocated {
		if alloc.Start == addr && alloc.Size == size {
			a.allocated = append(a.allocated[:i], a.allocated[i+1:]...)
			a.free = insertSorted(a.free, alloc)
			return
		}
	}

	a.lostFrees++
	kfmt.Fprintf(a.log, "ignoring free of unknown allocation 0x%x (%d bytes)\n", addr, size)
}

// LostFrees returns the number of Free calls that did not match an
// allocation.
func (a *RegionAllocator) LostFrees() uint64 {
	a.mutex.Acquire()
	defer a.mutex.Release()
	return a.lostFrees
}

// Allocated returns a copy of the outstanding allocations.
func (a *RegionAllocator) Allocated() []Allocation {
	a.mutex.Acquire()
	defer a.mutex.Release()
	return append([]Allocation(nil), a.allocated...)
}

// FreeRegions returns a copy of the free pool.
func (a *RegionAllocator) FreeRegions() []Allocation {
	a.mutex.Acquire()
	defer a.mutex.Release()
	return append([]Allocation(nil), a.free...)
}

// bestFit returns the index of an exactly-sized free region or, failing that,
// the smallest free region larger than size. It returns -1 if no region fits.
func (a *RegionAllocator) bestFit(size uint64) int {
	best := -1
	for i, region := range a.free {
		switch {
		case region.Size == size:
			return i
		case region.Size > size && (best == -1 || region.Size < a.free[best].Size):
			best = i
		}
	}

	return best
}

func insertSorted(list []Allocation, alloc Allocation) []Allocation {
	index := sort.Search(len(list), func(i int) bool { return list[i].Start >= alloc.Start })
	list = append(list, Allocation{})
	copy(list[index+1:], list[index:])
	list[index] = alloc
	return list
}
