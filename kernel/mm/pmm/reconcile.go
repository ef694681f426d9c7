package pmm

import (
	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/mwg2202/os/kernel/mm"
)

// FreeExtent describes a contiguous run of reusable physical memory. All
// extents are treated as conventional memory regardless of the type of the
// descriptors they were built from.
type FreeExtent struct {
	Base      uint64
	Pages     uint64
	Attribute efi.MemoryAttribute
}

// End returns the first physical address past the end of the extent.
func (e FreeExtent) End() uint64 {
	return e.Base + e.Pages*mm.PageSize
}

// Reconcile scans the firmware memory map and coalesces every reusable region
// into a list of free extents. A descriptor is merged into the previously
// emitted extent when it starts exactly where that extent ends and both carry
// the same attribute mask. Non-reusable descriptors are dropped.
//
// The output keeps the order of the input descriptors.
func Reconcile(descs []efi.MemoryDescriptor) []FreeExtent {
	var extents []FreeExtent

	efi.VisitMemRegions(descs, func(desc *efi.MemoryDescriptor) bool {
		if desc.Type.Reusable() {
			extents = appendExtent(extents, desc.PhysStart, desc.Pages, desc.Attribute)
		}
		return true
	})

	return extents
}

// ReconcileExtents runs the merge pass of Reconcile over a list of extents.
// Applying it to the output of Reconcile returns an identical list.
func ReconcileExtents(in []FreeExtent) []FreeExtent {
	var extents []FreeExtent
	for _, ext := range in {
		extents = appendExtent(extents, ext.Base, ext.Pages, ext.Attribute)
	}

	return extents
}

func appendExtent(extents []FreeExtent, base, pages uint64, attr efi.MemoryAttribute) []FreeExtent {
	if last := len(extents) - 1; last >= 0 {
		tail := &extents[last]
		if tail.End() == base && tail.Attribute == attr {
			tail.Pages += pages
			return extents
		}
	}

	return append(extents, FreeExtent{Base: base, Pages: pages, Attribute: attr})
}
