// Package pmm turns the firmware memory map into physical frames.
package pmm

import (
	"io"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/mwg2202/os/kernel/kfmt"
	"github.com/mwg2202/os/kernel/mm"
)

// Init reconciles the memory map and reclaims every free extent into a new
// FrameAllocator. When verbose is set, the memory map and the reconciled
// extents are printed to w.
func Init(descs []efi.MemoryDescriptor, bootstrapFn BootstrapFn, verbose bool, w io.Writer) (*FrameAllocator, *kernel.Error) {
	extents := Reconcile(descs)
	if verbose {
		printMemoryMap(kfmt.ModuleWriter(w, "pmm"), descs, extents)
	}

	alloc := NewFrameAllocator(bootstrapFn, w)
	for _, ext := range extents {
		if err := alloc.Reclaim(ext); err != nil {
			return nil, err
		}
	}

	total, _ := alloc.FrameCount()
	kfmt.Fprintf(alloc.log, "reclaimed %d frames from %d extents\n", total, len(extents))

	return alloc, nil
}

func printMemoryMap(w io.Writer, descs []efi.MemoryDescriptor, extents []FreeExtent) {
	kfmt.Fprintf(w, "system memory map:\n")
	efi.VisitMemRegions(descs, func(desc *efi.MemoryDescriptor) bool {
		kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], pages: %8d, type: %s\n", desc.PhysStart, desc.PhysEnd(), desc.Pages, desc.Type.String())
		return true
	})

	for _, stat := range efi.CountByType(descs) {
		if stat.Count == 0 {
			continue
		}
		kfmt.Fprintf(w, "%s: %d regions, %d pages\n", stat.Type.String(), stat.Count, stat.Pages)
	}

	var free mm.Size
	kfmt.Fprintf(w, "free extents:\n")
	for _, ext := range extents {
		kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], pages: %8d, attr: 0x%x\n", ext.Base, ext.End(), ext.Pages, uint64(ext.Attribute))
		free += mm.Size(ext.Pages * mm.PageSize)
	}
	kfmt.Fprintf(w, "available memory: %dKb\n", uint64(free/mm.Kb))
}
