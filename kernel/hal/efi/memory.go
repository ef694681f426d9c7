// Package efi decodes the data structures handed over by the UEFI firmware:
// the memory map, the configuration table and the image load options.
package efi

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// PageSize is the size of an EFI page in bytes.
const PageSize = 4096

// minDescriptorSize is the size of the EFI_MEMORY_DESCRIPTOR fields defined
// by the UEFI specification. Firmware may report a larger stride.
const minDescriptorSize = 40

var (
	errDescriptorSizeTooSmall = &kernel.Error{Module: "efi", Message: "memory descriptor size is smaller than the EFI_MEMORY_DESCRIPTOR layout"}
	errTruncatedMemoryMap     = &kernel.Error{Module: "efi", Message: "memory map size is not a multiple of the descriptor size"}
)

// MemoryType defines the type of a MemoryDescriptor.
type MemoryType uint32

// The list of memory types defined by the UEFI specification.
const (
	MemReserved MemoryType = iota
	MemLoaderCode
	MemLoaderData
	MemBootServicesCode
	MemBootServicesData
	MemRuntimeServicesCode
	MemRuntimeServicesData
	MemConventional
	MemUnusable
	MemACPIReclaim
	MemACPINonVolatile
	MemMMIO
	MemMMIOPortSpace
	MemPalCode
	MemPersistent

	// NumMemoryTypes is the number of known memory types. Values equal to
	// or above it are treated as reserved.
	NumMemoryTypes
)

// String implements fmt.Stringer for MemoryType.
func (t MemoryType) String() string {
	switch t {
	case MemReserved:
		return "reserved"
	case MemLoaderCode:
		return "loader code"
	case MemLoaderData:
		return "loader data"
	case MemBootServicesCode:
		return "boot services code"
	case MemBootServicesData:
		return "boot services data"
	case MemRuntimeServicesCode:
		return "runtime services code"
	case MemRuntimeServicesData:
		return "runtime services data"
	case MemConventional:
		return "conventional"
	case MemUnusable:
		return "unusable"
	case MemACPIReclaim:
		return "ACPI (reclaimable)"
	case MemACPINonVolatile:
		return "ACPI NVS"
	case MemMMIO:
		return "MMIO"
	case MemMMIOPortSpace:
		return "MMIO port space"
	case MemPalCode:
		return "PAL code"
	case MemPersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Reusable returns true if memory of this type can be handed to the kernel
// allocators once boot services have been exited.
func (t MemoryType) Reusable() bool {
	return t == MemConventional || t == MemBootServicesCode || t == MemBootServicesData
}

// MemoryAttribute is a bitmask describing the capabilities of a memory
// region.
type MemoryAttribute uint64

// The list of memory attributes defined by the UEFI specification.
const (
	AttrUncacheable     MemoryAttribute = 0x1
	AttrWriteCombining  MemoryAttribute = 0x2
	AttrWriteThrough    MemoryAttribute = 0x4
	AttrWriteBack       MemoryAttribute = 0x8
	AttrUncacheableExp  MemoryAttribute = 0x10
	AttrWriteProtect    MemoryAttribute = 0x1000
	AttrReadProtect     MemoryAttribute = 0x2000
	AttrExecuteProtect  MemoryAttribute = 0x4000
	AttrNonVolatile     MemoryAttribute = 0x8000
	AttrMoreReliable    MemoryAttribute = 0x10000
	AttrReadOnly        MemoryAttribute = 0x20000
	AttrSpecificPurpose MemoryAttribute = 0x40000
	AttrCPUCrypto       MemoryAttribute = 0x80000
	AttrRuntime         MemoryAttribute = 1 << 63
)

// MemoryDescriptor describes a contiguous physical memory region reported by
// the firmware.
type MemoryDescriptor struct {
	Type      MemoryType
	PhysStart uint64

	// VirtStart is only meaningful after SetVirtualAddressMap.
	VirtStart uint64
	Pages     uint64
	Attribute MemoryAttribute
}

// PhysEnd returns the first physical address past the end of the region.
func (d *MemoryDescriptor) PhysEnd() uint64 {
	return d.PhysStart + d.Pages*PageSize
}

// Size returns the region size in bytes.
func (d *MemoryDescriptor) Size() uint64 {
	return d.Pages * PageSize
}

// DecodeMemoryMap decodes the raw buffer filled in by GetMemoryMap into a
// list of memory descriptors. The descSize argument is the descriptor stride
// reported by the firmware; any bytes past the standard fields are ignored.
// Unknown memory types are mapped to MemReserved.
func DecodeMemoryMap(buf []byte, descSize uint64) ([]MemoryDescriptor, *kernel.Error) {
	if descSize < minDescriptorSize {
		return nil, errDescriptorSizeTooSmall
	}

	if uint64(len(buf))%descSize != 0 {
		return nil, errTruncatedMemoryMap
	}

	descs := make([]MemoryDescriptor, 0, uint64(len(buf))/descSize)
	for offset := uint64(0); offset < uint64(len(buf)); offset += descSize {
		rec := buf[offset : offset+descSize]

		// bytes 4-7 are padding to align PhysStart
		desc := MemoryDescriptor{
			Type:      MemoryType(binary.LittleEndian.Uint32(rec[0:])),
			PhysStart: binary.LittleEndian.Uint64(rec[8:]),
			VirtStart: binary.LittleEndian.Uint64(rec[16:]),
			Pages:     binary.LittleEndian.Uint64(rec[24:]),
			Attribute: MemoryAttribute(binary.LittleEndian.Uint64(rec[32:])),
		}

		if desc.Type >= NumMemoryTypes {
			desc.Type = MemReserved
		}

		descs = append(descs, desc)
	}

	return descs, nil
}

// EncodeMemoryMap is the inverse of DecodeMemoryMap. It is used by tests and
// by the host tooling to produce memory map dumps.
func EncodeMemoryMap(descs []MemoryDescriptor, descSize uint64) []byte {
	if descSize < minDescriptorSize {
		descSize = minDescriptorSize
	}

	buf := make([]byte, uint64(len(descs))*descSize)
	for i, desc := range descs {
		rec := buf[uint64(i)*descSize:]
		binary.LittleEndian.PutUint32(rec[0:], uint32(desc.Type))
		binary.LittleEndian.PutUint64(rec[8:], desc.PhysStart)
		binary.LittleEndian.PutUint64(rec[16:], desc.VirtStart)
		binary.LittleEndian.PutUint64(rec[24:], desc.Pages)
		binary.LittleEndian.PutUint64(rec[32:], uint64(desc.Attribute))
	}

	return buf
}

// MemRegionVisitor is invoked by VisitMemRegions for each descriptor. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(*MemoryDescriptor) bool

// VisitMemRegions invokes visitor for each descriptor in descs.
func VisitMemRegions(descs []MemoryDescriptor, visitor MemRegionVisitor) {
	for i := range descs {
		if !visitor(&descs[i]) {
			return
		}
	}
}

// TypeStats summarizes the descriptors of a single memory type.
type TypeStats struct {
	Type  MemoryType
	Count int
	Pages uint64
}

// CountByType returns per-type descriptor counts for every known memory type,
// in type order. Unknown types are counted as MemReserved.
func CountByType(descs []MemoryDescriptor) []TypeStats {
	stats := make([]TypeStats, NumMemoryTypes)
	for i := range stats {
		stats[i].Type = MemoryType(i)
	}

	VisitMemRegions(descs, func(desc *MemoryDescriptor) bool {
		typ := desc.Type
		if typ >= NumMemoryTypes {
			typ = MemReserved
		}

		stats[typ].Count++
		stats[typ].Pages += desc.Pages
		return true
	})

	return stats
}
