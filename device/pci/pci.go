// Package pci provides access to the PCI configuration space through the
// memory-mapped enhanced mechanism described by the MCFG table, falling back
// to the legacy 0xCF8/0xCFC port mechanism.
package pci

import "github.com/mwg2202/os/device/acpi/table"

// Address identifies a PCI function.
type Address struct {
	Segment  uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// Valid returns true if the device and function numbers are in range.
func (a Address) Valid() bool {
	return a.Device < 32 && a.Function < 8
}

// MemoryAccessor provides access to physical memory.
type MemoryAccessor interface {
	ReadMemory8(addr uint64) uint8
	ReadMemory16(addr uint64) uint16
	ReadMemory32(addr uint64) uint32
	WriteMemory8(addr uint64, v uint8)
	WriteMemory16(addr uint64, v uint16)
	WriteMemory32(addr uint64, v uint32)
}

// PortAccessor provides access to the I/O port space.
type PortAccessor interface {
	ReadPort8(port uint16) uint8
	ReadPort16(port uint16) uint16
	ReadPort32(port uint16) uint32
	WritePort8(port uint16, v uint8)
	WritePort16(port uint16, v uint16)
	WritePort32(port uint16, v uint32)
}

// ECAMRegion describes the enhanced configuration space of a bus range.
type ECAMRegion struct {
	Base     uint64
	Segment  uint16
	StartBus uint8
	EndBus   uint8
}

// ECAMLocator maps PCI function addresses to the physical address of their
// memory-mapped configuration space.
type ECAMLocator struct {
	regions []ECAMRegion
}

// NewECAMLocator returns a locator for the allocations listed in mcfg. A nil
// mcfg yields a locator without any regions.
func NewECAMLocator(mcfg *table.MCFG) *ECAMLocator {
	loc := &ECAMLocator{}
	if mcfg == nil {
		return loc
	}

	for _, alloc := range mcfg.Allocations {
		loc.regions = append(loc.regions, ECAMRegion{
			Base:     alloc.BaseAddress,
			Segment:  alloc.Segment,
			StartBus: alloc.StartBus,
			EndBus:   alloc.EndBus,
		})
	}

	return loc
}

// Regions returns the regions known to the locator.
func (l *ECAMLocator) Regions() []ECAMRegion {
	return l.regions
}

// Locate returns the physical address of the 4K configuration space of the
// function at addr.
func (l *ECAMLocator) Locate(addr Address) (uint64, bool) {
	if !addr.Valid() {
		return 0, false
	}

	for _, r := range l.regions {
		if r.Segment != addr.Segment || addr.Bus < r.StartBus || addr.Bus > r.EndBus {
			continue
		}

		// the MCFG base address maps bus 0 even when the range starts above it
		return r.Base +
			uint64(addr.Bus)<<20 +
			uint64(addr.Device)<<15 +
			uint64(addr.Function)<<12, true
	}

	return 0, false
}
