package aml

import "github.com/mwg2202/os/device/pci"

// MemoryHandler provides access to the physical address space for
// SystemMemory operation regions.
type MemoryHandler interface {
	ReadMemory8(addr uint64) uint8
	ReadMemory16(addr uint64) uint16
	ReadMemory32(addr uint64) uint32
	ReadMemory64(addr uint64) uint64
	WriteMemory8(addr uint64, v uint8)
	WriteMemory16(addr uint64, v uint16)
	WriteMemory32(addr uint64, v uint32)
	WriteMemory64(addr uint64, v uint64)
}

// PortHandler provides access to the I/O port space for SystemIO operation
// regions.
type PortHandler interface {
	ReadPort8(port uint16) uint8
	ReadPort16(port uint16) uint16
	ReadPort32(port uint16) uint32
	WritePort8(port uint16, v uint8)
	WritePort16(port uint16, v uint16)
	WritePort32(port uint16, v uint32)
}

// PCIHandler provides access to PCI configuration space for PCI_Config
// operation regions.
type PCIHandler interface {
	ReadPCI8(addr pci.Address, offset uint16) uint8
	ReadPCI16(addr pci.Address, offset uint16) uint16
	ReadPCI32(addr pci.Address, offset uint16) uint32
	WritePCI8(addr pci.Address, offset uint16, v uint8)
	WritePCI16(addr pci.Address, offset uint16, v uint16)
	WritePCI32(addr pci.Address, offset uint16, v uint32)
}

// Handler is implemented by types that can service every access class the
// interpreter generates.
type Handler interface {
	MemoryHandler
	PortHandler
	PCIHandler
}

// Handlers composes one implementation per access class into a Handler.
type Handlers struct {
	MemoryHandler
	PortHandler
	PCIHandler
}
