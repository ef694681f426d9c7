// Package hwio implements the low-level hardware accessors used by the AML
// interpreter and the power controller: direct physical memory and I/O port
// access for the kernel, and a recording implementation for dry runs.
package hwio

import (
	"unsafe"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/cpu"
)

var (
	portWriteByteFn  = cpu.PortWriteByte
	portWriteWordFn  = cpu.PortWriteWord
	portWriteDwordFn = cpu.PortWriteDword
	portReadByteFn   = cpu.PortReadByte
	portReadWordFn   = cpu.PortReadWord
	portReadDwordFn  = cpu.PortReadDword
)

// Memory accesses physical memory through the identity mapping set up by
// the firmware. It must only be used while that mapping is active.
type Memory struct{}

func ptr(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// ReadPhys copies len(buf) bytes starting at physical address addr into buf.
func (Memory) ReadPhys(addr uint64, buf []byte) *kernel.Error {
	if len(buf) != 0 {
		copy(buf, unsafe.Slice((*byte)(ptr(addr)), len(buf)))
	}
	return nil
}

// ReadMemory8 reads a uint8 value at addr.
func (Memory) ReadMemory8(addr uint64) uint8 { return *(*uint8)(ptr(addr)) }

// ReadMemory16 reads a uint16 value at addr.
func (Memory) ReadMemory16(addr uint64) uint16 { return *(*uint16)(ptr(addr)) }

// ReadMemory32 reads a uint32 value at addr.
func (Memory) ReadMemory32(addr uint64) uint32 { return *(*uint32)(ptr(addr)) }

// ReadMemory64 reads a uint64 value at addr.
func (Memory) ReadMemory64(addr uint64) uint64 { return *(*uint64)(ptr(addr)) }

// WriteMemory8 writes a uint8 value at addr.
func (Memory) WriteMemory8(addr uint64, v uint8) { *(*uint8)(ptr(addr)) = v }

// WriteMemory16 writes a uint16 value at addr.
func (Memory) WriteMemory16(addr uint64, v uint16) { *(*uint16)(ptr(addr)) = v }

// WriteMemory32 writes a uint32 value at addr.
func (Memory) WriteMemory32(addr uint64, v uint32) { *(*uint32)(ptr(addr)) = v }

// WriteMemory64 writes a uint64 value at addr.
func (Memory) WriteMemory64(addr uint64, v uint64) { *(*uint64)(ptr(addr)) = v }

// Ports accesses the x86 I/O port space.
type Ports struct{}

// ReadPort8 reads a uint8 value from port.
func (Ports) ReadPort8(port uint16) uint8 { return portReadByteFn(port) }

// ReadPort16 reads a uint16 value from port.
func (Ports) ReadPort16(port uint16) uint16 { return portReadWordFn(port) }

// ReadPort32 reads a uint32 value from port.
func (Ports) ReadPort32(port uint16) uint32 { return portReadDwordFn(port) }

// WritePort8 writes a uint8 value to port.
func (Ports) WritePort8(port uint16, v uint8) { portWriteByteFn(port, v) }

// WritePort16 writes a uint16 value to port.
func (Ports) WritePort16(port uint16, v uint16) { portWriteWordFn(port, v) }

// WritePort32 writes a uint32 value to port.
func (Ports) WritePort32(port uint16, v uint32) { portWriteDwordFn(port, v) }
