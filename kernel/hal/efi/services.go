package efi

import "github.com/mwg2202/os/kernel"

// BootServices is the subset of the firmware services consumed by the boot
// core. The loader that still owns the firmware provides the implementation.
type BootServices interface {
	// MemoryMap returns the raw memory map buffer together with the
	// descriptor stride reported by GetMemoryMap.
	MemoryMap() (buf []byte, descSize uint64, err *kernel.Error)

	// ConfigurationTable returns the entries of the system table's
	// configuration table.
	ConfigurationTable() []ConfigTableEntry

	// LoadOptions returns the command line the image was started with.
	LoadOptions() string
}
