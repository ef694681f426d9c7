package efi

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// configTableEntrySize is the size of an EFI_CONFIGURATION_TABLE entry: a
// 16-byte GUID followed by a 64-bit pointer.
const configTableEntrySize = 24

var errTruncatedConfigTable = &kernel.Error{Module: "efi", Message: "configuration table is shorter than its declared entry count"}

// GUID is an EFI_GUID in its in-memory (mixed-endian) representation.
type GUID [16]byte

// NewGUID builds a GUID from its canonical field representation.
func NewGUID(data1 uint32, data2, data3 uint16, data4 [8]byte) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:], data1)
	binary.LittleEndian.PutUint16(g[4:], data2)
	binary.LittleEndian.PutUint16(g[6:], data3)
	copy(g[8:], data4[:])
	return g
}

var (
	// ACPITableGUID identifies the ACPI 1.0 RSDP in the configuration
	// table.
	ACPITableGUID = NewGUID(0xeb9d2d30, 0x2d88, 0x11d3, [8]byte{0x9a, 0x16, 0x00, 0x90, 0x27, 0x3f, 0xc1, 0x4d})

	// ACPI20TableGUID identifies the ACPI 2.0+ RSDP in the configuration
	// table.
	ACPI20TableGUID = NewGUID(0x8868e871, 0xe4f1, 0x11d3, [8]byte{0xbc, 0x22, 0x00, 0x80, 0xc7, 0x3c, 0x88, 0x81})
)

// ConfigTableEntry associates a vendor GUID with the physical address of a
// firmware-provided table.
type ConfigTableEntry struct {
	VendorGUID GUID
	Table      uint64
}

// DecodeConfigTable decodes count EFI_CONFIGURATION_TABLE entries from buf.
func DecodeConfigTable(buf []byte, count int) ([]ConfigTableEntry, *kernel.Error) {
	if count < 0 || len(buf) < count*configTableEntrySize {
		return nil, errTruncatedConfigTable
	}

	entries := make([]ConfigTableEntry, count)
	for i := range entries {
		rec := buf[i*configTableEntrySize:]
		copy(entries[i].VendorGUID[:], rec[:16])
		entries[i].Table = binary.LittleEndian.Uint64(rec[16:])
	}

	return entries, nil
}

// FindTable returns the address of the first table whose vendor GUID matches
// guid.
func FindTable(entries []ConfigTableEntry, guid GUID) (uint64, bool) {
	for _, entry := range entries {
		if entry.VendorGUID == guid {
			return entry.Table, true
		}
	}

	return 0, false
}
