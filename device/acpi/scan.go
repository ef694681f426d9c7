package acpi

import (
	"bytes"

	"github.com/mwg2202/os/device/acpi/table"
)

var (
	// On legacy BIOS systems the RSDP must be located in the physical
	// memory region 0xe0000 to 0xfffff.
	rsdpLocationLow  uint64 = 0xe0000
	rsdpLocationHi   uint64 = 0xfffff
	rsdpAlignment    uint64 = 16
	rsdpSignatureStr        = string(table.RSDPSignature[:])
)

// ScanBIOSArea looks for a root system descriptor pointer inside the legacy
// BIOS read-only area. It is used when the firmware does not publish the
// pointer in the EFI configuration table. The returned pointers are empty if
// no valid descriptor was found.
func ScanBIOSArea(mem PhysReader) RootPointers {
	area := make([]byte, rsdpLocationHi-rsdpLocationLow+1)
	if mem.ReadPhys(rsdpLocationLow, area) != nil {
		return RootPointers{}
	}

	// The RSDP should be aligned on a 16-byte boundary
	for offset := uint64(0); offset+table.RSDPLength <= uint64(len(area)); offset += rsdpAlignment {
		candidate := area[offset:]
		if !bytes.HasPrefix(candidate, []byte(rsdpSignatureStr)) {
			continue
		}

		rsdp, err := table.DecodeRSDP(candidate)
		if err != nil || validateRSDP(rsdp, candidate) != nil {
			continue
		}

		addr := rsdpLocationLow + offset
		if rsdp.Extended() {
			return RootPointers{V1: addr, V2: addr}
		}
		return RootPointers{V1: addr}
	}

	return RootPointers{}
}
