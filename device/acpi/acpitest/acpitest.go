// Package acpitest builds synthetic ACPI platforms in a fake physical
// address space for tests.
package acpitest

import (
	"encoding/binary"
	"sort"

	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
)

var errUnmappedAddress = &kernel.Error{Module: "acpitest", Message: "access to unmapped physical address"}

type region struct {
	base uint64
	data []byte
}

// PhysImage is a sparse physical address space made of byte regions.
type PhysImage struct {
	regions []region
}

// Map places data at physical address addr. Regions must not overlap.
func (m *PhysImage) Map(addr uint64, data []byte) {
	m.regions = append(m.regions, region{base: addr, data: data})
	sort.Slice(m.regions, func(i, j int) bool { return m.regions[i].base < m.regions[j].base })
}

// ReadPhys copies len(buf) bytes starting at addr into buf. The whole range
// must lie inside a single mapped region.
func (m *PhysImage) ReadPhys(addr uint64, buf []byte) *kernel.Error {
	data := m.lookup(addr, len(buf))
	if data == nil {
		return errUnmappedAddress
	}

	copy(buf, data)
	return nil
}

// Bytes returns a writable view of size bytes at addr or nil if the range is
// not mapped.
func (m *PhysImage) Bytes(addr uint64, size int) []byte {
	return m.lookup(addr, size)
}

// Corrupt flips all bits of the byte at addr.
func (m *PhysImage) Corrupt(addr uint64) {
	if b := m.lookup(addr, 1); b != nil {
		b[0] ^= 0xff
	}
}

func (m *PhysImage) lookup(addr uint64, size int) []byte {
	for _, r := range m.regions {
		if addr >= r.base && addr+uint64(size) <= r.base+uint64(len(r.data)) {
			off := addr - r.base
			return r.data[off : off+uint64(size)]
		}
	}

	return nil
}

// Addresses used by Build.
const (
	BIOSAreaBase = 0xe0000
	RSDPAddr     = 0xf5a40
	TableBase    = 0x7fe0000
	tableStride  = 0x1000
)

// Config describes the platform generated by Build.
type Config struct {
	// Revision is the RSDP revision. Revision 0 platforms only provide an
	// RSDT; any other value also provides an XSDT.
	Revision uint8

	// DSDT and SSDTs hold the AML payload of the definition blocks. The
	// DSDT is omitted from the FADT when nil.
	DSDT  []byte
	SSDTs [][]byte

	PM1aControl, PM1bControl uint32

	// MADT holds the MADT payload following the header. The table is
	// omitted when nil.
	MADT []byte

	// MCFG lists the allocations of the MCFG table which is omitted when
	// empty.
	MCFG []table.MCFGAllocation
}

// Platform is the result of Build.
type Platform struct {
	Mem *PhysImage

	// RSDP is the physical address of the root system descriptor pointer.
	RSDP uint64

	// Tables maps each table signature to the address of the last table
	// with that signature.
	Tables map[string]uint64
}

// Header returns a SDT header with the supplied signature and a fixed set of
// OEM fields.
func Header(sig string, rev uint8) table.SDTHeader {
	h := table.SDTHeader{
		Revision:        rev,
		OEMRevision:     1,
		CreatorID:       0x4c544e49,
		CreatorRevision: 0x20200925,
	}
	copy(h.Signature[:], sig)
	copy(h.OEMID[:], "GOPHER")
	copy(h.OEMTableID[:], "TESTPLAT")
	return h
}

// Build lays out a complete set of ACPI tables in a fresh PhysImage. The RSDP
// is placed inside the BIOS read-only area and the tables at TableBase.
func Build(cfg Config) *Platform {
	p := &Platform{
		Mem:    &PhysImage{},
		Tables: make(map[string]uint64),
	}

	next := uint64(TableBase)
	place := func(data []byte) uint64 {
		addr := next
		p.Mem.Map(addr, data)
		p.Tables[string(data[0:4])] = addr
		next += tableStride
		return addr
	}

	defBlockRev := uint8(1)
	if cfg.Revision != 0 {
		defBlockRev = 2
	}

	var dsdtAddr uint64
	if cfg.DSDT != nil {
		h := Header(table.SignatureDSDT, defBlockRev)
		dsdtAddr = place(h.Encode(cfg.DSDT))
	}

	fadt := &table.FADT{
		SDTHeader:        Header(table.SignatureFADT, 1),
		DSDT:             uint32(dsdtAddr),
		PM1aControlBlock: cfg.PM1aControl,
		PM1bControlBlock: cfg.PM1bControl,
	}
	if cfg.Revision != 0 {
		fadt.Revision = 4
		fadt.XDSDT = dsdtAddr
	}

	entries := []uint64{place(fadt.Encode())}
	for _, ssdt := range cfg.SSDTs {
		h := Header(table.SignatureSSDT, defBlockRev)
		entries = append(entries, place(h.Encode(ssdt)))
	}
	if cfg.MADT != nil {
		h := Header(table.SignatureMADT, 3)
		entries = append(entries, place(h.Encode(cfg.MADT)))
	}
	if len(cfg.MCFG) != 0 {
		mcfg := &table.MCFG{SDTHeader: Header(table.SignatureMCFG, 1), Allocations: cfg.MCFG}
		entries = append(entries, place(mcfg.Encode()))
	}

	rsdp := &table.RSDP{
		Signature: table.RSDPSignature,
		Revision:  cfg.Revision,
		RSDTAddr:  uint32(place(encodeRoot(table.SignatureRSDT, entries, 4))),
	}
	copy(rsdp.OEMID[:], "GOPHER")
	if cfg.Revision != 0 {
		rsdp.XSDTAddr = place(encodeRoot(table.SignatureXSDT, entries, 8))
	}

	// the RSDP lives inside a zeroed copy of the BIOS area so it can be
	// located by scanning
	bios := make([]byte, 0x20000)
	copy(bios[RSDPAddr-BIOSAreaBase:], rsdp.Encode())
	p.Mem.Map(BIOSAreaBase, bios)
	p.RSDP = RSDPAddr

	return p
}

func encodeRoot(sig string, entries []uint64, entrySize int) []byte {
	payload := make([]byte, len(entries)*entrySize)
	for i, addr := range entries {
		switch entrySize {
		case 4:
			binary.LittleEndian.PutUint32(payload[i*4:], uint32(addr))
		default:
			binary.LittleEndian.PutUint64(payload[i*8:], addr)
		}
	}

	h := Header(sig, 1)
	return h.Encode(payload)
}
