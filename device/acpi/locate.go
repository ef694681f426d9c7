// Package acpi locates, validates and decodes the ACPI system description
// tables.
package acpi

import (
	"unicode/utf8"

	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/hal/efi"
)

var (
	// ErrRootPointerNotFound is returned when neither an ACPI 1.0 nor an
	// ACPI 2.0+ root pointer is available.
	ErrRootPointerNotFound = &kernel.Error{Module: "acpi", Message: "could not locate ACPI RSDP"}

	// ErrRSDPIncorrectSignature is returned when the root pointer does not
	// start with "RSD PTR ".
	ErrRSDPIncorrectSignature = &kernel.Error{Module: "acpi", Message: "RSDP signature mismatch"}

	// ErrRSDPInvalidOemID is returned when the root pointer OEM id is not
	// valid text.
	ErrRSDPInvalidOemID = &kernel.Error{Module: "acpi", Message: "RSDP OEM id is not valid text"}

	// ErrRSDPInvalidChecksum is returned when the root pointer bytes do
	// not sum to zero.
	ErrRSDPInvalidChecksum = &kernel.Error{Module: "acpi", Message: "RSDP checksum mismatch"}

	// ErrTableSignatureMismatch is returned when a table does not carry
	// the signature expected by its referrer.
	ErrTableSignatureMismatch = &kernel.Error{Module: "acpi", Message: "ACPI table signature mismatch"}

	// ErrTableChecksumInvalid is returned when the bytes of a table do not
	// sum to zero.
	ErrTableChecksumInvalid = &kernel.Error{Module: "acpi", Message: "detected checksum mismatch while parsing ACPI table header"}

	// ErrTableOemFieldInvalid is returned when the OEM id or OEM table id
	// of a table is not valid text.
	ErrTableOemFieldInvalid = &kernel.Error{Module: "acpi", Message: "ACPI table OEM fields are not valid text"}

	// ErrTableTruncated is returned when a table is shorter than its
	// header or its declared contents.
	ErrTableTruncated = &kernel.Error{Module: "acpi", Message: "ACPI table is truncated"}
)

const (
	// maxTableLength bounds the declared length of any table.
	maxTableLength = 16 * 1024 * 1024

	// maxRSDPLength bounds the declared length of an extended RSDP.
	maxRSDPLength = 4096
)

// PhysReader provides read access to physical memory.
type PhysReader interface {
	// ReadPhys copies len(buf) bytes starting at physical address addr
	// into buf.
	ReadPhys(addr uint64, buf []byte) *kernel.Error
}

// RootPointers holds the physical addresses of the candidate root system
// descriptor pointers. A zero address means the pointer is absent.
type RootPointers struct {
	V1 uint64
	V2 uint64
}

// Present returns true if at least one root pointer is available.
func (p RootPointers) Present() bool { return p.V1 != 0 || p.V2 != 0 }

// RootPointersFromConfigTable extracts the ACPI root pointers published in
// the EFI configuration table.
func RootPointersFromConfigTable(entries []efi.ConfigTableEntry) RootPointers {
	var ptrs RootPointers
	ptrs.V1, _ = efi.FindTable(entries, efi.ACPITableGUID)
	ptrs.V2, _ = efi.FindTable(entries, efi.ACPI20TableGUID)
	return ptrs
}

// Locate validates the root pointer and every table reachable from it. The
// ACPI 2.0+ root pointer is used when present and valid; otherwise Locate
// falls back to the ACPI 1.0 pointer.
func Locate(mem PhysReader, ptrs RootPointers) (*TableSet, *kernel.Error) {
	var (
		rsdp *table.RSDP
		err  *kernel.Error
	)

	var v2Err *kernel.Error
	switch {
	case ptrs.V2 != 0:
		if rsdp, err = readRSDP(mem, ptrs.V2); err != nil && ptrs.V1 != 0 {
			v2Err = err
			rsdp, err = readRSDP(mem, ptrs.V1)
		}
	case ptrs.V1 != 0:
		rsdp, err = readRSDP(mem, ptrs.V1)
	default:
		return nil, ErrRootPointerNotFound
	}

	if err != nil {
		return nil, err
	}

	ts := &TableSet{RSDP: rsdp, RejectedRSDP: v2Err}

	// RSDT uses 4-byte long pointers whereas the XSDT uses 8-byte long.
	rootAddr, rootSig, entrySize := uint64(rsdp.RSDTAddr), table.SignatureRSDT, 4
	if rsdp.Extended() && rsdp.XSDTAddr != 0 {
		rootAddr, rootSig, entrySize = rsdp.XSDTAddr, table.SignatureXSDT, 8
	}

	if ts.Root, err = readTable(mem, rootAddr, rootSig); err != nil {
		return nil, err
	}

	entries, err := table.DecodeEntries(ts.Root.Data, entrySize)
	if err != nil {
		return nil, ErrTableTruncated
	}

	for _, addr := range entries {
		tbl, err := readTable(mem, addr, "")
		if err != nil {
			return nil, err
		}

		if err = ts.add(tbl); err != nil {
			return nil, err
		}

		// The FADT allows us to lookup the DSDT table address
		if ts.FADT == nil || ts.DSDT != nil || tbl.Header.SignatureString() != table.SignatureFADT {
			continue
		}

		if dsdtAddr := ts.FADT.DSDTAddress(); dsdtAddr != 0 {
			if tbl, err = readTable(mem, dsdtAddr, table.SignatureDSDT); err != nil {
				return nil, err
			}

			if err = ts.add(tbl); err != nil {
				return nil, err
			}
		}
	}

	return ts, nil
}

// readRSDP reads and validates the root system descriptor pointer at addr.
func readRSDP(mem PhysReader, addr uint64) (*table.RSDP, *kernel.Error) {
	buf := make([]byte, table.ExtRSDPLength)
	if err := mem.ReadPhys(addr, buf[:table.RSDPLength]); err != nil {
		return nil, err
	}

	// the revision selects the layout
	if buf[15] != 0 {
		if err := mem.ReadPhys(addr, buf); err != nil {
			return nil, err
		}
	}

	rsdp, err := table.DecodeRSDP(buf)
	if err != nil {
		return nil, ErrTableTruncated
	}

	// the extended checksum covers the declared length
	if rsdp.Extended() && rsdp.Length > table.ExtRSDPLength && rsdp.Length <= maxRSDPLength {
		buf = make([]byte, rsdp.Length)
		if err = mem.ReadPhys(addr, buf); err != nil {
			return nil, err
		}
	}

	if err = validateRSDP(rsdp, buf); err != nil {
		return nil, err
	}

	return rsdp, nil
}

// validateRSDP checks the checksums of the encoded descriptor in buf followed
// by its signature and OEM id. The extended checksum covers the declared
// length of the descriptor, but never less than ExtRSDPLength bytes.
func validateRSDP(rsdp *table.RSDP, buf []byte) *kernel.Error {
	if table.Checksum(buf[:table.RSDPLength]) != 0 {
		return ErrRSDPInvalidChecksum
	}

	if rsdp.Extended() {
		extLen := uint32(table.ExtRSDPLength)
		if rsdp.Length > extLen && rsdp.Length <= maxRSDPLength {
			extLen = rsdp.Length
		}

		if uint32(len(buf)) < extLen || table.Checksum(buf[:extLen]) != 0 {
			return ErrRSDPInvalidChecksum
		}

		if rsdp.Length < table.ExtRSDPLength || rsdp.Length > maxRSDPLength {
			return ErrTableTruncated
		}
	}

	if rsdp.Signature != table.RSDPSignature {
		return ErrRSDPIncorrectSignature
	}

	if !validText(rsdp.OEMID[:]) {
		return ErrRSDPInvalidOemID
	}

	return nil
}

// readTable reads the table at addr and validates its header and checksum.
// If expSig is empty, any signature made of printable characters is accepted.
func readTable(mem PhysReader, addr uint64, expSig string) (*Table, *kernel.Error) {
	headerBuf := make([]byte, table.SDTHeaderLength)
	if err := mem.ReadPhys(addr, headerBuf); err != nil {
		return nil, err
	}

	header, _ := table.DecodeSDTHeader(headerBuf)
	if header.Length < table.SDTHeaderLength || header.Length > maxTableLength {
		return nil, ErrTableTruncated
	}

	data := make([]byte, header.Length)
	if err := mem.ReadPhys(addr, data); err != nil {
		return nil, err
	}

	tbl := &Table{Header: header, Addr: addr, Data: data}
	if err := validateTable(tbl, expSig); err != nil {
		return nil, err
	}

	return tbl, nil
}

// validateTable checks the signature, the OEM fields and the checksum of a
// table whose contents have been fully read.
func validateTable(tbl *Table, expSig string) *kernel.Error {
	sig := tbl.Header.SignatureString()
	switch {
	case expSig != "" && sig != expSig:
		return ErrTableSignatureMismatch
	case expSig == "" && !printable(tbl.Header.Signature[:]):
		return ErrTableSignatureMismatch
	}

	if !validText(tbl.Header.OEMID[:]) || !validText(tbl.Header.OEMTableID[:]) {
		return ErrTableOemFieldInvalid
	}

	if uint32(len(tbl.Data)) < tbl.Header.Length {
		return ErrTableTruncated
	}

	if table.Checksum(tbl.Data[:tbl.Header.Length]) != 0 {
		return ErrTableChecksumInvalid
	}

	return nil
}

// validText returns true if b holds UTF-8 text without control characters.
// NUL padding is accepted.
func validText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}

	for _, r := range string(b) {
		if r != 0 && r < ' ' {
			return false
		}
	}

	return true
}

func printable(b []byte) bool {
	for _, c := range b {
		if c < ' ' || c > '~' {
			return false
		}
	}

	return true
}
