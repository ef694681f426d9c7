// Package table decodes the binary layout of the ACPI system description
// tables. Every decoder works on a byte slice holding a copy of the table and
// checks its length before touching any field.
package table

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// ErrTruncated is returned by the decoders when the supplied buffer is
// shorter than the structure being decoded.
var ErrTruncated = &kernel.Error{Module: "acpi_table", Message: "table data is truncated"}

// Resolver is implemented by objects that can look up an ACPI table by its
// signature. LookupTable returns nil if the table could not be found.
type Resolver interface {
	LookupTable(string) *SDTHeader
}

// Standard table signatures.
const (
	SignatureRSDT = "RSDT"
	SignatureXSDT = "XSDT"
	SignatureFADT = "FACP"
	SignatureDSDT = "DSDT"
	SignatureSSDT = "SSDT"
	SignatureMADT = "APIC"
	SignatureMCFG = "MCFG"
)

// SDTHeaderLength is the size of the header shared by all system description
// tables.
const SDTHeaderLength = 36

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table including the header.
	Length uint32

	// For DSDT/SSDT tables the revision also selects the integer width
	// used by the AML interpreter: 32 bits for revision < 2 and 64 bits
	// otherwise.
	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// SignatureString returns the table signature as a string.
func (h *SDTHeader) SignatureString() string { return string(h.Signature[:]) }

// DecodeSDTHeader decodes the SDT header at the start of buf.
func DecodeSDTHeader(buf []byte) (*SDTHeader, *kernel.Error) {
	if len(buf) < SDTHeaderLength {
		return nil, ErrTruncated
	}

	h := &SDTHeader{
		Length:          binary.LittleEndian.Uint32(buf[4:]),
		Revision:        buf[8],
		Checksum:        buf[9],
		OEMRevision:     binary.LittleEndian.Uint32(buf[24:]),
		CreatorID:       binary.LittleEndian.Uint32(buf[28:]),
		CreatorRevision: binary.LittleEndian.Uint32(buf[32:]),
	}
	copy(h.Signature[:], buf[0:4])
	copy(h.OEMID[:], buf[10:16])
	copy(h.OEMTableID[:], buf[16:24])

	return h, nil
}

// Encode serializes the header followed by payload and fixes up the length
// and checksum fields so the result is a valid table.
func (h *SDTHeader) Encode(payload []byte) []byte {
	buf := make([]byte, SDTHeaderLength+len(payload))
	copy(buf[0:], h.Signature[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)))
	buf[8] = h.Revision
	copy(buf[10:], h.OEMID[:])
	copy(buf[16:], h.OEMTableID[:])
	binary.LittleEndian.PutUint32(buf[24:], h.OEMRevision)
	binary.LittleEndian.PutUint32(buf[28:], h.CreatorID)
	binary.LittleEndian.PutUint32(buf[32:], h.CreatorRevision)
	copy(buf[SDTHeaderLength:], payload)

	FixChecksum(buf, 9)
	return buf
}

// Checksum returns the 8-bit sum of all bytes in buf. Valid tables sum to 0.
func Checksum(buf []byte) uint8 {
	var sum uint8
	for _, b := range buf {
		sum += b
	}

	return sum
}

// FixChecksum updates the checksum byte at offset so that the bytes in buf
// sum to zero.
func FixChecksum(buf []byte, offset int) {
	buf[offset] = 0
	buf[offset] = -Checksum(buf)
}

// DecodeEntries decodes the table pointers that follow the header of an RSDT
// (4-byte entries) or XSDT (8-byte entries).
func DecodeEntries(buf []byte, entrySize int) ([]uint64, *kernel.Error) {
	if len(buf) < SDTHeaderLength || (entrySize != 4 && entrySize != 8) {
		return nil, ErrTruncated
	}

	payload := buf[SDTHeaderLength:]
	entries := make([]uint64, 0, len(payload)/entrySize)
	for ; len(payload) >= entrySize; payload = payload[entrySize:] {
		switch entrySize {
		case 4:
			entries = append(entries, uint64(binary.LittleEndian.Uint32(payload)))
		default:
			entries = append(entries, binary.LittleEndian.Uint64(payload))
		}
	}

	return entries, nil
}
