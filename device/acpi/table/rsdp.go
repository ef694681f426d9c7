package table

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// Encoded sizes of the ACPI 1.0 and extended root system descriptor pointers.
const (
	RSDPLength    = 20
	ExtRSDPLength = 36
)

// RSDPSignature is the signature found at the start of every RSDP.
var RSDPSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// RSDP defines the root system descriptor pointer. This is used as the
// entry-point for parsing ACPI data. The extended fields are only populated
// when Revision is not 0.
type RSDP struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of the first 20 bytes of the
	// descriptor should result in the value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.x.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32

	// The size of the descriptor.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	ExtendedChecksum uint8
}

// Extended returns true if the descriptor carries the ACPI 2.0+ fields.
func (r *RSDP) Extended() bool { return r.Revision != 0 }

// DecodedLength returns the number of bytes covered by the descriptor.
func (r *RSDP) DecodedLength() int {
	if !r.Extended() {
		return RSDPLength
	}
	return int(r.Length)
}

// DecodeRSDP decodes the root system descriptor pointer at the start of buf.
// The ACPI 1.0 part must always be present; the extended part is decoded when
// the revision field is non-zero.
func DecodeRSDP(buf []byte) (*RSDP, *kernel.Error) {
	if len(buf) < RSDPLength {
		return nil, ErrTruncated
	}

	r := &RSDP{
		Checksum: buf[8],
		Revision: buf[15],
		RSDTAddr: binary.LittleEndian.Uint32(buf[16:]),
	}
	copy(r.Signature[:], buf[0:8])
	copy(r.OEMID[:], buf[9:15])

	if !r.Extended() {
		return r, nil
	}

	if len(buf) < ExtRSDPLength {
		return nil, ErrTruncated
	}

	r.Length = binary.LittleEndian.Uint32(buf[20:])
	r.XSDTAddr = binary.LittleEndian.Uint64(buf[24:])
	r.ExtendedChecksum = buf[32]
	return r, nil
}

// Encode serializes the descriptor and computes both checksums. The Length
// field is set to ExtRSDPLength for extended descriptors.
func (r *RSDP) Encode() []byte {
	size := RSDPLength
	if r.Extended() {
		size = ExtRSDPLength
	}

	buf := make([]byte, size)
	copy(buf[0:], r.Signature[:])
	copy(buf[9:], r.OEMID[:])
	buf[15] = r.Revision
	binary.LittleEndian.PutUint32(buf[16:], r.RSDTAddr)
	FixChecksum(buf[:RSDPLength], 8)

	if r.Extended() {
		binary.LittleEndian.PutUint32(buf[20:], ExtRSDPLength)
		binary.LittleEndian.PutUint64(buf[24:], r.XSDTAddr)
		FixChecksum(buf, 32)
	}

	return buf
}
