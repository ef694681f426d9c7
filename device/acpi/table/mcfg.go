package table

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// MCFGAllocation describes the memory-mapped configuration space of a range
// of PCI buses within a segment group.
type MCFGAllocation struct {
	BaseAddress uint64
	Segment     uint16
	StartBus    uint8
	EndBus      uint8
}

// MCFG lists the PCI Express enhanced configuration space regions.
type MCFG struct {
	SDTHeader

	Allocations []MCFGAllocation
}

const (
	mcfgEntriesOffset = SDTHeaderLength + 8
	mcfgEntryLength   = 16
)

// DecodeMCFG decodes a MCFG from buf which must contain the entire table.
func DecodeMCFG(buf []byte) (*MCFG, *kernel.Error) {
	header, err := DecodeSDTHeader(buf)
	if err != nil {
		return nil, err
	}

	if header.Length < mcfgEntriesOffset || uint32(len(buf)) < header.Length {
		return nil, ErrTruncated
	}

	mcfg := &MCFG{SDTHeader: *header}
	for rec := buf[mcfgEntriesOffset:header.Length]; len(rec) >= mcfgEntryLength; rec = rec[mcfgEntryLength:] {
		mcfg.Allocations = append(mcfg.Allocations, MCFGAllocation{
			BaseAddress: binary.LittleEndian.Uint64(rec[0:]),
			Segment:     binary.LittleEndian.Uint16(rec[8:]),
			StartBus:    rec[10],
			EndBus:      rec[11],
		})
	}

	return mcfg, nil
}

// Encode serializes the MCFG with a valid checksum.
func (m *MCFG) Encode() []byte {
	payload := make([]byte, 8+len(m.Allocations)*mcfgEntryLength)
	for i, alloc := range m.Allocations {
		rec := payload[8+i*mcfgEntryLength:]
		binary.LittleEndian.PutUint64(rec[0:], alloc.BaseAddress)
		binary.LittleEndian.PutUint16(rec[8:], alloc.Segment)
		rec[10] = alloc.StartBus
		rec[11] = alloc.EndBus
	}

	header := m.SDTHeader
	copy(header.Signature[:], SignatureMCFG)
	return header.Encode(payload)
}
