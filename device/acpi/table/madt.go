package table

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// MADTEntryType describes the type of a MADT record.
type MADTEntryType uint8

// The list of supported MADT entry types.
const (
	MADTEntryTypeLocalAPIC MADTEntryType = iota
	MADTEntryTypeIOAPIC
	MADTEntryTypeIntSrcOverride
	MADTEntryTypeNMISource
	MADTEntryTypeLocalAPICNMI
)

// MADTEntryLocalAPIC describes a single physical processor and its local
// interrupt controller.
type MADTEntryLocalAPIC struct {
	ProcessorID uint8
	APICID      uint8
	Flags       uint32
}

// MADTEntryIOAPIC describes an I/O Advanced Programmable Interrupt Controller.
type MADTEntryIOAPIC struct {
	APICID uint8

	// Address contains the address of the controller.
	Address uint32

	// SysInterruptBase defines the first interrupt number that this
	// controller handles.
	SysInterruptBase uint32
}

// MADTEntryInterruptSrcOverride maps an IRQ source to a global system
// interrupt.
type MADTEntryInterruptSrcOverride struct {
	BusSrc          uint8
	IRQSrc          uint8
	GlobalInterrupt uint32
	Flags           uint16
}

// MADTEntryNMI describes a non-maskable interrupt that needs to be set up for
// a single processor or all processors.
type MADTEntryNMI struct {
	// Processor specifies the local APIC that needs to be configured for
	// this NMI. A value of 0xff selects all processors.
	Processor uint8

	Flags uint16

	// LINT selects the local vector table entry (0 or 1) to set up.
	LINT uint8
}

// MADT (Multiple APIC Description Table) contains information about the
// interrupt controllers and the number of installed CPUs.
type MADT struct {
	SDTHeader

	LocalControllerAddress uint32
	Flags                  uint32

	LocalAPICs []MADTEntryLocalAPIC
	IOAPICs    []MADTEntryIOAPIC
	Overrides  []MADTEntryInterruptSrcOverride
	NMIs       []MADTEntryNMI

	// UnknownEntries counts records with a type not listed above.
	UnknownEntries int
}

const madtEntriesOffset = SDTHeaderLength + 8

// DecodeMADT decodes a MADT and its variable-sized records from buf which
// must contain the entire table.
func DecodeMADT(buf []byte) (*MADT, *kernel.Error) {
	header, err := DecodeSDTHeader(buf)
	if err != nil {
		return nil, err
	}

	if header.Length < madtEntriesOffset || uint32(len(buf)) < header.Length {
		return nil, ErrTruncated
	}
	buf = buf[:header.Length]

	madt := &MADT{
		SDTHeader:              *header,
		LocalControllerAddress: binary.LittleEndian.Uint32(buf[36:]),
		Flags:                  binary.LittleEndian.Uint32(buf[40:]),
	}

	for rec := buf[madtEntriesOffset:]; len(rec) != 0; {
		if len(rec) < 2 || rec[1] < 2 || int(rec[1]) > len(rec) {
			return nil, ErrTruncated
		}

		entry := rec[:rec[1]]
		rec = rec[rec[1]:]

		switch typ := MADTEntryType(entry[0]); {
		case typ == MADTEntryTypeLocalAPIC && len(entry) >= 8:
			madt.LocalAPICs = append(madt.LocalAPICs, MADTEntryLocalAPIC{
				ProcessorID: entry[2],
				APICID:      entry[3],
				Flags:       binary.LittleEndian.Uint32(entry[4:]),
			})
		case typ == MADTEntryTypeIOAPIC && len(entry) >= 12:
			madt.IOAPICs = append(madt.IOAPICs, MADTEntryIOAPIC{
				APICID:           entry[2],
				Address:          binary.LittleEndian.Uint32(entry[4:]),
				SysInterruptBase: binary.LittleEndian.Uint32(entry[8:]),
			})
		case typ == MADTEntryTypeIntSrcOverride && len(entry) >= 10:
			madt.Overrides = append(madt.Overrides, MADTEntryInterruptSrcOverride{
				BusSrc:          entry[2],
				IRQSrc:          entry[3],
				GlobalInterrupt: binary.LittleEndian.Uint32(entry[4:]),
				Flags:           binary.LittleEndian.Uint16(entry[8:]),
			})
		case typ == MADTEntryTypeLocalAPICNMI && len(entry) >= 6:
			madt.NMIs = append(madt.NMIs, MADTEntryNMI{
				Processor: entry[2],
				Flags:     binary.LittleEndian.Uint16(entry[3:]),
				LINT:      entry[5],
			})
		default:
			madt.UnknownEntries++
		}
	}

	return madt, nil
}
