package table

import (
	"encoding/binary"

	"github.com/mwg2202/os/kernel"
)

// AddressSpace defines the location where a set of registers resides.
type AddressSpace uint8

// The list of supported address space types.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddressLength is the encoded size of a GenericAddress.
const GenericAddressLength = 12

// GenericAddress specifies a register range located in a particular address
// space.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

func decodeGenericAddress(buf []byte) GenericAddress {
	return GenericAddress{
		Space:      AddressSpace(buf[0]),
		BitWidth:   buf[1],
		BitOffset:  buf[2],
		AccessSize: buf[3],
		Address:    binary.LittleEndian.Uint64(buf[4:]),
	}
}

func (g GenericAddress) encode(buf []byte) {
	buf[0] = uint8(g.Space)
	buf[1] = g.BitWidth
	buf[2] = g.BitOffset
	buf[3] = g.AccessSize
	binary.LittleEndian.PutUint64(buf[4:], g.Address)
}

// PowerProfileType describes a power profile referenced by the FADT table.
type PowerProfileType uint8

// The list of supported power profile types
const (
	PowerProfileUnspecified PowerProfileType = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// FADT field offsets, relative to the start of the table.
const (
	fadtFirmwareCtrl      = 36
	fadtDSDT              = 40
	fadtPowerProfile      = 45
	fadtSCIInterrupt      = 46
	fadtSMICommandPort    = 48
	fadtAcpiEnable        = 52
	fadtAcpiDisable       = 53
	fadtPM1aEventBlock    = 56
	fadtPM1bEventBlock    = 60
	fadtPM1aControlBlock  = 64
	fadtPM1bControlBlock  = 68
	fadtPMTimerBlock      = 76
	fadtPM1ControlLength  = 89
	fadtFlags             = 112
	fadtResetReg          = 116
	fadtResetValue        = 128
	fadtXFirmwareCtrl     = 132
	fadtXDSDT             = 140
	fadtXPM1aControlBlock = 172
	fadtXPM1bControlBlock = 184

	// FADTv1Length is the size of the ACPI 1.0 FADT.
	FADTv1Length = 116

	// FADTLength is the size of the FADT fields decoded by DecodeFADT.
	FADTLength = fadtXPM1bControlBlock + GenericAddressLength
)

// FADT (Fixed ACPI Description Table) contains information about the fixed
// register blocks used for power management. Only the fields consumed by the
// power management code are decoded.
type FADT struct {
	SDTHeader

	FirmwareCtrl uint32
	DSDT         uint32

	PreferredPowerManagementProfile PowerProfileType
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8

	PM1aEventBlock   uint32
	PM1bEventBlock   uint32
	PM1aControlBlock uint32
	PM1bControlBlock uint32
	PMTimerBlock     uint32
	PM1ControlLength uint8

	// Fields below are zero for ACPI 1.0 tables.
	Flags      uint32
	ResetReg   GenericAddress
	ResetValue uint8

	XFirmwareCtrl     uint64
	XDSDT             uint64
	XPM1aControlBlock GenericAddress
	XPM1bControlBlock GenericAddress
}

// DecodeFADT decodes a FADT from buf which must contain the entire table.
// The extended fields are decoded only when the table length covers them.
func DecodeFADT(buf []byte) (*FADT, *kernel.Error) {
	header, err := DecodeSDTHeader(buf)
	if err != nil {
		return nil, err
	}

	if header.Length < FADTv1Length || uint32(len(buf)) < header.Length {
		return nil, ErrTruncated
	}
	buf = buf[:header.Length]

	fadt := &FADT{
		SDTHeader:                       *header,
		FirmwareCtrl:                    binary.LittleEndian.Uint32(buf[fadtFirmwareCtrl:]),
		DSDT:                            binary.LittleEndian.Uint32(buf[fadtDSDT:]),
		PreferredPowerManagementProfile: PowerProfileType(buf[fadtPowerProfile]),
		SCIInterrupt:                    binary.LittleEndian.Uint16(buf[fadtSCIInterrupt:]),
		SMICommandPort:                  binary.LittleEndian.Uint32(buf[fadtSMICommandPort:]),
		AcpiEnable:                      buf[fadtAcpiEnable],
		AcpiDisable:                     buf[fadtAcpiDisable],
		PM1aEventBlock:                  binary.LittleEndian.Uint32(buf[fadtPM1aEventBlock:]),
		PM1bEventBlock:                  binary.LittleEndian.Uint32(buf[fadtPM1bEventBlock:]),
		PM1aControlBlock:                binary.LittleEndian.Uint32(buf[fadtPM1aControlBlock:]),
		PM1bControlBlock:                binary.LittleEndian.Uint32(buf[fadtPM1bControlBlock:]),
		PMTimerBlock:                    binary.LittleEndian.Uint32(buf[fadtPMTimerBlock:]),
		PM1ControlLength:                buf[fadtPM1ControlLength],
	}

	if len(buf) >= fadtResetValue+1 {
		fadt.Flags = binary.LittleEndian.Uint32(buf[fadtFlags:])
		fadt.ResetReg = decodeGenericAddress(buf[fadtResetReg:])
		fadt.ResetValue = buf[fadtResetValue]
	}
	if len(buf) >= fadtXDSDT+8 {
		fadt.XFirmwareCtrl = binary.LittleEndian.Uint64(buf[fadtXFirmwareCtrl:])
		fadt.XDSDT = binary.LittleEndian.Uint64(buf[fadtXDSDT:])
	}
	if len(buf) >= fadtXPM1aControlBlock+GenericAddressLength {
		fadt.XPM1aControlBlock = decodeGenericAddress(buf[fadtXPM1aControlBlock:])
	}
	if len(buf) >= fadtXPM1bControlBlock+GenericAddressLength {
		fadt.XPM1bControlBlock = decodeGenericAddress(buf[fadtXPM1bControlBlock:])
	}

	return fadt, nil
}

// DSDTAddress returns the physical address of the DSDT. The 64-bit X_DSDT
// field takes precedence when the table revision is 2 or later and the field
// is populated.
func (f *FADT) DSDTAddress() uint64 {
	if f.Revision >= 2 && f.XDSDT != 0 {
		return f.XDSDT
	}
	return uint64(f.DSDT)
}

// PM1aControlPort returns the I/O port of the PM1a control register.
func (f *FADT) PM1aControlPort() uint16 {
	return controlPort(f.XPM1aControlBlock, f.PM1aControlBlock)
}

// PM1bControlPort returns the I/O port of the PM1b control register or 0 if
// the platform does not implement it.
func (f *FADT) PM1bControlPort() uint16 {
	return controlPort(f.XPM1bControlBlock, f.PM1bControlBlock)
}

func controlPort(ext GenericAddress, legacy uint32) uint16 {
	if ext.Address != 0 && ext.Space == AddressSpaceSysIO {
		return uint16(ext.Address)
	}
	return uint16(legacy)
}

// Encode serializes the FADT into a FADTLength-sized table with a valid
// checksum.
func (f *FADT) Encode() []byte {
	payload := make([]byte, FADTLength-SDTHeaderLength)
	put := func(offset int) []byte { return payload[offset-SDTHeaderLength:] }

	binary.LittleEndian.PutUint32(put(fadtFirmwareCtrl), f.FirmwareCtrl)
	binary.LittleEndian.PutUint32(put(fadtDSDT), f.DSDT)
	put(fadtPowerProfile)[0] = uint8(f.PreferredPowerManagementProfile)
	binary.LittleEndian.PutUint16(put(fadtSCIInterrupt), f.SCIInterrupt)
	binary.LittleEndian.PutUint32(put(fadtSMICommandPort), f.SMICommandPort)
	put(fadtAcpiEnable)[0] = f.AcpiEnable
	put(fadtAcpiDisable)[0] = f.AcpiDisable
	binary.LittleEndian.PutUint32(put(fadtPM1aEventBlock), f.PM1aEventBlock)
	binary.LittleEndian.PutUint32(put(fadtPM1bEventBlock), f.PM1bEventBlock)
	binary.LittleEndian.PutUint32(put(fadtPM1aControlBlock), f.PM1aControlBlock)
	binary.LittleEndian.PutUint32(put(fadtPM1bControlBlock), f.PM1bControlBlock)
	binary.LittleEndian.PutUint32(put(fadtPMTimerBlock), f.PMTimerBlock)
	put(fadtPM1ControlLength)[0] = f.PM1ControlLength
	binary.LittleEndian.PutUint32(put(fadtFlags), f.Flags)
	f.ResetReg.encode(put(fadtResetReg))
	put(fadtResetValue)[0] = f.ResetValue
	binary.LittleEndian.PutUint64(put(fadtXFirmwareCtrl), f.XFirmwareCtrl)
	binary.LittleEndian.PutUint64(put(fadtXDSDT), f.XDSDT)
	f.XPM1aControlBlock.encode(put(fadtXPM1aControlBlock))
	f.XPM1bControlBlock.encode(put(fadtXPM1bControlBlock))

	header := f.SDTHeader
	copy(header.Signature[:], SignatureFADT)
	return header.Encode(payload)
}
