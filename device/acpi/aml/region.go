package aml

import (
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/pci"
)

// fieldAccessor reads or writes one access-width chunk of a field. The
// offset is expressed in bytes from the start of the region.
type fieldAccessor interface {
	read(byteOffset uint64, width uint32) (uint64, *Error)
	write(byteOffset uint64, width uint32, v uint64) *Error
}

// readField returns the value of a field unit.
func (c *Context) readField(unit *entity.FieldUnit) (interface{}, *Error) {
	acc, err := c.fieldAccessor(unit)
	if err != nil {
		return nil, err
	}

	width := unit.AccessType.Bytes()
	accessBits := uint64(width) * 8
	start, end := uint64(unit.BitOffset), uint64(unit.BitOffset)+uint64(unit.BitWidth)

	var res uint64
	for chunk := start / accessBits * accessBits; chunk < end; chunk += accessBits {
		raw, err := acc.read(chunk/8, width)
		if err != nil {
			return nil, err
		}

		lo, hi := max(start, chunk), min(end, chunk+accessBits)
		bits := (raw >> (lo - chunk)) & bitMask(hi-lo)
		res |= bits << (lo - start)
	}

	return res, nil
}

// writeField stores v into a field unit. Bits of an access that lie outside
// the unit are handled according to the update rule of the field.
func (c *Context) writeField(unit *entity.FieldUnit, v uint64) *Error {
	acc, err := c.fieldAccessor(unit)
	if err != nil {
		return err
	}

	width := unit.AccessType.Bytes()
	accessBits := uint64(width) * 8
	start, end := uint64(unit.BitOffset), uint64(unit.BitOffset)+uint64(unit.BitWidth)

	for chunk := start / accessBits * accessBits; chunk < end; chunk += accessBits {
		lo, hi := max(start, chunk), min(end, chunk+accessBits)
		mask := bitMask(hi-lo) << (lo - chunk)
		bits := ((v >> (lo - start)) << (lo - chunk)) & mask

		var other uint64
		if mask != bitMask(accessBits) {
			switch unit.Field.UpdateRule {
			case entity.FieldUpdateRuleWriteAsOnes:
				other = bitMask(accessBits)
			case entity.FieldUpdateRuleWriteAsZeros:
				other = 0
			default:
				if other, err = acc.read(chunk/8, width); err != nil {
					return err
				}
			}
		}

		if err = acc.write(chunk/8, width, (other&^mask)|bits); err != nil {
			return err
		}
	}

	return nil
}

// fieldAccessor validates unit and returns the accessor for the region or
// index/data pair that backs it.
func (c *Context) fieldAccessor(unit *entity.FieldUnit) (fieldAccessor, *Error) {
	if unit.BitWidth > 64 {
		return nil, newError(errFieldTooWide)
	}

	field := unit.Field
	if field.Opcode() == entity.OpIndexField {
		index, ok := entity.FindInScope(field.Parent(), c.root, field.IndexName).(*entity.FieldUnit)
		if !ok {
			return nil, newError(errUnresolvedReference)
		}

		data, ok := entity.FindInScope(field.Parent(), c.root, field.DataName).(*entity.FieldUnit)
		if !ok {
			return nil, newError(errUnresolvedReference)
		}

		return &indexAccessor{c: c, index: index, data: data}, nil
	}

	region, ok := entity.FindInScope(field.Parent(), c.root, field.RegionName).(*entity.Region)
	if !ok {
		return nil, newError(errUnresolvedReference)
	}

	if err := c.resolveRegion(region); err != nil {
		return nil, err
	}

	if uint64(unit.BitOffset)+uint64(unit.BitWidth) > region.RegionSize*8 {
		return nil, newError(errFieldOutsideRegion)
	}

	switch region.Space {
	case entity.RegionSpaceSystemMemory:
		return &memoryAccessor{h: c.handler, base: region.BaseAddr}, nil
	case entity.RegionSpaceSystemIO:
		return &portAccessor{h: c.handler, base: region.BaseAddr}, nil
	case entity.RegionSpacePCIConfig:
		return &pciAccessor{h: c.handler, addr: c.pciAddress(region), base: region.BaseAddr}, nil
	}

	return nil, newError(errUnsupportedRegionSpace)
}

// resolveRegion evaluates the offset and length of a region the first time
// it is accessed.
func (c *Context) resolveRegion(region *entity.Region) *Error {
	if region.Resolved {
		return nil
	}

	ctx := &execContext{}
	base, err := c.evalInteger(ctx, region.Offset)
	if err != nil {
		return err
	}

	size, err := c.evalInteger(ctx, region.Len)
	if err != nil {
		return err
	}

	region.BaseAddr, region.RegionSize, region.Resolved = base, size, true
	return nil
}

// pciAddress derives the PCI function that owns a PCI_Config region from
// the _ADR, _SEG and _BBN objects visible from the region's scope. Missing
// objects are treated as zero.
func (c *Context) pciAddress(region *entity.Region) pci.Address {
	adr := c.optionalInteger(region.Parent(), "_ADR")
	return pci.Address{
		Segment:  uint16(c.optionalInteger(region.Parent(), "_SEG")),
		Bus:      uint8(c.optionalInteger(region.Parent(), "_BBN")),
		Device:   uint8(adr >> 16),
		Function: uint8(adr),
	}
}

// optionalInteger evaluates the named object as an integer and returns 0 if
// it does not exist or cannot be evaluated.
func (c *Context) optionalInteger(scope entity.Container, name string) uint64 {
	ent := entity.FindInScope(scope, c.root, name)
	if ent == nil {
		return 0
	}

	ctx := &execContext{}
	v, err := c.readObject(ctx, ent)
	if err != nil {
		return 0
	}

	res, err := toInteger(v, c.intMask)
	if err != nil {
		return 0
	}
	return res
}

type memoryAccessor struct {
	h    MemoryHandler
	base uint64
}

func (a *memoryAccessor) read(byteOffset uint64, width uint32) (uint64, *Error) {
	addr := a.base + byteOffset
	switch width {
	case 1:
		return uint64(a.h.ReadMemory8(addr)), nil
	case 2:
		return uint64(a.h.ReadMemory16(addr)), nil
	case 4:
		return uint64(a.h.ReadMemory32(addr)), nil
	default:
		return a.h.ReadMemory64(addr), nil
	}
}

func (a *memoryAccessor) write(byteOffset uint64, width uint32, v uint64) *Error {
	addr := a.base + byteOffset
	switch width {
	case 1:
		a.h.WriteMemory8(addr, uint8(v))
	case 2:
		a.h.WriteMemory16(addr, uint16(v))
	case 4:
		a.h.WriteMemory32(addr, uint32(v))
	default:
		a.h.WriteMemory64(addr, v)
	}
	return nil
}

// portAccessor services SystemIO regions. Qword accesses are split into two
// dword accesses.
type portAccessor struct {
	h    PortHandler
	base uint64
}

func (a *portAccessor) read(byteOffset uint64, width uint32) (uint64, *Error) {
	port := uint16(a.base + byteOffset)
	switch width {
	case 1:
		return uint64(a.h.ReadPort8(port)), nil
	case 2:
		return uint64(a.h.ReadPort16(port)), nil
	case 4:
		return uint64(a.h.ReadPort32(port)), nil
	default:
		return uint64(a.h.ReadPort32(port)) | uint64(a.h.ReadPort32(port+4))<<32, nil
	}
}

func (a *portAccessor) write(byteOffset uint64, width uint32, v uint64) *Error {
	port := uint16(a.base + byteOffset)
	switch width {
	case 1:
		a.h.WritePort8(port, uint8(v))
	case 2:
		a.h.WritePort16(port, uint16(v))
	case 4:
		a.h.WritePort32(port, uint32(v))
	default:
		a.h.WritePort32(port, uint32(v))
		a.h.WritePort32(port+4, uint32(v>>32))
	}
	return nil
}

// pciAccessor services PCI_Config regions. Qword accesses are split into two
// dword accesses.
type pciAccessor struct {
	h    PCIHandler
	addr pci.Address
	base uint64
}

func (a *pciAccessor) read(byteOffset uint64, width uint32) (uint64, *Error) {
	offset := uint16(a.base + byteOffset)
	switch width {
	case 1:
		return uint64(a.h.ReadPCI8(a.addr, offset)), nil
	case 2:
		return uint64(a.h.ReadPCI16(a.addr, offset)), nil
	case 4:
		return uint64(a.h.ReadPCI32(a.addr, offset)), nil
	default:
		return uint64(a.h.ReadPCI32(a.addr, offset)) | uint64(a.h.ReadPCI32(a.addr, offset+4))<<32, nil
	}
}

func (a *pciAccessor) write(byteOffset uint64, width uint32, v uint64) *Error {
	offset := uint16(a.base + byteOffset)
	switch width {
	case 1:
		a.h.WritePCI8(a.addr, offset, uint8(v))
	case 2:
		a.h.WritePCI16(a.addr, offset, uint16(v))
	case 4:
		a.h.WritePCI32(a.addr, offset, uint32(v))
	default:
		a.h.WritePCI32(a.addr, offset, uint32(v))
		a.h.WritePCI32(a.addr, offset+4, uint32(v>>32))
	}
	return nil
}

// indexAccessor services IndexField units: the byte offset of each access
// is written to the index unit and the data unit is then read or written.
type indexAccessor struct {
	c           *Context
	index, data *entity.FieldUnit
}

func (a *indexAccessor) read(byteOffset uint64, _ uint32) (uint64, *Error) {
	if err := a.c.writeField(a.index, byteOffset); err != nil {
		return 0, err
	}

	v, err := a.c.readField(a.data)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func (a *indexAccessor) write(byteOffset uint64, _ uint32, v uint64) *Error {
	if err := a.c.writeField(a.index, byteOffset); err != nil {
		return err
	}
	return a.c.writeField(a.data, v)
}

func bitMask(bits uint64) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}
