package pci

// Legacy configuration mechanism ports.
const (
	configAddressPort = 0xcf8
	configDataPort    = 0xcfc
)

// ConfigSpace reads and writes PCI configuration registers. Functions
// covered by the ECAM locator are accessed through memory; segment 0
// functions outside of it are accessed through the legacy port mechanism
// when ports are available. Reads from unreachable functions return all ones
// and writes to them are dropped.
type ConfigSpace struct {
	locator *ECAMLocator
	mem     MemoryAccessor
	ports   PortAccessor
}

// NewConfigSpace returns a ConfigSpace. Either mem or ports may be nil.
func NewConfigSpace(locator *ECAMLocator, mem MemoryAccessor, ports PortAccessor) *ConfigSpace {
	if locator == nil {
		locator = &ECAMLocator{}
	}

	return &ConfigSpace{locator: locator, mem: mem, ports: ports}
}

// ecamAddr returns the physical address of a register of width bytes.
func (c *ConfigSpace) ecamAddr(addr Address, offset uint16, width uint16) (uint64, bool) {
	if c.mem == nil || offset+width > 4096 {
		return 0, false
	}

	base, ok := c.locator.Locate(addr)
	return base + uint64(offset), ok
}

// selectLegacy programs the legacy address register and returns the data
// port that maps the requested register.
func (c *ConfigSpace) selectLegacy(addr Address, offset uint16, width uint16) (uint16, bool) {
	if c.ports == nil || !addr.Valid() || addr.Segment != 0 || offset+width > 256 || offset%width != 0 {
		return 0, false
	}

	c.ports.WritePort32(configAddressPort, 1<<31|
		uint32(addr.Bus)<<16|
		uint32(addr.Device)<<11|
		uint32(addr.Function)<<8|
		uint32(offset&0xfc))

	return configDataPort + offset&0x3, true
}

// ReadPCI8 reads the 8-bit register at offset.
func (c *ConfigSpace) ReadPCI8(addr Address, offset uint16) uint8 {
	if phys, ok := c.ecamAddr(addr, offset, 1); ok {
		return c.mem.ReadMemory8(phys)
	}
	if port, ok := c.selectLegacy(addr, offset, 1); ok {
		return c.ports.ReadPort8(port)
	}
	return 0xff
}

// ReadPCI16 reads the 16-bit register at offset.
func (c *ConfigSpace) ReadPCI16(addr Address, offset uint16) uint16 {
	if phys, ok := c.ecamAddr(addr, offset, 2); ok {
		return c.mem.ReadMemory16(phys)
	}
	if port, ok := c.selectLegacy(addr, offset, 2); ok {
		return c.ports.ReadPort16(port)
	}
	return 0xffff
}

// ReadPCI32 reads the 32-bit register at offset.
func (c *ConfigSpace) ReadPCI32(addr Address, offset uint16) uint32 {
	if phys, ok := c.ecamAddr(addr, offset, 4); ok {
		return c.mem.ReadMemory32(phys)
	}
	if port, ok := c.selectLegacy(addr, offset, 4); ok {
		return c.ports.ReadPort32(port)
	}
	return 0xffffffff
}

// WritePCI8 writes the 8-bit register at offset.
func (c *ConfigSpace) WritePCI8(addr Address, offset uint16, v uint8) {
	if phys, ok := c.ecamAddr(addr, offset, 1); ok {
		c.mem.WriteMemory8(phys, v)
	} else if port, ok := c.selectLegacy(addr, offset, 1); ok {
		c.ports.WritePort8(port, v)
	}
}

// WritePCI16 writes the 16-bit register at offset.
func (c *ConfigSpace) WritePCI16(addr Address, offset uint16, v uint16) {
	if phys, ok := c.ecamAddr(addr, offset, 2); ok {
		c.mem.WriteMemory16(phys, v)
	} else if port, ok := c.selectLegacy(addr, offset, 2); ok {
		c.ports.WritePort16(port, v)
	}
}

// WritePCI32 writes the 32-bit register at offset.
func (c *ConfigSpace) WritePCI32(addr Address, offset uint16, v uint32) {
	if phys, ok := c.ecamAddr(addr, offset, 4); ok {
		c.mem.WriteMemory32(phys, v)
	} else if port, ok := c.selectLegacy(addr, offset, 4); ok {
		c.ports.WritePort32(port, v)
	}
}
