//go:build !amd64

package cpu

// Halt spins forever; non-x86 targets only run the host tooling.
func Halt() {
	for {
	}
}

// PortWriteByte is a no-op on targets without an I/O port space.
func PortWriteByte(_ uint16, _ uint8) {}

// PortWriteWord is a no-op on targets without an I/O port space.
func PortWriteWord(_ uint16, _ uint16) {}

// PortWriteDword is a no-op on targets without an I/O port space.
func PortWriteDword(_ uint16, _ uint32) {}

// PortReadByte always returns 0xff (floating bus) on targets without an I/O
// port space.
func PortReadByte(_ uint16) uint8 { return 0xff }

// PortReadWord always returns 0xffff on targets without an I/O port space.
func PortReadWord(_ uint16) uint16 { return 0xffff }

// PortReadDword always returns 0xffffffff on targets without an I/O port
// space.
func PortReadDword(_ uint16) uint32 { return 0xffffffff }
