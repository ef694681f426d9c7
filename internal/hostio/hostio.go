//go:build unix

// Package hostio gives host tools access to physical memory and I/O ports
// through the /dev/mem and /dev/port character devices.
package hostio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mwg2202/os/kernel"
	"golang.org/x/sys/unix"
)

// Default device paths.
const (
	DevMem  = "/dev/mem"
	DevPort = "/dev/port"
)

var errPhysRead = &kernel.Error{Module: "hostio", Message: "physical memory read failed"}

// File is an open device whose file offsets map to addresses. Accessor
// methods cannot return errors; the first failure is kept and reported by
// Err. Failed reads return all ones.
type File struct {
	fd   int
	path string
	err  error
}

// Open opens the device at path. Writes are rejected by the kernel unless
// writable is set.
func Open(path string, writable bool) (*File, error) {
	flags := unix.O_RDONLY
	if writable {
		flags = unix.O_RDWR | unix.O_SYNC
	}

	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &File{fd: fd, path: path}, nil
}

// Close closes the device.
func (f *File) Close() error {
	return unix.Close(f.fd)
}

// Err returns the first access error.
func (f *File) Err() error {
	return f.err
}

func (f *File) setErr(op string, off uint64, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("%s %s at 0x%x: %w", op, f.path, off, err)
	}
}

func (f *File) pread(off uint64, buf []byte) bool {
	n, err := unix.Pread(f.fd, buf, int64(off))
	switch {
	case err != nil:
		f.setErr("read", off, err)
		return false
	case n != len(buf):
		f.setErr("read", off, io.ErrUnexpectedEOF)
		return false
	}
	return true
}

func (f *File) read(off uint64, size int) uint64 {
	var buf [8]byte
	if !f.pread(off, buf[:size]) {
		return ^uint64(0)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (f *File) write(off uint64, size int, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	n, err := unix.Pwrite(f.fd, buf[:size], int64(off))
	switch {
	case err != nil:
		f.setErr("write", off, err)
	case n != size:
		f.setErr("write", off, io.ErrShortWrite)
	}
}

// Memory accesses physical memory through a File opened on /dev/mem.
type Memory struct {
	*File
}

// ReadPhys copies len(buf) bytes starting at physical address addr into buf.
func (m Memory) ReadPhys(addr uint64, buf []byte) *kernel.Error {
	if !m.pread(addr, buf) {
		return errPhysRead
	}
	return nil
}

// ReadMemory8 reads a uint8 value at addr.
func (m Memory) ReadMemory8(addr uint64) uint8 { return uint8(m.read(addr, 1)) }

// ReadMemory16 reads a uint16 value at addr.
func (m Memory) ReadMemory16(addr uint64) uint16 { return uint16(m.read(addr, 2)) }

// ReadMemory32 reads a uint32 value at addr.
func (m Memory) ReadMemory32(addr uint64) uint32 { return uint32(m.read(addr, 4)) }

// ReadMemory64 reads a uint64 value at addr.
func (m Memory) ReadMemory64(addr uint64) uint64 { return m.read(addr, 8) }

// WriteMemory8 writes a uint8 value to addr.
func (m Memory) WriteMemory8(addr uint64, v uint8) { m.write(addr, 1, uint64(v)) }

// WriteMemory16 writes a uint16 value to addr.
func (m Memory) WriteMemory16(addr uint64, v uint16) { m.write(addr, 2, uint64(v)) }

// WriteMemory32 writes a uint32 value to addr.
func (m Memory) WriteMemory32(addr uint64, v uint32) { m.write(addr, 4, uint64(v)) }

// WriteMemory64 writes a uint64 value to addr.
func (m Memory) WriteMemory64(addr uint64, v uint64) { m.write(addr, 8, v) }

// Ports accesses the I/O port space through a File opened on /dev/port.
// The device transfers one byte per port, so wider accesses touch
// consecutive ports.
type Ports struct {
	*File
}

// ReadPort8 reads a uint8 value from port.
func (p Ports) ReadPort8(port uint16) uint8 { return uint8(p.read(uint64(port), 1)) }

// ReadPort16 reads a uint16 value from port.
func (p Ports) ReadPort16(port uint16) uint16 { return uint16(p.read(uint64(port), 2)) }

// ReadPort32 reads a uint32 value from port.
func (p Ports) ReadPort32(port uint16) uint32 { return uint32(p.read(uint64(port), 4)) }

// WritePort8 writes a uint8 value to port.
func (p Ports) WritePort8(port uint16, v uint8) { p.write(uint64(port), 1, uint64(v)) }

// WritePort16 writes a uint16 value to port.
func (p Ports) WritePort16(port uint16, v uint16) { p.write(uint64(port), 2, uint64(v)) }

// WritePort32 writes a uint32 value to port.
func (p Ports) WritePort32(port uint16, v uint32) { p.write(uint64(port), 4, uint64(v)) }
