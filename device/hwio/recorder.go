package hwio

import (
	"encoding/binary"
	"io"

	"github.com/mwg2202/os/kernel/kfmt"
)

// PortWrite describes a single write to an I/O port.
type PortWrite struct {
	Port  uint16
	Width uint8
	Value uint32
}

// Recorder is an in-memory stand-in for the memory and port spaces. Memory
// is sparse and reads as zero until written; port reads return the last value
// written or preset for the port. Every port write is recorded and logged.
type Recorder struct {
	mem    map[uint64]byte
	ports  map[uint16]uint32
	writes []PortWrite
	log    io.Writer
}

// NewRecorder returns an empty recorder that logs port writes to w. A nil w
// disables logging.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{
		mem:   make(map[uint64]byte),
		ports: make(map[uint16]uint32),
	}
	if w != nil {
		r.log = kfmt.ModuleWriter(w, "hwio")
	}

	return r
}

// SetMemory copies data to addr.
func (r *Recorder) SetMemory(addr uint64, data []byte) {
	for i, b := range data {
		r.mem[addr+uint64(i)] = b
	}
}

// SetPort presets the value returned by reads from port.
func (r *Recorder) SetPort(port uint16, v uint32) {
	r.ports[port] = v
}

// PortWrites returns the recorded port writes in order.
func (r *Recorder) PortWrites() []PortWrite {
	return r.writes
}

// ReadMemory copies len(buf) bytes starting at addr into buf.
func (r *Recorder) ReadMemory(addr uint64, buf []byte) {
	for i := range buf {
		buf[i] = r.mem[addr+uint64(i)]
	}
}

func (r *Recorder) read(addr uint64, size int) uint64 {
	var buf [8]byte
	r.ReadMemory(addr, buf[:size])
	return binary.LittleEndian.Uint64(buf[:])
}

func (r *Recorder) write(addr uint64, size int, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	r.SetMemory(addr, buf[:size])
}

// ReadMemory8 reads a uint8 value at addr.
func (r *Recorder) ReadMemory8(addr uint64) uint8 { return uint8(r.read(addr, 1)) }

// ReadMemory16 reads a uint16 value at addr.
func (r *Recorder) ReadMemory16(addr uint64) uint16 { return uint16(r.read(addr, 2)) }

// ReadMemory32 reads a uint32 value at addr.
func (r *Recorder) ReadMemory32(addr uint64) uint32 { return uint32(r.read(addr, 4)) }

// ReadMemory64 reads a uint64 value at addr.
func (r *Recorder) ReadMemory64(addr uint64) uint64 { return r.read(addr, 8) }

// WriteMemory8 writes a uint8 value at addr.
func (r *Recorder) WriteMemory8(addr uint64, v uint8) { r.write(addr, 1, uint64(v)) }

// WriteMemory16 writes a uint16 value at addr.
func (r *Recorder) WriteMemory16(addr uint64, v uint16) { r.write(addr, 2, uint64(v)) }

// WriteMemory32 writes a uint32 value at addr.
func (r *Recorder) WriteMemory32(addr uint64, v uint32) { r.write(addr, 4, uint64(v)) }

// WriteMemory64 writes a uint64 value at addr.
func (r *Recorder) WriteMemory64(addr uint64, v uint64) { r.write(addr, 8, v) }

// ReadPort8 reads a uint8 value from port.
func (r *Recorder) ReadPort8(port uint16) uint8 { return uint8(r.ports[port]) }

// ReadPort16 reads a uint16 value from port.
func (r *Recorder) ReadPort16(port uint16) uint16 { return uint16(r.ports[port]) }

// ReadPort32 reads a uint32 value from port.
func (r *Recorder) ReadPort32(port uint16) uint32 { return r.ports[port] }

// WritePort8 records a uint8 write to port.
func (r *Recorder) WritePort8(port uint16, v uint8) { r.recordWrite(port, 1, uint32(v)) }

// WritePort16 records a uint16 write to port.
func (r *Recorder) WritePort16(port uint16, v uint16) { r.recordWrite(port, 2, uint32(v)) }

// WritePort32 records a uint32 write to port.
func (r *Recorder) WritePort32(port uint16, v uint32) { r.recordWrite(port, 4, v) }

func (r *Recorder) recordWrite(port uint16, width uint8, v uint32) {
	r.ports[port] = v
	r.writes = append(r.writes, PortWrite{Port: port, Width: width, Value: v})
	if r.log != nil {
		kfmt.Fprintf(r.log, "out%d 0x%4x <- 0x%x\n", width*8, port, v)
	}
}
