// Package amltest assembles AML bytecode for tests. Each helper returns the
// encoding of a single AML term so that definition blocks can be written as
// nested function calls that mirror their ASL source.
package amltest

import (
	"strings"

	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/acpi/table"
)

// Table wraps a definition block body with an SDT header and fixes its
// checksum.
func Table(sig string, rev uint8, body ...[]byte) []byte {
	h := table.SDTHeader{Revision: rev, OEMRevision: 1}
	copy(h.Signature[:], sig)
	copy(h.OEMID[:], "GOPHER")
	copy(h.OEMTableID[:], "AMLTEST")
	return h.Encode(Cat(body...))
}

// Block decodes the header of an encoded definition block and returns it as
// an acpi.Table. It panics if data is shorter than an SDT header.
func Block(data []byte) *acpi.Table {
	header, err := table.DecodeSDTHeader(data)
	if err != nil {
		panic(err.Error())
	}
	return &acpi.Table{Header: header, Data: data}
}

// Cat concatenates encoded terms.
func Cat(terms ...[]byte) []byte {
	var out []byte
	for _, term := range terms {
		out = append(out, term...)
	}
	return out
}

// Op encodes an opcode followed by its already encoded operands.
func Op(op entity.Opcode, args ...[]byte) []byte {
	var out []byte
	if op > 0xff {
		out = append(out, byte(op>>8), byte(op))
	} else {
		out = append(out, byte(op))
	}
	return append(out, Cat(args...)...)
}

// PkgOp encodes an opcode followed by a PkgLength covering body.
func PkgOp(op entity.Opcode, body ...[]byte) []byte {
	payload := Cat(body...)
	return Cat(Op(op), PkgLength(len(payload)), payload)
}

// PkgLength encodes the PkgLength of a package whose contents (excluding
// the PkgLength itself) are payloadLen bytes long.
func PkgLength(payloadLen int) []byte {
	if payloadLen+1 <= 0x3f {
		return []byte{byte(payloadLen + 1)}
	}

	for extra := 1; extra <= 3; extra++ {
		total := payloadLen + extra + 1
		if total >= 1<<(4+8*extra) {
			continue
		}

		out := []byte{byte(extra<<6) | byte(total&0xf)}
		for index := 0; index < extra; index++ {
			out = append(out, byte(total>>(4+8*index)))
		}
		return out
	}

	panic("amltest: package too large")
}

// NameString encodes a path such as `\_SB_.PCI0` or `^FOO_`. Segments
// shorter than four characters are padded with underscores.
func NameString(path string) []byte {
	var out []byte
	for len(path) != 0 && (path[0] == '\\' || path[0] == '^') {
		out = append(out, path[0])
		path = path[1:]
	}

	if path == "" {
		return append(out, 0x00)
	}

	segs := strings.Split(path, ".")
	switch len(segs) {
	case 1:
	case 2:
		out = append(out, 0x2e)
	default:
		out = append(out, 0x2f, byte(len(segs)))
	}

	for _, seg := range segs {
		out = append(out, seg+strings.Repeat("_", 4-len(seg))...)
	}
	return out
}

// Int encodes v using the shortest integer encoding.
func Int(v uint64) []byte {
	switch {
	case v == 0:
		return Op(entity.OpZero)
	case v == 1:
		return Op(entity.OpOne)
	case v == ^uint64(0):
		return Op(entity.OpOnes)
	case v <= 0xff:
		return []byte{byte(entity.OpBytePrefix), byte(v)}
	case v <= 0xffff:
		return []byte{byte(entity.OpWordPrefix), byte(v), byte(v >> 8)}
	case v <= 0xffffffff:
		return []byte{byte(entity.OpDwordPrefix), byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}

	out := []byte{byte(entity.OpQwordPrefix)}
	for index := 0; index < 8; index++ {
		out = append(out, byte(v>>(8*index)))
	}
	return out
}

// String encodes a string constant.
func String(s string) []byte {
	return append(append([]byte{byte(entity.OpStringPrefix)}, s...), 0x00)
}

// Local encodes LocalN.
func Local(n int) []byte { return Op(entity.OpLocal0 + entity.Opcode(n)) }

// Arg encodes ArgN.
func Arg(n int) []byte { return Op(entity.OpArg0 + entity.Opcode(n)) }

// Debug encodes the Debug object.
func Debug() []byte { return Op(entity.OpDebug) }

// Null encodes a NullName target.
func Null() []byte { return []byte{0x00} }

// Name encodes Name(path, value).
func Name(path string, value []byte) []byte {
	return Cat(Op(entity.OpName), NameString(path), value)
}

// Scope encodes Scope(path) { body }.
func Scope(path string, body ...[]byte) []byte {
	return PkgOp(entity.OpScope, NameString(path), Cat(body...))
}

// Device encodes Device(path) { body }.
func Device(path string, body ...[]byte) []byte {
	return PkgOp(entity.OpDevice, NameString(path), Cat(body...))
}

// Method encodes Method(path, argCount) { body }.
func Method(path string, argCount uint8, body ...[]byte) []byte {
	return PkgOp(entity.OpMethod, NameString(path), []byte{argCount & 0x7}, Cat(body...))
}

// Package encodes Package() { elems }.
func Package(elems ...[]byte) []byte {
	return PkgOp(entity.OpPackage, []byte{byte(len(elems))}, Cat(elems...))
}

// Ref encodes a name used as a package element or a SuperName.
func Ref(path string) []byte { return NameString(path) }

// Buffer encodes Buffer(size) { data }.
func Buffer(size uint64, data ...byte) []byte {
	return PkgOp(entity.OpBuffer, Int(size), data)
}

// Region encodes OperationRegion(path, space, offset, length).
func Region(path string, space entity.RegionSpace, offset, length uint64) []byte {
	return Cat(Op(entity.OpOpRegion), NameString(path), []byte{byte(space)}, Int(offset), Int(length))
}

// FieldUnit describes an entry of a field list. An empty Name encodes a
// reserved (Offset) entry.
type FieldUnit struct {
	Name string
	Bits int
}

// Field encodes Field(region, flags) { units }.
func Field(region string, flags uint8, units ...FieldUnit) []byte {
	return PkgOp(entity.OpField, NameString(region), []byte{flags}, fieldList(units))
}

// IndexField encodes IndexField(index, data, flags) { units }.
func IndexField(index, data string, flags uint8, units ...FieldUnit) []byte {
	return PkgOp(entity.OpIndexField, NameString(index), NameString(data), []byte{flags}, fieldList(units))
}

func fieldList(units []FieldUnit) []byte {
	var out []byte
	for _, unit := range units {
		if unit.Name == "" {
			out = append(out, 0x00)
		} else {
			out = append(out, unit.Name+strings.Repeat("_", 4-len(unit.Name))...)
		}

		// field widths use the PkgLength encoding without counting
		// their own size
		out = append(out, rawLength(unit.Bits)...)
	}
	return out
}

func rawLength(v int) []byte {
	switch {
	case v < 0x40:
		return []byte{byte(v)}
	case v < 1<<12:
		return []byte{0x40 | byte(v&0xf), byte(v >> 4)}
	case v < 1<<20:
		return []byte{0x80 | byte(v&0xf), byte(v >> 4), byte(v >> 12)}
	}
	return []byte{0xc0 | byte(v&0xf), byte(v >> 4), byte(v >> 12), byte(v >> 20)}
}

// Mutex encodes Mutex(path, syncLevel).
func Mutex(path string, syncLevel uint8) []byte {
	return Cat(Op(entity.OpMutex), NameString(path), []byte{syncLevel})
}

// If encodes If(pred) { body }.
func If(pred []byte, body ...[]byte) []byte {
	return PkgOp(entity.OpIf, pred, Cat(body...))
}

// Else encodes Else { body }. It must directly follow an If.
func Else(body ...[]byte) []byte {
	return PkgOp(entity.OpElse, Cat(body...))
}

// While encodes While(pred) { body }.
func While(pred []byte, body ...[]byte) []byte {
	return PkgOp(entity.OpWhile, pred, Cat(body...))
}

// Store encodes Store(src, dst).
func Store(src, dst []byte) []byte { return Op(entity.OpStore, src, dst) }

// Return encodes Return(v).
func Return(v []byte) []byte { return Op(entity.OpReturn, v) }

// Call encodes an invocation of the method at path.
func Call(path string, args ...[]byte) []byte {
	return Cat(NameString(path), Cat(args...))
}
