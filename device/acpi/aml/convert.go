package aml

import (
	"strconv"
	"strings"

	"github.com/mwg2202/os/device/acpi/aml/entity"
)

// objRef is the value produced by RefOf and CondRefOf.
type objRef struct {
	ent entity.Entity
}

// elemRef is the value produced by Index. It refers to an element of a
// package or a byte of a buffer.
type elemRef struct {
	pkg   []interface{}
	buf   []byte
	index int
}

func (r *elemRef) get() interface{} {
	if r.pkg != nil {
		return r.pkg[r.index]
	}
	return uint64(r.buf[r.index])
}

func (r *elemRef) set(v interface{}) *Error {
	if r.pkg != nil {
		r.pkg[r.index] = copyValue(v)
		return nil
	}

	iv, err := toInteger(v, ^uint64(0))
	if err != nil {
		return err
	}
	r.buf[r.index] = byte(iv)
	return nil
}

// deref replaces Index references with the value they point to.
func deref(v interface{}) interface{} {
	if ref, ok := v.(*elemRef); ok {
		return ref.get()
	}
	return v
}

// copyValue returns a copy of buffers and packages so that stores do not
// alias the source object.
func copyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case []byte:
		return append([]byte(nil), tv...)
	case []interface{}:
		return append([]interface{}(nil), tv...)
	}
	return v
}

// toInteger converts v to an integer truncated with mask. Strings are parsed
// as hex when they carry a 0x prefix and as decimal otherwise; buffers are
// decoded as little-endian integers.
func toInteger(v interface{}, mask uint64) (uint64, *Error) {
	switch tv := deref(v).(type) {
	case uint64:
		return tv & mask, nil
	case string:
		base, digits := 10, strings.TrimSpace(tv)
		if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
			base, digits = 16, digits[2:]
		}

		var res uint64
		for _, ch := range digits {
			d := strings.IndexRune("0123456789abcdef", toLower(ch))
			if d == -1 || d >= base {
				break
			}
			res = res*uint64(base) + uint64(d)
		}
		return res & mask, nil
	case []byte:
		var res uint64
		for index := len(tv) - 1; index >= 0; index-- {
			if index < 8 {
				res = res<<8 | uint64(tv[index])
			}
		}
		return res & mask, nil
	case nil:
		return 0, newError(errUninitializedValue)
	}

	return 0, newError(errTypeMismatch)
}

func toLower(ch rune) rune {
	if ch >= 'A' && ch <= 'Z' {
		return ch + ('a' - 'A')
	}
	return ch
}

// toBuffer converts v to a buffer. Integers are encoded as little-endian
// values of width bytes and strings include their NUL terminator.
func toBuffer(v interface{}, width int) ([]byte, *Error) {
	switch tv := deref(v).(type) {
	case []byte:
		return tv, nil
	case uint64:
		out := make([]byte, width)
		for index := range out {
			out[index] = byte(tv >> (8 * uint(index)))
		}
		return out, nil
	case string:
		return append([]byte(tv), 0), nil
	case nil:
		return nil, newError(errUninitializedValue)
	}

	return nil, newError(errTypeMismatch)
}

// toString converts v to a string. Integers are rendered as upper-case hex
// digits.
func toString(v interface{}) (string, *Error) {
	switch tv := deref(v).(type) {
	case string:
		return tv, nil
	case uint64:
		return strings.ToUpper(strconv.FormatUint(tv, 16)), nil
	case []byte:
		parts := make([]string, len(tv))
		for index, b := range tv {
			parts[index] = strconv.FormatUint(uint64(b), 16)
		}
		return strings.ToUpper(strings.Join(parts, " ")), nil
	case nil:
		return "", newError(errUninitializedValue)
	}

	return "", newError(errTypeMismatch)
}

// FormatValue renders a value returned by Invoke for diagnostics.
func FormatValue(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return "<uninitialized>"
	case uint64:
		return "0x" + strconv.FormatUint(tv, 16)
	case string:
		return strconv.Quote(tv)
	case []byte:
		parts := make([]string, len(tv))
		for index, b := range tv {
			parts[index] = "0x" + strconv.FormatUint(uint64(b), 16)
		}
		return "Buffer{" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, len(tv))
		for index, elem := range tv {
			parts[index] = FormatValue(elem)
		}
		return "Package{" + strings.Join(parts, ", ") + "}"
	case *entity.Reference:
		return "Reference(" + tv.Target + ")"
	case *objRef:
		return "Reference(" + entity.Path(tv.ent) + ")"
	case *elemRef:
		return FormatValue(tv.get())
	case entity.Entity:
		return tv.Opcode().String() + "(" + entity.Path(tv) + ")"
	}

	return "<unknown>"
}
