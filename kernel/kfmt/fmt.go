// Package kfmt implements the formatted console output used by every kernel
// sub-system. Output produced before a console is attached is buffered and
// replayed once SetOutputSink is called.
package kfmt

import "io"

// numBufSize is large enough to hold a 64-bit value formatted in base 8 plus
// a sign.
const numBufSize = 24

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")
	digits          = []byte("0123456789abcdef")

	// earlyPrintBuffer stores Printf output until an output sink is set.
	earlyPrintBuffer ringBuffer

	// outputSink receives Printf output. When nil, output is redirected
	// to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for Printf calls to w and flushes any
// buffered early output into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently active output sink.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf writes formatted output to the active output sink. It supports the
// following verbs:
//
//	%s  string or []byte
//	%d  base 10 integer
//	%x  base 16 integer (lower-case)
//	%o  base 8 integer
//	%t  bool
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes its output to w. If w is nil the
// output is buffered in the early print buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex   int
		blockStart int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}

		writeString(w, format[blockStart:i])

		width := 0
		i++
		for ; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		blockStart = i + 1
		if i >= len(format) {
			write(w, errNoVerb)
			break
		}

		verb := format[i]
		if verb == '%' {
			write(w, []byte{'%'})
			continue
		}

		switch verb {
		case 'd', 'x', 'o', 's', 't':
			if argIndex >= len(args) {
				write(w, errMissingArg)
				continue
			}
		default:
			write(w, errNoVerb)
			continue
		}

		switch verb {
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 'o':
			fmtInt(w, args[argIndex], 8, width)
		case 's':
			fmtString(w, args[argIndex], width)
		case 't':
			fmtBool(w, args[argIndex])
		}
		argIndex++
	}

	if blockStart < len(format) {
		writeString(w, format[blockStart:])
	}

	for ; argIndex < len(args); argIndex++ {
		write(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		write(w, errWrongArgType)
	case b:
		write(w, trueValue)
	default:
		write(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		pad(w, ' ', width-len(s))
		writeString(w, s)
	case []byte:
		pad(w, ' ', width-len(s))
		write(w, s)
	default:
		write(w, errWrongArgType)
	}
}

// fmtInt writes v in the requested base. All built-in integer types are
// supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval uint64
		neg  bool
	)

	switch n := v.(type) {
	case uint8:
		uval = uint64(n)
	case uint16:
		uval = uint64(n)
	case uint32:
		uval = uint64(n)
	case uint64:
		uval = n
	case uint:
		uval = uint64(n)
	case uintptr:
		uval = uint64(n)
	case int8:
		uval, neg = abs(int64(n))
	case int16:
		uval, neg = abs(int64(n))
	case int32:
		uval, neg = abs(int64(n))
	case int64:
		uval, neg = abs(n)
	case int:
		uval, neg = abs(int64(n))
	default:
		write(w, errWrongArgType)
		return
	}

	var (
		buf [numBufSize]byte
		pos = numBufSize
	)

	for {
		pos--
		buf[pos] = digits[uval%base]
		uval /= base
		if uval == 0 {
			break
		}
	}

	if neg {
		pos--
		buf[pos] = '-'
	}

	padCh := byte('0')
	if base == 10 {
		padCh = ' '
	}

	if padLen := width - (numBufSize - pos); padLen > 0 {
		if neg && padCh == '0' {
			// keep the sign in front of any zero padding
			write(w, buf[pos:pos+1])
			pos++
		}
		pad(w, padCh, padLen)
	}

	write(w, buf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func pad(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		write(w, []byte{ch})
	}
}

func writeString(w io.Writer, s string) {
	if len(s) != 0 {
		write(w, []byte(s))
	}
}

func write(w io.Writer, p []byte) {
	if w == nil {
		_, _ = earlyPrintBuffer.Write(p)
		return
	}
	_, _ = w.Write(p)
}
