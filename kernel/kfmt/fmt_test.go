package kfmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	// mute vet warnings about malformed printf formatting strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{func() { printfn("no args") }, "no args"},
		{func() { printfn("%t", true) }, "true"},
		{func() { printfn("%41t", false) }, "false"},
		{func() { printfn("%s arg", "STRING") }, "STRING arg"},
		{func() { printfn("%s arg", []byte("BYTE SLICE")) }, "BYTE SLICE arg"},
		{func() { printfn("'%4s' arg with padding", "ABC") }, "' ABC' arg with padding"},
		{func() { printfn("'%4s' arg longer than padding", "ABCDE") }, "'ABCDE' arg longer than padding"},
		{func() { printfn("uint arg: %d", uint8(10)) }, "uint arg: 10"},
		{func() { printfn("uint arg: %o", uint16(0777)) }, "uint arg: 777"},
		{func() { printfn("uint arg: 0x%x", uint32(0xbadf00d)) }, "uint arg: 0xbadf00d"},
		{func() { printfn("'%10d'", uint64(123)) }, "'       123'"},
		{func() { printfn("'%4o'", uint64(0777)) }, "'0777'"},
		{func() { printfn("'0x%10x'", uint64(0xbadf00d)) }, "'0x000badf00d'"},
		{func() { printfn("'0x%5x'", int64(0xbadf00d)) }, "'0xbadf00d'"},
		{func() { printfn("0x%x", uintptr(0xb8000)) }, "0xb8000"},
		{func() { printfn("%d", int8(-10)) }, "-10"},
		{func() { printfn("%x", int32(-0xbadf00d)) }, "-badf00d"},
		{func() { printfn("'%10d'", int64(-12345678)) }, "' -12345678'"},
		{func() { printfn("'%10d'", int64(-1234567890)) }, "'-1234567890'"},
		{func() { printfn("'%6x'", int(-0xf)) }, "'-0000f'"},
		{func() { printfn("%%%s%d%t", "foo", 123, true) }, `%foo123true`},
		{func() { printfn("more args", "foo", "bar") }, `more args%!(EXTRA)%!(EXTRA)`},
		{func() { printfn("missing args %s") }, `missing args (MISSING)`},
		{func() { printfn("bad verb %Q") }, `bad verb %!(NOVERB)`},
		{func() { printfn("trailing %") }, `trailing %!(NOVERB)`},
		{func() { printfn("not bool %t", "foo") }, `not bool %!(WRONGTYPE)`},
		{func() { printfn("not int %d", "foo") }, `not int %!(WRONGTYPE)`},
		{func() { printfn("not string %s", 123) }, `not string %!(WRONGTYPE)`},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()
		assert.Equal(t, spec.expOutput, buf.String(), "spec %d", specIndex)
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	outputSink = nil
	Printf("hello %s", "world")

	var buf bytes.Buffer
	SetOutputSink(&buf)
	require.Equal(t, "hello world", buf.String())
	require.Equal(t, &buf, GetOutputSink())
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	Fprintf(&buf, "table %s at 0x%8x", "FACP", uint64(0xfee0))
	require.Equal(t, "table FACP at 0x0000fee0", buf.String())
}
