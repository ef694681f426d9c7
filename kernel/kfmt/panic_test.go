package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/cpu"
	"github.com/stretchr/testify/require"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = cpu.Halt
		outputSink = nil
	}()

	var (
		buf           bytes.Buffer
		cpuHaltCalled bool
	)
	cpuHaltFn = func() { cpuHaltCalled = true }
	SetOutputSink(&buf)

	specs := []struct {
		input interface{}
		exp   string
	}{
		{
			&kernel.Error{Module: "test", Message: "panic test"},
			"\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			errors.New("go error"),
			"\n-----------------------------------\n[rt] unrecoverable error: go error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			"string error",
			"\n-----------------------------------\n[rt] unrecoverable error: string error\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
		{
			nil,
			"\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n",
		},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		cpuHaltCalled = false

		Panic(spec.input)
		require.Equal(t, spec.exp, buf.String(), "spec %d", specIndex)
		require.True(t, cpuHaltCalled, "spec %d", specIndex)
	}
}
