package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMemoryMap(t *testing.T, descSize uint64) string {
	t.Helper()

	descs := []efi.MemoryDescriptor{
		{Type: efi.MemBootServicesData, PhysStart: 0x100000, Pages: 16, Attribute: efi.AttrWriteBack},
		{Type: efi.MemConventional, PhysStart: 0x110000, Pages: 16, Attribute: efi.AttrWriteBack},
		{Type: efi.MemReserved, PhysStart: 0x120000, Pages: 4},
		{Type: efi.MemConventional, PhysStart: 0x200000, Pages: 8, Attribute: efi.AttrUncacheable},
	}

	path := filepath.Join(t.TempDir(), "memmap.bin")
	require.NoError(t, os.WriteFile(path, efi.EncodeMemoryMap(descs, descSize), 0o600))
	return path
}

func TestMemmapCommand(t *testing.T) {
	path := writeMemoryMap(t, 48)

	t.Run("text", func(t *testing.T) {
		resetFlags()

		output, err := captureOutput(t, func() error { return runMemmap([]string{path}) })
		require.NoError(t, err)

		assert.Contains(t, output, "Memory map (4 descriptors):")
		assert.Contains(t, output, "Free extents (2):")
		assert.Contains(t, output, "[0x0000100000 - 0x0000120000]       32 pages  attr 0x8")
		assert.Contains(t, output, "Available memory: 160 KiB")
		assert.Contains(t, output, "Allocatable frames: 39 (bootstrap frame 0x100000)")
	})

	t.Run("json", func(t *testing.T) {
		resetFlags()
		jsonOut = true

		output, err := captureOutput(t, func() error { return runMemmap([]string{path}) })
		require.NoError(t, err)

		var report memmapReport
		assertJSON(t, output, &report)
		assert.Len(t, report.Descriptors, 4)
		assert.Len(t, report.Extents, 2)
		assert.Equal(t, uint64(0x100000), report.Extents[0].Base)
		assert.Equal(t, uint64(32), report.Extents[0].Pages)
		assert.Equal(t, uint64(39), report.Frames)
	})

	t.Run("descriptor size mismatch", func(t *testing.T) {
		resetFlags()
		memmapDescSize = 56

		_, err := captureOutput(t, func() error { return runMemmap([]string{path}) })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode memory map")
	})

	t.Run("missing file", func(t *testing.T) {
		resetFlags()

		_, err := captureOutput(t, func() error { return runMemmap([]string{filepath.Join(t.TempDir(), "none")}) })
		require.Error(t, err)
	})
}
