package acpi

import (
	"bytes"
	"testing"

	"github.com/mwg2202/os/device"
	"github.com/mwg2202/os/device/acpi/acpitest"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/stretchr/testify/require"
)

func TestDriver(t *testing.T) {
	t.Run("probe via BIOS scan", func(t *testing.T) {
		p := acpitest.Build(testConfig(0))
		drv := NewDriver(p.Mem, RootPointers{})

		info := drv.DriverInfo()
		require.Equal(t, device.DetectOrderACPI, info.Order)
		require.Equal(t, drv, info.Probe())
		require.Equal(t, "ACPI", drv.DriverName())

		var buf bytes.Buffer
		require.Nil(t, drv.DriverInit(&buf))

		ts, err := drv.Tables()
		require.Nil(t, err)
		require.NotNil(t, ts.FADT)

		out := buf.String()
		require.Contains(t, out, "RSDP revision 0, root table RSDT at 0x")
		require.Contains(t, out, "FACP at 0x0000000007fe1000")
		require.Contains(t, out, "(GOPHER TESTPLAT)\n")
		require.Contains(t, out, "APIC: 1 processors, 1 I/O APICs, local APIC at 0xfee00000\n")
	})

	t.Run("no root pointer", func(t *testing.T) {
		drv := NewDriver(&acpitest.PhysImage{}, RootPointers{})
		require.Nil(t, drv.Probe())

		_, err := drv.Tables()
		require.Equal(t, ErrRootPointerNotFound, err)
	})

	t.Run("tables requested before init", func(t *testing.T) {
		drv := NewDriver(&acpitest.PhysImage{}, RootPointers{V1: 0x1000})
		_, err := drv.Tables()
		require.Equal(t, ErrRootPointerNotFound, err)
	})

	t.Run("invalid ACPI 2.0+ root pointer", func(t *testing.T) {
		p := acpitest.Build(testConfig(2))
		v1 := &table.RSDP{Signature: table.RSDPSignature, RSDTAddr: uint32(p.Tables[table.SignatureRSDT])}
		p.Mem.Map(0x1000, v1.Encode())
		p.Mem.Corrupt(p.RSDP + 30)

		drv := NewDriver(p.Mem, RootPointers{V1: 0x1000, V2: p.RSDP})
		require.NotNil(t, drv.Probe())

		var buf bytes.Buffer
		require.Nil(t, drv.DriverInit(&buf))
		require.Contains(t, buf.String(), "ignoring ACPI 2.0+ RSDP: RSDP checksum mismatch; using ACPI 1.0 RSDP\n")
		require.Contains(t, buf.String(), "RSDP revision 0, root table RSDT at 0x")
	})

	t.Run("init failure", func(t *testing.T) {
		p := acpitest.Build(testConfig(2))
		p.Mem.Corrupt(p.RSDP)

		drv := NewDriver(p.Mem, RootPointers{V2: p.RSDP})
		require.NotNil(t, drv.Probe())
		require.Equal(t, ErrRSDPInvalidChecksum, drv.DriverInit(&bytes.Buffer{}))

		ts, err := drv.Tables()
		require.Nil(t, ts)
		require.Equal(t, ErrRSDPInvalidChecksum, err)
	})
}
