package acpi

import (
	"io"

	"github.com/mwg2202/os/device"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
)

// Driver exposes the ACPI tables to the hardware detection code.
type Driver struct {
	mem  PhysReader
	ptrs RootPointers

	tables  *TableSet
	initErr *kernel.Error
}

// NewDriver returns a driver that locates the ACPI tables reachable from
// ptrs. If ptrs is empty, the probe falls back to scanning the BIOS area.
func NewDriver(mem PhysReader, ptrs RootPointers) *Driver {
	return &Driver{mem: mem, ptrs: ptrs}
}

// DriverInfo returns the registration info for this driver.
func (drv *Driver) DriverInfo() *device.DriverInfo {
	return &device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: drv.Probe,
	}
}

// Probe returns the driver if a root pointer is available.
func (drv *Driver) Probe() device.Driver {
	if !drv.ptrs.Present() {
		drv.ptrs = ScanBIOSArea(drv.mem)
	}

	if !drv.ptrs.Present() {
		drv.initErr = ErrRootPointerNotFound
		return nil
	}

	return drv
}

// DriverName returns the name of this driver.
func (*Driver) DriverName() string {
	return "ACPI"
}

// DriverVersion returns the version of this driver.
func (*Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit locates and validates the ACPI tables.
func (drv *Driver) DriverInit(w io.Writer) *kernel.Error {
	if drv.tables, drv.initErr = Locate(drv.mem, drv.ptrs); drv.initErr != nil {
		return drv.initErr
	}

	if err := drv.tables.RejectedRSDP; err != nil {
		kfmt.Fprintf(w, "ignoring ACPI 2.0+ RSDP: %s; using ACPI 1.0 RSDP\n", err.Message)
	}

	printTableInfo(w, drv.tables)

	if apic, err := FindAPIC(drv.tables); err != nil {
		kfmt.Fprintf(w, "%s\n", err.Message)
	} else {
		kfmt.Fprintf(w, "APIC: %d processors, %d I/O APICs, local APIC at 0x%x\n",
			len(apic.Processors), len(apic.IOAPICs), apic.LocalControllerAddress)
	}

	return nil
}

// Tables returns the tables located by DriverInit or the error that
// prevented them from being located.
func (drv *Driver) Tables() (*TableSet, *kernel.Error) {
	if drv.tables == nil && drv.initErr == nil {
		return nil, ErrRootPointerNotFound
	}

	return drv.tables, drv.initErr
}

func printTableInfo(w io.Writer, ts *TableSet) {
	if ts.RSDP != nil {
		kfmt.Fprintf(w, "RSDP revision %d, root table %s at 0x%x\n",
			ts.RSDP.Revision, ts.Root.Header.SignatureString(), ts.Root.Addr)
	}

	for _, tbl := range ts.Tables() {
		kfmt.Fprintf(w, "%s at 0x%16x %6x (%6s %8s)\n",
			tbl.Header.SignatureString(),
			tbl.Addr,
			tbl.Header.Length,
			string(tbl.Header.OEMID[:]),
			string(tbl.Header.OEMTableID[:]),
		)
	}
}
