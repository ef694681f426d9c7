// Package hal probes for the hardware needed by the boot core and
// initializes the matching drivers.
package hal

import (
	"bytes"
	"io"

	"github.com/mwg2202/os/device"
	"github.com/mwg2202/os/kernel/kfmt"
)

// DetectHardware invokes the probe function of every driver in reg, sorted by
// detection order, and initializes each detected driver. Driver output is sent
// to sink tagged with the driver name and version. The drivers that were
// initialized successfully are returned in initialization order.
func DetectHardware(reg *device.Registry, sink io.Writer) []device.Driver {
	var (
		strBuf        bytes.Buffer
		w             = kfmt.PrefixWriter{Sink: sink}
		activeDrivers []device.Driver
	)

	for _, info := range reg.DriverList() {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		activeDrivers = append(activeDrivers, drv)
	}

	return activeDrivers
}
