// Package device defines the interface implemented by device drivers and the
// registry used to probe for them during boot.
package device

import (
	"io"
	"sort"

	"github.com/mwg2202/os/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it or nil if the hardware is
// not present.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the hardware detection code.
type DetectOrder int8

// The list of supported detection orders. Drivers with the same order are
// probed in registration order.
const (
	DetectOrderEarly DetectOrder = iota
	DetectOrderBeforeACPI
	DetectOrderACPI
	DetectOrderLast
)

// DriverInfo is a driver-defined struct that is passed to Registry.Register.
type DriverInfo struct {
	// Order specifies at which stage of the hardware detection process
	// the probe function will be invoked.
	Order DetectOrder

	// Probe is a function that checks for the presence of a particular
	// piece of hardware and returns back a driver for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

// Registry tracks the drivers that the boot code should probe for. It is
// owned by the boot context and populated before hardware detection runs.
type Registry struct {
	drivers DriverInfoList
}

// Register adds a driver to the registry.
func (r *Registry) Register(info *DriverInfo) {
	r.drivers = append(r.drivers, info)
}

// DriverList returns the registered drivers sorted by detection order.
func (r *Registry) DriverList() DriverInfoList {
	list := append(DriverInfoList(nil), r.drivers...)
	sort.Stable(list)
	return list
}
