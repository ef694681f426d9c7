// Package kmain brings up the boot core: physical memory, the kernel heap,
// ACPI table discovery, the AML namespace and the sleep state controller.
package kmain

import (
	"io"

	"github.com/mwg2202/os/device"
	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/aml"
	"github.com/mwg2202/os/device/acpi/power"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/device/hwio"
	"github.com/mwg2202/os/device/pci"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/hal"
	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/mwg2202/os/kernel/kfmt"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/mwg2202/os/kernel/mm/heap"
	"github.com/mwg2202/os/kernel/mm/pmm"
)

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	errKmainReturned    = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errInvalidSleepMode = &kernel.Error{Module: "kmain", Message: "unsupported acpi.sleep mode; expected register or aml"}
)

// Config holds the boot options decoded from the image command line.
type Config struct {
	// SleepMode is passed to the power controller by Shutdown.
	SleepMode power.Flag

	// ACPIDisabled skips table discovery and AML initialization.
	ACPIDisabled bool

	// VerboseMemory prints the memory map and the reconciled free extents.
	VerboseMemory bool
}

// ParseConfig decodes the boot options in cmdLine. Unknown options are
// ignored.
func ParseConfig(cmdLine string) (Config, *kernel.Error) {
	opts := efi.ParseCmdLine(cmdLine)

	cfg := Config{SleepMode: power.ModeAML | power.FlagFallback}
	switch opts["acpi.sleep"] {
	case "", "aml":
	case "register":
		cfg.SleepMode = power.ModeRegister
	default:
		return Config{}, errInvalidSleepMode
	}

	cfg.ACPIDisabled = opts["acpi"] == "off"
	_, cfg.VerboseMemory = opts["mem.verbose"]
	return cfg, nil
}

// Platform bundles the hardware accessors used during bring-up.
type Platform struct {
	// Phys is used to read the firmware tables.
	Phys acpi.PhysReader

	Mem   aml.MemoryHandler
	Ports aml.PortHandler
}

// BootContext owns every subsystem initialized by Boot.
type BootContext struct {
	Config Config

	Frames *pmm.FrameAllocator
	Heap   *heap.RegionAllocator

	// Tables and AML are nil when ACPI is disabled or unavailable.
	Tables *acpi.TableSet
	AML    *aml.Context

	Power *power.Controller

	log io.Writer
}

// Boot initializes the boot core using the firmware services in svc and the
// hardware accessors in plat. Log output is written to w. Memory and ACPI
// table errors are returned to the caller. A namespace that fails to build
// is logged and leaves AML nil so that power control uses register mode.
func Boot(svc efi.BootServices, plat Platform, w io.Writer) (*BootContext, *kernel.Error) {
	cfg, err := ParseConfig(svc.LoadOptions())
	if err != nil {
		return nil, err
	}

	bc := &BootContext{Config: cfg, log: kfmt.ModuleWriter(w, "kmain")}
	if err = bc.initMemory(svc, w); err != nil {
		return nil, err
	}

	var ns power.Namespace
	if cfg.ACPIDisabled {
		kfmt.Fprintf(bc.log, "ACPI disabled by boot options\n")
	} else {
		if bc.Tables, err = bc.detectTables(svc, plat, w); err != nil {
			return nil, err
		}

		if bc.AML = bc.initAML(plat, w); bc.AML != nil {
			ns = bc.AML
		}
	}

	bc.Power = power.NewController(bc.fadt(), ns, plat.Ports, w)
	return bc, nil
}

func (bc *BootContext) initMemory(svc efi.BootServices, w io.Writer) *kernel.Error {
	buf, descSize, err := svc.MemoryMap()
	if err != nil {
		return err
	}

	descs, err := efi.DecodeMemoryMap(buf, descSize)
	if err != nil {
		return err
	}

	// the heap is seeded with the first reclaimed frame and pulls any
	// additional frames from this context's frame allocator
	bc.Heap = heap.NewRegionAllocator(bc.allocFrame, w)
	if bc.Frames, err = pmm.Init(descs, bc.Heap.Seed, bc.Config.VerboseMemory, w); err != nil {
		return err
	}

	total, _ := bc.Frames.FrameCount()
	kfmt.Fprintf(bc.log, "memory: %d frames (%dKb)\n", total, total*mm.PageSize/uint64(mm.Kb))
	return nil
}

func (bc *BootContext) allocFrame() (mm.Frame, *kernel.Error) {
	return bc.Frames.AllocFrame()
}

func (bc *BootContext) detectTables(svc efi.BootServices, plat Platform, w io.Writer) (*acpi.TableSet, *kernel.Error) {
	var reg device.Registry

	drv := acpi.NewDriver(plat.Phys, acpi.RootPointersFromConfigTable(svc.ConfigurationTable()))
	reg.Register(drv.DriverInfo())
	hal.DetectHardware(&reg, w)

	return drv.Tables()
}

func (bc *BootContext) initAML(plat Platform, w io.Writer) *aml.Context {
	cfg := pci.NewConfigSpace(pci.NewECAMLocator(bc.Tables.MCFG), plat.Mem, plat.Ports)
	ctx := aml.NewContext(aml.Handlers{MemoryHandler: plat.Mem, PortHandler: plat.Ports, PCIHandler: cfg}, w)

	if err := ctx.Init(bc.Tables.DefinitionBlocks()); err != nil {
		kfmt.Fprintf(bc.log, "AML initialization failed: %s\n", err.Message)
		return nil
	}

	return ctx
}

func (bc *BootContext) fadt() *table.FADT {
	if bc.Tables == nil {
		return nil
	}
	return bc.Tables.FADT
}

// Shutdown enters the S5 soft-off state using the configured sleep mode. On
// real hardware a successful call does not return.
func (bc *BootContext) Shutdown() *kernel.Error {
	return bc.Power.EnterSleepState(5, bc.Config.SleepMode)
}

// Kmain is the only Go symbol invoked by the loader once it has obtained the
// memory map and the configuration table from the firmware. All output goes
// to the active kfmt sink.
//
// Kmain is not expected to return. If it does, the CPU is halted.
//
//go:noinline
func Kmain(svc efi.BootServices) {
	plat := Platform{Phys: hwio.Memory{}, Mem: hwio.Memory{}, Ports: hwio.Ports{}}

	if _, err := Boot(svc, plat, nil); err != nil {
		panicFn(err)
	}

	panicFn(errKmainReturned)
}
