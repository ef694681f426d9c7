package acpi

import (
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
)

// ErrApicModelNotFound is returned when the platform does not describe any
// APIC-based interrupt controller.
var ErrApicModelNotFound = &kernel.Error{Module: "acpi", Message: "could not find an APIC interrupt model"}

// APICInfo summarizes the interrupt controllers listed in the MADT.
type APICInfo struct {
	LocalControllerAddress uint32
	Processors             []table.MADTEntryLocalAPIC
	IOAPICs                []table.MADTEntryIOAPIC
	Overrides              []table.MADTEntryInterruptSrcOverride
}

// FindAPIC extracts the APIC interrupt model from the MADT.
func FindAPIC(ts *TableSet) (*APICInfo, *kernel.Error) {
	if ts.MADT == nil || len(ts.MADT.LocalAPICs) == 0 {
		return nil, ErrApicModelNotFound
	}

	// MADT local APIC flag bit 0 marks the processor as enabled
	info := &APICInfo{
		LocalControllerAddress: ts.MADT.LocalControllerAddress,
		IOAPICs:                ts.MADT.IOAPICs,
		Overrides:              ts.MADT.Overrides,
	}
	for _, lapic := range ts.MADT.LocalAPICs {
		if lapic.Flags&0x1 != 0 {
			info.Processors = append(info.Processors, lapic)
		}
	}

	return info, nil
}
