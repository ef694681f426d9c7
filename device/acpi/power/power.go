// Package power moves the machine into an ACPI sleep state by programming the
// PM1 control registers listed in the FADT.
package power

import (
	"io"

	"github.com/mwg2202/os/device/acpi/aml"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
)

var (
	// ErrNoAMLContext is returned by AML-driven transitions when no
	// initialized AML namespace is available.
	ErrNoAMLContext = &kernel.Error{Module: "acpi_power", Message: "AML context is not available"}

	// ErrNoFADT is returned when the FADT was not found.
	ErrNoFADT = &kernel.Error{Module: "acpi_power", Message: "FADT is not available"}

	errInvalidSleepState  = &kernel.Error{Module: "acpi_power", Message: "invalid sleep state"}
	errInvalidSleepObject = &kernel.Error{Module: "acpi_power", Message: "sleep state object is not a package of integers"}
	errNoPM1aControl      = &kernel.Error{Module: "acpi_power", Message: "FADT does not define a PM1a control block"}
)

// Flag selects how a sleep state transition is carried out.
type Flag uint8

const (
	// ModeRegister writes the sleep type derived from the state number
	// straight to the PM1 control registers.
	ModeRegister Flag = 0

	// ModeAML obtains the sleep type values from the \_Sx object and runs
	// the \_TTS and \_PTS methods before programming the registers.
	ModeAML Flag = 1 << 0

	// FlagFallback makes ModeAML transitions fall back to ModeRegister when
	// the AML namespace or the \_Sx object is not available.
	FlagFallback Flag = 1 << 1
)

// PM1 control register bits.
const (
	slpTypShift = 10
	slpTypMask  = 0x7
	slpEn       = 1 << 13

	maxSleepState = 5
)

// Namespace evaluates objects in the AML namespace. It is implemented by
// *aml.Context.
type Namespace interface {
	Invoke(path string, args ...interface{}) (interface{}, *aml.Error)
}

// PortWriter writes 16-bit values to I/O ports.
type PortWriter interface {
	WritePort16(port uint16, v uint16)
}

// Controller drives sleep state transitions.
type Controller struct {
	fadt  *table.FADT
	ns    Namespace
	ports PortWriter
	log   io.Writer
}

// NewController returns a controller that uses the PM1 control blocks listed
// in fadt. ns may be nil if no AML namespace is available.
func NewController(fadt *table.FADT, ns Namespace, ports PortWriter, w io.Writer) *Controller {
	return &Controller{
		fadt:  fadt,
		ns:    ns,
		ports: ports,
		log:   kfmt.ModuleWriter(w, "acpi_power"),
	}
}

// EnterSleepState moves the machine to sleep state S<state>. For S5 a
// successful call does not return on real hardware.
func (c *Controller) EnterSleepState(state uint8, flags Flag) *kernel.Error {
	if state > maxSleepState {
		return errInvalidSleepState
	}

	if c.fadt == nil {
		return ErrNoFADT
	}

	if c.fadt.PM1aControlPort() == 0 {
		return errNoPM1aControl
	}

	typA, typB := uint16(state), uint16(state)
	if flags&ModeAML != 0 {
		var err *kernel.Error
		if typA, typB, err = c.sleepTypes(state); err != nil {
			if flags&FlagFallback == 0 || (err != ErrNoAMLContext && err != aml.ErrObjectNotFound) {
				return err
			}

			kfmt.Fprintf(c.log, "%s; writing sleep type %d directly\n", err.Message, state)
			typA, typB = uint16(state), uint16(state)
		} else {
			c.prepare(state)
		}
	}

	kfmt.Fprintf(c.log, "entering S%d (SLP_TYPa: 0x%x, SLP_TYPb: 0x%x)\n", state, typA, typB)

	c.ports.WritePort16(c.fadt.PM1aControlPort(), (typA&slpTypMask)<<slpTypShift|slpEn)
	if port := c.fadt.PM1bControlPort(); port != 0 {
		c.ports.WritePort16(port, (typB&slpTypMask)<<slpTypShift|slpEn)
	}

	return nil
}

// sleepTypes evaluates \_S<state> and returns the SLP_TYPa and SLP_TYPb
// values it lists.
func (c *Controller) sleepTypes(state uint8) (uint16, uint16, *kernel.Error) {
	if c.ns == nil {
		return 0, 0, ErrNoAMLContext
	}

	res, err := c.ns.Invoke(SleepObjectPath(state))
	if err != nil {
		switch err.Kind {
		case aml.ErrContextNotReady:
			return 0, 0, ErrNoAMLContext
		case aml.ErrObjectNotFound:
			return 0, 0, aml.ErrObjectNotFound
		}

		err.Fprint(c.log)
		return 0, 0, errInvalidSleepObject
	}

	pkg, ok := res.([]interface{})
	if !ok || len(pkg) == 0 {
		return 0, 0, errInvalidSleepObject
	}

	typA, ok := pkg[0].(uint64)
	if !ok {
		return 0, 0, errInvalidSleepObject
	}

	// Some firmware only lists SLP_TYPa
	typB := typA
	if len(pkg) > 1 {
		if typB, ok = pkg[1].(uint64); !ok {
			return 0, 0, errInvalidSleepObject
		}
	}

	return uint16(typA), uint16(typB), nil
}

// prepare runs the optional \_TTS and \_PTS methods. Execution errors are
// logged and do not abort the transition.
func (c *Controller) prepare(state uint8) {
	for _, path := range []string{`\_TTS`, `\_PTS`} {
		if _, err := c.ns.Invoke(path, uint64(state)); err != nil && err.Kind != aml.ErrObjectNotFound {
			kfmt.Fprintf(c.log, "%s(%d) failed: ", path, state)
			err.Fprint(c.log)
		}
	}
}

// SleepObjectPath returns the absolute path of the \_Sx object that lists the
// sleep type values for state.
func SleepObjectPath(state uint8) string {
	return `\_S` + string(rune('0'+state)) + `_`
}
