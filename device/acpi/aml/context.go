// Package aml builds the ACPI namespace out of the DSDT and SSDT definition
// blocks and evaluates the objects and control methods it contains.
package aml

import (
	"io"

	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/acpi/aml/parser"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
	"github.com/mwg2202/os/kernel/sync"
)

// State describes the bring-up progress of a Context.
type State uint8

// The list of Context states. A context only moves forward through them;
// a failed Init returns it to StateUninitialized.
const (
	StateUninitialized State = iota
	StateTablesLoaded
	StateNamespaceBuilding
	StateReady
)

// String implements fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case StateTablesLoaded:
		return "tables-loaded"
	case StateNamespaceBuilding:
		return "namespace-building"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// _STA bits.
const (
	staPresent     = 1 << 0
	staFunctioning = 1 << 3

	// staDefault is assumed for devices without a _STA object.
	staDefault = 0x0f
)

const (
	// osName is the value of the predefined \_OS object.
	osName = "Microsoft Windows NT"

	// specRevision is the value of the predefined \_REV object.
	specRevision = 2
)

// supportedOSInterfaces lists the strings that \_OSI reports as supported.
var supportedOSInterfaces = []string{
	"Windows 2000",
	"Windows 2001",
	"Windows 2001 SP1",
	"Windows 2001.1",
	"Windows 2006",
	"Windows 2009",
	"Windows 2012",
	"Windows 2015",
	"Module Device",
	"Processor Device",
	"3.0 Thermal Model",
	"Extended Address Space Descriptor",
	"Processor Aggregator Device",
}

// Context holds the ACPI namespace and the handler used by operation regions
// to reach the hardware.
type Context struct {
	mutex sync.Spinlock

	handler Handler
	log     io.Writer

	root   *entity.Scope
	state  State
	parser *parser.Parser

	// intMask truncates integer results to 32 bits for DSDT revisions
	// prior to 2.
	intMask uint64
}

// NewContext returns an uninitialized context that accesses the hardware
// through h and logs to w. A nil w logs to the active kfmt output sink.
func NewContext(h Handler, w io.Writer) *Context {
	return &Context{
		handler: h,
		log:     kfmt.ModuleWriter(w, "acpi_aml"),
		intMask: ^uint64(0),
	}
}

// State returns the bring-up state of the context.
func (c *Context) State() State {
	return c.state
}

// Init populates the namespace from a list of definition blocks. The DSDT is
// expected to be the first block and is followed by the SSDTs in table
// order. A missing DSDT is reported and the remaining blocks are still
// loaded. Once all blocks are parsed, the _INI methods of \_SB and of every
// present device are executed.
func (c *Context) Init(blocks []*acpi.Table) *kernel.Error {
	c.mutex.Acquire()
	defer c.mutex.Release()

	if c.state != StateUninitialized {
		return errAlreadyInitialized
	}

	c.state = StateTablesLoaded
	c.root = c.predefinedRoot()
	c.parser = parser.NewParser(c.log, c.root)
	c.intMask = ^uint64(0)

	if len(blocks) == 0 || blocks[0].Header.SignatureString() != table.SignatureDSDT {
		kfmt.Fprintf(c.log, "DSDT not found; namespace will only contain secondary tables\n")
		c.state = StateNamespaceBuilding
	} else if blocks[0].Header.Revision < 2 {
		c.intMask = 0xffffffff
	}

	for index, blk := range blocks {
		if err := c.parser.ParseAML(uint8(index+1), blk.Header.SignatureString(), blk.Data); err != nil {
			c.state = StateUninitialized
			return err
		}
		c.state = StateNamespaceBuilding
	}

	if failed := c.parser.ParseMethodBodies(); failed != 0 {
		kfmt.Fprintf(c.log, "%d method bodies could not be parsed and will not be callable\n", failed)
	}

	c.initObjects()
	c.state = StateReady

	return nil
}

// predefinedRoot returns a root scope containing the objects every namespace
// is expected to provide.
func (c *Context) predefinedRoot() *entity.Scope {
	root := entity.NewScope(entity.OpRoot, 0, `\`)
	for _, name := range []string{"_GPE", "_PR_", "_SB_", "_SI_", "_TZ_"} {
		root.Append(entity.NewScope(entity.OpScope, 0, name))
	}

	root.Append(entity.NewName(0, "_OS_", osName))
	root.Append(entity.NewName(0, "_REV", uint64(specRevision)))
	root.Append(entity.NewMutex(0, "_GL_", 0))

	osi := entity.NewMethod(0, "_OSI", 1)
	osi.Native = func(args []interface{}) interface{} {
		iface, _ := args[0].(string)
		for _, supported := range supportedOSInterfaces {
			if iface == supported {
				return c.ones()
			}
		}
		return uint64(0)
	}
	root.Append(osi)

	return root
}

// initObjects runs \_SB._INI followed by the _INI method of each device
// whose _STA reports it as present. Children of devices that are neither
// present nor functioning are skipped. Failures are logged.
func (c *Context) initObjects() {
	if sbInit, ok := entity.FindInScope(c.root, c.root, `\_SB_._INI`).(*entity.Method); ok {
		c.runInit(sbInit)
	}

	var initialized int
	entity.Visit(0, c.root, entity.TypeDevice, func(_ int, ent entity.Entity) bool {
		dev := ent.(entity.Container)

		sta := uint64(staDefault)
		if staObj := findChild(dev, "_STA"); staObj != nil {
			v, err := c.readObject(&execContext{}, staObj)
			if err == nil {
				sta, err = toInteger(v, c.intMask)
			}
			if err != nil {
				kfmt.Fprintf(c.log, "could not evaluate %s._STA: ", entity.Path(dev))
				err.Fprint(c.log)
				return false
			}
		}

		if sta&staPresent == 0 {
			return sta&staFunctioning != 0
		}

		if ini, ok := findChild(dev, "_INI").(*entity.Method); ok {
			c.runInit(ini)
			initialized++
		}

		return true
	})

	kfmt.Fprintf(c.log, "ran _INI for %d devices\n", initialized)
}

func (c *Context) runInit(m *entity.Method) {
	if _, err := c.execMethod(m, nil, 0); err != nil {
		kfmt.Fprintf(c.log, "%s failed: ", entity.Path(m))
		err.Fprint(c.log)
	}
}

// findChild returns the direct child of scope with the supplied name.
func findChild(scope entity.Container, name string) entity.Entity {
	for _, child := range scope.Children() {
		if child.Name() == name {
			return child
		}
	}
	return nil
}

// Lookup returns the namespace object at the supplied absolute path.
func (c *Context) Lookup(path string) (entity.Entity, *kernel.Error) {
	if c.state != StateReady {
		return nil, ErrContextNotReady
	}

	ent := entity.FindInScope(c.root, c.root, entity.NormalizePath(path))
	if ent == nil {
		return nil, ErrObjectNotFound
	}

	return ent, nil
}

// Invoke evaluates the object at the supplied absolute path. Methods are
// executed with args; names and field units evaluate to their current
// value. Arguments may be Go integers, strings or byte slices. The result
// is one of uint64, string, []byte, []interface{} or nil.
func (c *Context) Invoke(path string, args ...interface{}) (interface{}, *Error) {
	c.mutex.Acquire()
	defer c.mutex.Release()

	ent, kerr := c.Lookup(path)
	if kerr != nil {
		return nil, newError(kerr)
	}

	vmArgs := make([]interface{}, len(args))
	for index, arg := range args {
		if vmArgs[index] = normalizeArg(arg); vmArgs[index] == nil {
			return nil, newError(errTypeMismatch)
		}
	}

	var (
		res interface{}
		err *Error
	)
	switch obj := ent.(type) {
	case *entity.Method:
		res, err = c.execMethod(obj, vmArgs, 0)
	case *entity.Name, *entity.FieldUnit, *entity.Alias:
		if len(args) != 0 {
			return nil, newError(errArgCount)
		}
		res, err = c.readObject(&execContext{}, obj)
	default:
		return nil, newError(errNotEvaluable)
	}

	if err != nil {
		return nil, err
	}

	return c.exportValue(res), nil
}

// exportValue converts an interpreter value into one of the types returned
// by Invoke. Packages are copied and references inside them evaluated.
func (c *Context) exportValue(v interface{}) interface{} {
	switch tv := deref(v).(type) {
	case uint64:
		return tv & c.intMask
	case string, []byte:
		return copyValue(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for index, elem := range tv {
			if ref, isRef := elem.(*entity.Reference); isRef {
				if val, err := c.evalArg(&execContext{}, ref); err == nil {
					elem = val
				}
			}
			out[index] = c.exportValue(elem)
		}
		return out
	}

	return nil
}

func normalizeArg(arg interface{}) interface{} {
	switch v := arg.(type) {
	case int:
		return uint64(v)
	case int32:
		return uint64(v)
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case string:
		return v
	case []byte:
		return append([]byte(nil), v...)
	}
	return nil
}
