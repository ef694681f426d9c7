package aml

import (
	"io"

	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
)

var (
	// ErrContextNotReady is returned when the namespace is accessed before
	// Init has completed successfully.
	ErrContextNotReady = &kernel.Error{Module: "acpi_aml_vm", Message: "AML context is not initialized"}

	// ErrObjectNotFound is returned when a path does not resolve to a
	// namespace object.
	ErrObjectNotFound = &kernel.Error{Module: "acpi_aml_vm", Message: "object not found in the AML namespace"}

	errAlreadyInitialized     = &kernel.Error{Module: "acpi_aml_vm", Message: "AML context has already been initialized"}
	errNotEvaluable           = &kernel.Error{Module: "acpi_aml_vm", Message: "object cannot be evaluated"}
	errArgCount               = &kernel.Error{Module: "acpi_aml_vm", Message: "wrong number of method arguments"}
	errMethodBodyUnparsed     = &kernel.Error{Module: "acpi_aml_vm", Message: "method body could not be parsed"}
	errUnsupportedOpcode      = &kernel.Error{Module: "acpi_aml_vm", Message: "unsupported opcode"}
	errTypeMismatch           = &kernel.Error{Module: "acpi_aml_vm", Message: "operand has an unexpected type"}
	errUninitializedValue     = &kernel.Error{Module: "acpi_aml_vm", Message: "read of uninitialized local or argument"}
	errUnresolvedReference    = &kernel.Error{Module: "acpi_aml_vm", Message: "reference to undefined object"}
	errDivideByZero           = &kernel.Error{Module: "acpi_aml_vm", Message: "division by zero"}
	errIndexOutOfBounds       = &kernel.Error{Module: "acpi_aml_vm", Message: "index out of bounds"}
	errLoopLimit              = &kernel.Error{Module: "acpi_aml_vm", Message: "while loop exceeded the iteration limit"}
	errCallDepth              = &kernel.Error{Module: "acpi_aml_vm", Message: "maximum method call depth exceeded"}
	errInvalidStoreTarget     = &kernel.Error{Module: "acpi_aml_vm", Message: "invalid store target"}
	errUnsupportedRegionSpace = &kernel.Error{Module: "acpi_aml_vm", Message: "operation region space is not supported"}
	errFieldOutsideRegion     = &kernel.Error{Module: "acpi_aml_vm", Message: "field unit lies outside its operation region"}
	errFieldTooWide           = &kernel.Error{Module: "acpi_aml_vm", Message: "field units wider than 64 bits are not supported"}
)

// Frame identifies a method that was executing when an error occurred.
type Frame struct {
	// Method is the absolute path of the method.
	Method string

	// Op is the opcode of the statement that failed.
	Op entity.Opcode
}

// Error is returned by the interpreter. Kind identifies the failure and can
// be compared against the package error values; Trace lists the method
// frames that were active, innermost first.
type Error struct {
	Kind  *kernel.Error
	Trace []Frame
}

func newError(kind *kernel.Error) *Error {
	return &Error{Kind: kind}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Kind.Message
}

// push records an active method frame.
func (e *Error) push(method string, op entity.Opcode) *Error {
	e.Trace = append(e.Trace, Frame{Method: method, Op: op})
	return e
}

// Fprint writes the error message followed by the method trace to w.
func (e *Error) Fprint(w io.Writer) {
	kfmt.Fprintf(w, "%s\n", e.Kind.String())
	for _, frame := range e.Trace {
		kfmt.Fprintf(w, "  in %s (%s)\n", frame.Method, frame.Op.String())
	}
}
