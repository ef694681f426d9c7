// Package kernel contains types shared by every kernel sub-system.
package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error values so callers can compare them by identity without
// requiring the Go allocator to be initialized.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// String returns the error message prefixed by the module name.
func (e *Error) String() string {
	return "[" + e.Module + "] " + e.Message
}
