package ir

import "github.com/pkg/errors"

// AssemblyError reports a structural problem found while flattening a
// machine and its submachines: an unresolved destination, a cyclic Enter
// chain, or a submachine referenced but never supplied to Assemble. All
// three are user-authored bugs that are statically detectable, so Assemble
// returns them rather than panicking.
type AssemblyError struct {
	Machine MachineTag
	err     error
}

func (e *AssemblyError) Error() string {
	return errors.Wrapf(e.err, "assemble %q", e.Machine).Error()
}

func (e *AssemblyError) Unwrap() error { return e.err }

func newAssemblyError(machine MachineTag, format string, args ...any) error {
	return &AssemblyError{Machine: machine, err: errors.Errorf(format, args...)}
}
