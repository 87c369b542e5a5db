// Package xerrors adds call-site information to errors. The logger reads it
// back through the PC and StackPCs methods.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

// stacked carries the full call stack at the point it was created.
type stacked struct {
	err error
	pcs []uintptr
}

func (s *stacked) Error() string       { return s.err.Error() }
func (s *stacked) Unwrap() error       { return s.err }
func (s *stacked) StackPCs() []uintptr { return s.pcs }

// annotated prefixes a message and remembers a single frame.
type annotated struct {
	err error
	msg string
	pc  uintptr
}

func (a *annotated) Error() string { return a.msg + ": " + a.err.Error() }
func (a *annotated) Unwrap() error { return a.err }
func (a *annotated) PC() uintptr   { return a.pc }

// stackFrom records the stack above the caller of the exported function.
// depth counts frames between runtime.Callers and that function.
func stackFrom(err error, depth int) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(depth, pcs)
	return &stacked{err: err, pcs: pcs[:n]}
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// runtime.Callers, callerPC, Wrap/Wrapf
	if runtime.Callers(3, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

func New(msg string) error { return stackFrom(errors.New(msg), 3) }

func Newf(format string, args ...any) error { return stackFrom(fmt.Errorf(format, args...), 3) }

// WithStack attaches the current stack to err. Returns nil for nil.
func WithStack(err error) error { return stackFrom(err, 3) }

// EnsureTrace attaches a stack unless something in the chain already has one.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && len(hs.StackPCs()) > 0 {
		return err
	}
	return stackFrom(err, 3)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &annotated{err: err, msg: msg, pc: callerPC()}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &annotated{err: err, msg: fmt.Sprintf(format, args...), pc: callerPC()}
}
