package emulator

import (
	"errors"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	ErrNoProgram         = errors.New(f("no program loaded"))
	ErrHalted            = errors.New(f("program has halted"))
	ErrFaulted           = errors.New(f("program has faulted"))
	ErrArgsTooLarge      = errors.New(f("program arguments exceed the stack"))
	ErrBreakpointInvalid = errors.New(f("breakpoint is not a text address"))
	ErrBreakpointMissing = errors.New(f("no breakpoint at address"))
	ErrWatchpointInvalid = errors.New(f("watchpoint is not a writable address"))
	ErrWatchpointMissing = errors.New(f("no such watchpoint"))
	ErrCheckpointInvalid = errors.New(f("checkpoint does not belong to this run"))
)

// ErrRuntime indicates the location of a runtime fault.
type ErrRuntime struct {
	Addr   uint32
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("0x%08x: %v", err.Addr, err.Err)
	}
	return f("line %d (0x%08x): %v", err.LineNo, err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
